package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "tn3270") {
		t.Errorf("GetConfigDir() = %v, should contain 'tn3270'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigDirOverride(t *testing.T) {
	t.Setenv(ConfigDirEnvVar, "/tmp/tn3270-test-profiles")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != "/tmp/tn3270-test-profiles" {
		t.Errorf("GetConfigDir() = %v, want the override directory", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "hosts.yaml" {
		t.Errorf("GetConfigPath() should end with 'hosts.yaml', got: %v", configPath)
	}

	t.Logf("Config path: %s", configPath)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Hosts == nil {
		t.Error("NewRegistry().Hosts should not be nil")
	}

	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	if reg.Preferences.AutoDiscover != true {
		t.Error("NewRegistry().Preferences.AutoDiscover should be true by default")
	}

	if reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("NewRegistry().Preferences.DiscoverTimeout = %v, want 5", reg.Preferences.DiscoverTimeout)
	}

	if reg.Preferences.DefaultCodepage != "037" {
		t.Errorf("NewRegistry().Preferences.DefaultCodepage = %v, want 037", reg.Preferences.DefaultCodepage)
	}
}

func TestRegistrySetAndGetHost(t *testing.T) {
	reg := NewRegistry()

	err := reg.SetHost("dev", &Host{Address: "mainframe.example.com", Port: 3270})
	if err != nil {
		t.Fatalf("SetHost() error = %v", err)
	}

	h := reg.GetHost("dev")
	if h == nil {
		t.Fatal("GetHost() returned nil for a saved profile")
	}
	if h.Address != "mainframe.example.com" || h.Port != 3270 {
		t.Errorf("GetHost() = %+v, want the saved profile", h)
	}

	if reg.GetHost("missing") != nil {
		t.Error("GetHost() should return nil for an unknown profile")
	}
}

func TestRegistrySetHostValidation(t *testing.T) {
	reg := NewRegistry()

	if err := reg.SetHost("", &Host{Address: "h"}); err == nil {
		t.Error("SetHost() with empty name should fail")
	}
	if err := reg.SetHost("bad", &Host{}); err == nil {
		t.Error("SetHost() with empty address should fail")
	}
	if err := reg.SetHost("bad", &Host{Address: "h", Port: 70000}); err == nil {
		t.Error("SetHost() with out-of-range port should fail")
	}
	if err := reg.SetHost("bad", &Host{Address: "h", Codepage: "9999"}); err == nil {
		t.Error("SetHost() with unknown codepage should fail")
	}
	if err := reg.SetHost("ok", &Host{Address: "h", Codepage: "IBM-1047"}); err != nil {
		t.Errorf("SetHost() with a prefixed codepage name failed: %v", err)
	}
}

func TestRegistryRemoveHost(t *testing.T) {
	reg := NewRegistry()
	if err := reg.SetHost("dev", &Host{Address: "h"}); err != nil {
		t.Fatalf("SetHost() error = %v", err)
	}

	if !reg.RemoveHost("dev") {
		t.Error("RemoveHost() should report true for an existing profile")
	}
	if reg.RemoveHost("dev") {
		t.Error("RemoveHost() should report false for a missing profile")
	}
	if reg.GetHost("dev") != nil {
		t.Error("profile still present after RemoveHost()")
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.SetHost(name, &Host{Address: "h"}); err != nil {
			t.Fatalf("SetHost(%q) error = %v", name, err)
		}
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %v, want %v", i, names[i], want[i])
		}
	}
}

func TestRegistryTouchHost(t *testing.T) {
	reg := NewRegistry()
	if err := reg.SetHost("dev", &Host{Address: "h"}); err != nil {
		t.Fatalf("SetHost() error = %v", err)
	}

	before := time.Now()
	reg.TouchHost("dev")
	after := time.Now()

	h := reg.GetHost("dev")
	if h.LastUsed.Before(before) || h.LastUsed.After(after) {
		t.Errorf("LastUsed = %v, should be between %v and %v", h.LastUsed, before, after)
	}

	// Touching an unknown profile must not create it.
	reg.TouchHost("missing")
	if reg.GetHost("missing") != nil {
		t.Error("TouchHost() created a profile")
	}
}

func TestHostPort(t *testing.T) {
	cases := []struct {
		host Host
		want string
	}{
		{Host{Address: "mf.example.com"}, "mf.example.com:23"},
		{Host{Address: "mf.example.com", TLS: true}, "mf.example.com:992"},
		{Host{Address: "mf.example.com", Port: 3270}, "mf.example.com:3270"},
		{Host{Address: "::1", Port: 23}, "[::1]:23"},
	}
	for _, c := range cases {
		if got := c.host.HostPort(); got != c.want {
			t.Errorf("HostPort(%+v) = %v, want %v", c.host, got, c.want)
		}
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "tn3270-config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	t.Setenv(ConfigDirEnvVar, tmpDir)

	reg := NewRegistry()
	if err := reg.SetHost("dev", &Host{
		Address:      "mainframe.example.com",
		Port:         3270,
		TLS:          true,
		TerminalType: "IBM-3278-4",
		Codepage:     "1047",
		Description:  "development LPAR",
	}); err != nil {
		t.Fatalf("SetHost() error = %v", err)
	}

	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The file carries the explanatory header.
	data, err := os.ReadFile(filepath.Join(tmpDir, "hosts.yaml"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "# TN3270 host profiles") {
		t.Error("saved file is missing its header comment")
	}

	loaded, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}

	h := loaded.GetHost("dev")
	if h == nil {
		t.Fatal("profile missing after reload")
	}
	if h.Address != "mainframe.example.com" || h.Port != 3270 || !h.TLS {
		t.Errorf("reloaded profile = %+v", h)
	}
	if h.TerminalType != "IBM-3278-4" || h.Codepage != "1047" {
		t.Errorf("reloaded profile lost fields: %+v", h)
	}
	if h.Description != "development LPAR" {
		t.Errorf("reloaded description = %q", h.Description)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "tn3270-config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	t.Setenv(ConfigDirEnvVar, tmpDir)

	reg, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	if len(reg.Hosts) != 0 {
		t.Errorf("fresh registry has %d hosts, want 0", len(reg.Hosts))
	}
	if reg.Preferences == nil || !reg.Preferences.AutoDiscover {
		t.Error("fresh registry is missing default preferences")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "tn3270-config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	t.Setenv(ConfigDirEnvVar, tmpDir)

	path := filepath.Join(tmpDir, "hosts.yaml")
	if err := os.WriteFile(path, []byte("version: 9\n"), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	if _, err := ReloadRegistry(); err == nil {
		t.Error("ReloadRegistry() accepted an unsupported version")
	}
}

// Benchmark tests

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

func BenchmarkSetHost(b *testing.B) {
	reg := NewRegistry()
	h := &Host{Address: "mainframe.example.com", Port: 3270}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reg.SetHost("dev", h)
	}
}
