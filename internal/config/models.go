package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/muldry/tn3270/internal/ebcdic"
)

// Well-known ports: plain telnet and telnet over TLS.
const (
	DefaultPort    = 23
	DefaultTLSPort = 992
)

// Registry represents the entire host-profile file.
type Registry struct {
	Version     int              `yaml:"version"`
	Hosts       map[string]*Host `yaml:"hosts,omitempty"` // Keyed by profile name
	Preferences *Preferences     `yaml:"preferences,omitempty"`
}

// Host is one saved connection profile.
type Host struct {
	Address      string    `yaml:"address"`                 // Hostname or IP
	Port         int       `yaml:"port,omitempty"`          // Zero selects the default for the transport
	TLS          bool      `yaml:"tls,omitempty"`           // Connect over TLS (telnets)
	TerminalType string    `yaml:"terminal_type,omitempty"` // Reported during negotiation
	Codepage     string    `yaml:"codepage,omitempty"`      // EBCDIC code page identifier
	Description  string    `yaml:"description,omitempty"`   // Free-form note
	LastUsed     time.Time `yaml:"last_used,omitempty"`     // Last successful connection
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool   `yaml:"auto_discover"`              // Browse for hosts on startup when none is named
	DiscoverTimeout int    `yaml:"discover_timeout"`           // mDNS browse timeout in seconds
	DefaultCodepage string `yaml:"default_codepage,omitempty"` // Code page for profiles that leave it unset
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Hosts:   make(map[string]*Host),
		Preferences: &Preferences{
			AutoDiscover:    true,
			DiscoverTimeout: 5,
			DefaultCodepage: ebcdic.Default.Name(),
		},
	}
}

// Validate checks that the profile can be dialed.
func (h *Host) Validate() error {
	if strings.TrimSpace(h.Address) == "" {
		return fmt.Errorf("host address is required")
	}
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("port %d out of range", h.Port)
	}
	if h.Codepage != "" {
		if _, err := ebcdic.Lookup(h.Codepage); err != nil {
			return fmt.Errorf("invalid codepage: %w", err)
		}
	}
	return nil
}

// HostPort returns the dialable "address:port" string. A zero port
// falls back to the standard telnet port, or the telnets port when TLS
// is enabled.
func (h *Host) HostPort() string {
	port := h.Port
	if port == 0 {
		if h.TLS {
			port = DefaultTLSPort
		} else {
			port = DefaultPort
		}
	}
	return net.JoinHostPort(h.Address, strconv.Itoa(port))
}

// GetHost retrieves a profile by name. Returns nil if no profile with
// that name exists.
func (r *Registry) GetHost(name string) *Host {
	return r.Hosts[name]
}

// SetHost adds or replaces a profile after validating it.
func (r *Registry) SetHost(name string, h *Host) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if err := h.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	if r.Hosts == nil {
		r.Hosts = make(map[string]*Host)
	}
	r.Hosts[name] = h
	return nil
}

// RemoveHost deletes a profile. It reports whether the profile existed.
func (r *Registry) RemoveHost(name string) bool {
	if _, ok := r.Hosts[name]; !ok {
		return false
	}
	delete(r.Hosts, name)
	return true
}

// Names returns the profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Hosts))
	for name := range r.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TouchHost updates a profile's last-used timestamp. Unknown names are
// ignored.
func (r *Registry) TouchHost(name string) {
	if h, ok := r.Hosts[name]; ok {
		h.LastUsed = time.Now()
	}
}
