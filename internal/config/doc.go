// Package config manages saved host profiles for the tn3270 client.
//
// Profiles live in a YAML file holding named host entries (address,
// port, TLS, terminal type, code page) plus application preferences.
// The file location follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/tn3270/hosts.yaml or $HOME/.config/tn3270/hosts.yaml
//   - macOS: $HOME/.config/tn3270/hosts.yaml
//   - Windows: %LOCALAPPDATA%\tn3270\hosts.yaml
//
// The TN3270_CONFIG_DIR environment variable overrides the directory.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = registry.SetHost("dev", &config.Host{
//	    Address:  "mainframe.example.com",
//	    Port:     3270,
//	    Codepage: "037",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex to ensure
// atomic writes.
package config
