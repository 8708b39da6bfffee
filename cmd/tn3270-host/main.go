// Tn3270-host is a demo TN3270 host application server.
//
// It accepts terminal connections over telnet or telnets, negotiates
// 3270 mode, and runs a small sign-on application on each connection:
// a login screen, a status screen, and a sign-off. It exists to give
// the tn3270 client a real host to talk to and to exercise the full
// stack end to end.
//
// Usage:
//
//	tn3270-host serve [flags]
//
// See 'tn3270-host serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muldry/tn3270/internal/host"
	"github.com/muldry/tn3270/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tn3270-host",
	Short: "TN3270 Demo Host",
	Long: `A demo TN3270 host application server.

Accepts terminal connections, negotiates 3270 mode, and serves a
sign-on application built on the same data-stream engine the client
uses. Useful as a connect target for the tn3270 client, for protocol
experiments, and for watching live screens through the WebSocket
monitor.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	certPath    string
	keyPath     string
	listenHost  string
	listenPort  int
	logLevel    string
	codepage    string
	announce    string
	monitorAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo host",
	Long: `Start the demo host and serve the sign-on application.

The host listens for telnet connections and runs one application
instance per terminal. Provide --cert and --key to serve telnets (TLS)
instead of plain telnet. The default port is 3270; the well-known
telnet and telnets ports (23, 992) usually require elevated privileges.

With --announce the host advertises itself over mDNS so clients can
find it with 'tn3270 discover'. With --monitor the host serves a
WebSocket endpoint that streams every terminal's screen to subscribers
as JSON.`,
	Example: `  # Start a plain telnet host on port 3270
  tn3270-host serve

  # Custom port with debug logging
  tn3270-host serve --port 2323 --log-level debug

  # Serve telnets with a certificate
  tn3270-host serve --cert cert.pem --key key.pem --port 992

  # Announce over mDNS and enable the screen monitor
  tn3270-host serve --announce "Demo LPAR" --monitor :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves telnets when set)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serveCmd.Flags().StringVar(&listenHost, "host", "", "Listen hostname (empty = all interfaces)")
	serveCmd.Flags().IntVar(&listenPort, "port", 3270, "Listen port")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&codepage, "codepage", "", "EBCDIC code page for the application (default 037)")
	serveCmd.Flags().StringVar(&announce, "announce", "", "mDNS instance name to announce (disabled if not specified)")
	serveCmd.Flags().StringVar(&monitorAddr, "monitor", "", "Listen address for the WebSocket screen monitor (disabled if not specified)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Either both cert and key, or neither (plain telnet)
	if (certPath != "" && keyPath == "") || (certPath == "" && keyPath != "") {
		return fmt.Errorf("both --cert and --key must be provided together")
	}

	if certPath != "" {
		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			return fmt.Errorf("certificate file not found: %s", certPath)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return fmt.Errorf("private key file not found: %s", keyPath)
		}
	}

	config := &host.Config{
		Host:        listenHost,
		Port:        listenPort,
		CertPath:    certPath,
		KeyPath:     keyPath,
		LogLevel:    logLevel,
		Codepage:    codepage,
		Instance:    announce,
		MonitorAddr: monitorAddr,
	}

	srv, err := host.New(config)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}

	return srv.Start()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tn3270-host %s (commit: %s)\n", version.Version, version.Commit)
	},
}
