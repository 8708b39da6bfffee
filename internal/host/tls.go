package host

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/logging"
)

// NewTLSConfig creates the TLS configuration for a telnets listener.
// Legacy emulators commonly stop at TLS 1.2, so that remains the floor.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	// Load certificate and private key
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
		zap.String("min_version", "TLS 1.2"),
	)

	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,

		// Callback to log TLS handshake details
		VerifyConnection: func(cs tls.ConnectionState) error {
			logging.LogTLSHandshake(
				cs.ServerName,
				cs.Version,
				cs.CipherSuite,
				cs.ServerName,
			)
			return nil
		},
	}

	return config, nil
}

// GetTLSInfo returns human-readable TLS configuration information
func GetTLSInfo(config *tls.Config) map[string]interface{} {
	return map[string]interface{}{
		"min_version":     "TLS 1.2",
		"max_version":     "library default",
		"num_certs":       len(config.Certificates),
		"session_tickets": !config.SessionTicketsDisabled,
	}
}
