package telnet

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"go.uber.org/zap"
)

// Dial connects to a host, completes the TLS handshake when tlsConfig is
// non-nil, then negotiates telnet options as the client side. The returned
// Conn is ready for record traffic.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, termType string, log *zap.Logger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	conn := raw
	if tlsConfig != nil {
		tlsConn := tls.Client(raw, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, fmt.Errorf("TLS handshake with %s failed: %w", addr, err)
		}
		state := tlsConn.ConnectionState()
		log.Debug("TLS handshake complete",
			zap.String("addr", addr),
			zap.Uint16("version", state.Version),
			zap.Uint16("cipher_suite", state.CipherSuite),
		)
		conn = tlsConn
	}

	c, err := Client(ctx, conn, termType, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	log.Info("Connected",
		zap.String("addr", addr),
		zap.Bool("tls", tlsConfig != nil),
		zap.String("terminal_type", c.TerminalType()),
	)
	return c, nil
}
