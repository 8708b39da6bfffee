package host

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/discovery"
	"github.com/muldry/tn3270/internal/ebcdic"
	"github.com/muldry/tn3270/internal/logging"
	"github.com/muldry/tn3270/internal/telnet"
)

// Config holds the demo host configuration
type Config struct {
	Host        string
	Port        int
	CertPath    string // Path to certificate file (empty = plain telnet)
	KeyPath     string // Path to private key file
	LogLevel    string
	Codepage    string // EBCDIC codepage for the demo application (empty = default)
	Instance    string // mDNS instance name to announce (empty = no announcement)
	MonitorAddr string // Listen address for the WebSocket screen monitor (empty = disabled)
}

// Server is the demo TN3270 host: it accepts terminal connections,
// negotiates telnet options, and runs the sign-on application on each.
type Server struct {
	config      *Config
	cp          *ebcdic.Codepage
	listener    net.Listener
	tlsConfig   *tls.Config
	monitor     *Monitor
	monitorSrv  *http.Server
	announcer   *discovery.Announcer
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	// Initialize logging
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	cp := ebcdic.Default
	if config.Codepage != "" {
		var err error
		cp, err = ebcdic.Lookup(config.Codepage)
		if err != nil {
			return nil, err
		}
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:      config,
		cp:          cp,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]net.Conn),
	}
	if config.MonitorAddr != "" {
		s.monitor = NewMonitor()
	}
	return s, nil
}

// Start starts the host and blocks until shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	logging.Info("Starting TN3270 demo host",
		zap.String("addr", addr),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.String("codepage", s.cp.Name()),
		zap.String("log_level", s.config.LogLevel),
	)

	var listener net.Listener
	var err error
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration",
			zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
		)
		listener, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("Host listening for terminals",
		zap.String("addr", listener.Addr().String()),
	)

	if s.monitor != nil {
		s.monitorSrv = &http.Server{
			Addr:    s.config.MonitorAddr,
			Handler: s.monitor.Handler(),
		}
		go func() {
			logging.Info("Screen monitor listening",
				zap.String("addr", s.config.MonitorAddr),
			)
			if err := s.monitorSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Screen monitor stopped", zap.Error(err))
			}
		}()
	}

	if s.config.Instance != "" {
		announcer, err := discovery.Announce(s.config.Instance, s.config.Port, s.tlsConfig != nil)
		if err != nil {
			// Discovery is best effort; the host still serves without it.
			logging.Warn("Failed to announce host via mDNS", zap.Error(err))
		} else {
			s.announcer = announcer
			logging.Info("Announcing host via mDNS",
				zap.String("instance", s.config.Instance),
			)
		}
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start accepting connections in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.acceptConnections()
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping host...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// acceptConnections accepts and handles incoming connections
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if listener was closed (during shutdown)
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		// Handle connection in goroutine
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection negotiates one terminal connection and runs the demo
// application on it until the operator signs off or the peer drops.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	// Track active connection
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		if s.monitor != nil {
			s.monitor.Drop(remoteAddr)
		}
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	// Log TLS connection state
	if tlsConn, ok := conn.(*tls.Conn); ok {
		// Force TLS handshake
		if err := tlsConn.Handshake(); err != nil {
			logging.Error("TLS handshake failed",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}

		state := tlsConn.ConnectionState()
		logging.LogTLSHandshake(
			remoteAddr,
			state.Version,
			state.CipherSuite,
			state.ServerName,
		)
	}

	tc, err := telnet.Server(context.Background(), conn, logging.GetLogger())
	if err != nil {
		logging.Error("Telnet negotiation failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	logging.Info("Terminal connected",
		zap.String("remote_addr", remoteAddr),
		zap.String("terminal_type", tc.TerminalType()),
		zap.Stringer("model", tc.Dimensions()),
	)

	app, err := newApp(tc, s.cp, s.monitor)
	if err != nil {
		logging.Error("Failed to start application",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	if err := app.run(); err != nil {
		logging.Error("Application error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown gracefully shuts down the host
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down host...")

	if s.announcer != nil {
		s.announcer.Shutdown()
	}

	if s.monitorSrv != nil {
		if err := s.monitorSrv.Shutdown(ctx); err != nil {
			logging.Error("Error stopping screen monitor", zap.Error(err))
		}
	}
	if s.monitor != nil {
		s.monitor.Close()
	}

	// Close listener to stop accepting new connections
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		if err := listener.Close(); err != nil {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	// Close all active connections
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	// Wait for all goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	// Sync logger
	logging.Sync()

	return nil
}

// ActiveConnections returns the number of connected terminals
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Addr returns the listen address, or nil before Start. With a
// configured port of zero this is where the kernel actually bound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
