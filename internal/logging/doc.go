// Package logging provides structured logging for the tn3270 tools.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the client and the demo host. It provides both
// general logging functions and specialized functions for protocol-specific
// logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, telnet negotiation, order execution)
//   - Info: Normal operations (connections, records, screen updates)
//   - Warn: Non-fatal issues (stream resynchronization, field overlaps, retries)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Session established",
//	    zap.String("remote_addr", "mainframe.example.com:23"),
//	    zap.String("terminal", "IBM-3278-2"),
//	)
//
// # Specialized Logging
//
// Connection logging:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogConnection(remoteAddr, "negotiation_complete")
//
// Data-stream record logging:
//
//	logging.LogDataStream(remoteAddr, "inbound", record)
//	logging.LogDataStream(remoteAddr, "outbound", reply)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Commands that prefer silent-by-default behavior use InitializeFromEnv,
// which honors the TN3270_LOG_LEVEL environment variable.
//
// # Output Format
//
// Logs are written to stdout in console format (human-readable):
//
//	2026-08-23T10:30:45.123-0800  INFO  Connection event
//	  remote_addr=127.0.0.1:3270
//	  event=connection_accepted
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
//
// The protocol core (internal/stream, internal/display) never calls this
// package directly; those components receive a *zap.Logger value so that no
// protocol state depends on process-global configuration.
package logging
