// Package host implements a demo TN3270 application host.
//
// The host accepts terminal connections over telnet or telnets,
// negotiates the TN3270 option set (terminal type, binary transmission,
// end-of-record framing), and runs a small mainframe-style application
// on each connection: a sign-on panel followed by a system status panel.
// It exists so the client side of this module has a complete peer to
// talk to, both interactively and in tests.
//
// # Application Flow
//
// Each connected terminal is served by its own goroutine:
//  1. Telnet negotiation establishes the terminal model.
//  2. The sign-on panel is painted (Erase/Write).
//  3. Replies are parsed and dispatched by attention key:
//     Enter submits the panel, Clear repaints it, PF3 backs out.
//  4. Any userid and password are accepted; the status panel shows the
//     session details and takes commands (TIME, REFRESH, LOGOFF).
//
// The host applies every outbound command to its own screen mirror
// before sending it, so a malformed panel fails locally instead of on
// the terminal.
//
// # Screen Monitor
//
// When configured with a monitor address, the host serves a WebSocket
// endpoint that broadcasts each terminal's screen as JSON whenever it
// changes. A new subscriber receives the current screen of every
// connected terminal. Hidden input is masked before it reaches the
// monitor.
//
// # Usage Example
//
//	config := &host.Config{
//	    Host:     "",     // Listen on all interfaces
//	    Port:     3270,
//	    LogLevel: "info",
//	}
//
//	srv, err := host.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until shutdown signal or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The host handles SIGINT and SIGTERM:
//  1. Stop announcing via mDNS and stop the monitor.
//  2. Stop accepting new connections.
//  3. Close connected terminals.
//  4. Wait for per-connection goroutines to finish.
//
// # Thread Safety
//
// The host serves any number of terminals concurrently. Each
// application instance owns its screen state and is confined to its
// connection goroutine; the monitor is safe for concurrent publishers
// and subscribers.
package host
