// Package telnet frames 3270 data streams over a telnet connection.
//
// TN3270 runs telnet in binary mode with end-of-record framing: each
// direction carries raw data-stream bytes, 0xFF doubled, with records
// terminated by IAC EOR. The package negotiates the three options the
// protocol needs (terminal type, end of record, binary) from either
// side of the connection: Client answers a host that drives the
// negotiation, Server drives it.
//
// After negotiation a Conn exposes whole records. Option traffic
// arriving mid-stream, such as a renewed terminal-type request, is
// answered inline without surfacing to the caller.
package telnet
