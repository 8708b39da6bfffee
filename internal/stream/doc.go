// Package stream implements the 3270 data-stream wire protocol: the
// incremental decoder that turns raw host bytes into commands, the
// executor that applies commands to a screen and field table, the
// encoder that serializes modified-field replies, and the builder the
// host side uses to compose outbound streams.
//
// # Inbound shape
//
// Each command is a command-code byte, a write-control byte for
// write-class commands, then a mix of orders and text runs:
//
//	[command_code: 1 byte]
//	(write-class) [write_control: 1 byte]
//	  { [order_code: 1 byte] [order_params: variable]
//	    | [text_byte: 1 byte] }*
//
// Read-class commands and Erase All Unprotected are complete after the
// single command byte. Write Structured Field carries length-prefixed
// records instead of orders.
//
// # Decoding model
//
// The Decoder accumulates fed bytes and parses on demand. A command is
// never split across two results: when the available bytes end in the
// middle of an order's parameters the decoder reports ErrIncomplete and
// consumes nothing, so the caller feeds more data and retries. A command
// whose trailing bytes are a text run is complete at the end of the
// available data; feeding whole telnet records (see internal/telnet)
// keeps that boundary aligned with what the host sent.
//
// Impossible length prefixes put the decoder into resynchronization: it
// skips at most MaxResyncSkip bytes to the next plausible command code
// and reports the skip as a recoverable corruption error.
//
// Addresses inside orders use the simplified linear scheme described in
// internal/display, not the 12/14-bit coded form of real hardware.
//
// Nothing in this package panics on malformed input, and nothing blocks:
// network I/O belongs to the caller.
package stream
