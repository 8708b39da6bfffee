package stream

import (
	"errors"
	"fmt"
)

// ErrIncomplete reports that the decoder ran out of bytes in the middle
// of a command. It is a flow-control signal, not a failure: feed more
// data and call Next again.
var ErrIncomplete = errors.New("incomplete command: need more data")

// ErrorKind categorizes protocol errors.
type ErrorKind int

const (
	// ErrorKindInvalidCommand means a byte in command position is not a
	// known command code. The byte is consumed and carried in Code.
	ErrorKindInvalidCommand ErrorKind = iota
	// ErrorKindStreamCorruption means an impossible length or count was
	// found mid-command and the decoder resynchronized by skipping bytes.
	ErrorKindStreamCorruption
	// ErrorKindAddressOutOfBounds means an order referenced a buffer
	// address outside the screen dimensions.
	ErrorKindAddressOutOfBounds
	// ErrorKindBufferOverrun means a text or repeat write ran past the
	// end of the buffer.
	ErrorKindBufferOverrun
	// ErrorKindResponseMalformed means an inbound terminal reply could
	// not be parsed.
	ErrorKindResponseMalformed
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInvalidCommand:
		return "invalid command"
	case ErrorKindStreamCorruption:
		return "stream corruption"
	case ErrorKindAddressOutOfBounds:
		return "address out of bounds"
	case ErrorKindBufferOverrun:
		return "buffer overrun"
	case ErrorKindResponseMalformed:
		return "response malformed"
	default:
		return "unknown"
	}
}

// ProtocolError is a classified 3270 protocol error.
type ProtocolError struct {
	Kind    ErrorKind
	Message string
	// Code holds the offending command code for invalid-command errors.
	Code byte
	// Skipped holds the number of bytes discarded while resynchronizing
	// after corruption.
	Skipped int
	// Offset is the absolute stream offset where the problem was found,
	// when known.
	Offset int
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewInvalidCommandError creates an invalid-command error carrying the
// raw command code.
func NewInvalidCommandError(code byte, offset int) *ProtocolError {
	return &ProtocolError{
		Kind:    ErrorKindInvalidCommand,
		Message: fmt.Sprintf("invalid command code 0x%02X at offset %d", code, offset),
		Code:    code,
		Offset:  offset,
	}
}

// NewCorruptionError creates a stream-corruption error recording how
// many bytes were skipped during resynchronization.
func NewCorruptionError(message string, skipped, offset int) *ProtocolError {
	return &ProtocolError{
		Kind:    ErrorKindStreamCorruption,
		Message: fmt.Sprintf("%s at offset %d (skipped %d bytes)", message, offset, skipped),
		Skipped: skipped,
		Offset:  offset,
	}
}

// NewAddressError creates an address-out-of-bounds error.
func NewAddressError(message string, err error) *ProtocolError {
	return &ProtocolError{
		Kind:    ErrorKindAddressOutOfBounds,
		Message: message,
		Err:     err,
	}
}

// NewOverrunError creates a buffer-overrun error.
func NewOverrunError(message string) *ProtocolError {
	return &ProtocolError{
		Kind:    ErrorKindBufferOverrun,
		Message: message,
	}
}

// NewResponseError creates a malformed-response error.
func NewResponseError(message string, err error) *ProtocolError {
	return &ProtocolError{
		Kind:    ErrorKindResponseMalformed,
		Message: message,
		Err:     err,
	}
}

// IsIncomplete checks if an error is the need-more-data signal.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncomplete)
}

// IsInvalidCommand checks if an error is an invalid-command error.
func IsInvalidCommand(err error) bool {
	return hasKind(err, ErrorKindInvalidCommand)
}

// IsCorruption checks if an error is a stream-corruption error.
func IsCorruption(err error) bool {
	return hasKind(err, ErrorKindStreamCorruption)
}

// IsAddressOutOfBounds checks if an error is an address error.
func IsAddressOutOfBounds(err error) bool {
	return hasKind(err, ErrorKindAddressOutOfBounds)
}

// IsBufferOverrun checks if an error is a buffer-overrun error.
func IsBufferOverrun(err error) bool {
	return hasKind(err, ErrorKindBufferOverrun)
}

// IsMalformedResponse checks if an error is a malformed-response error.
func IsMalformedResponse(err error) bool {
	return hasKind(err, ErrorKindResponseMalformed)
}

// InvalidCommandCode extracts the raw command code from an
// invalid-command error.
func InvalidCommandCode(err error) (byte, bool) {
	var perr *ProtocolError
	if errors.As(err, &perr) && perr.Kind == ErrorKindInvalidCommand {
		return perr.Code, true
	}
	return 0, false
}

func hasKind(err error, kind ErrorKind) bool {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Kind == kind
	}
	return false
}
