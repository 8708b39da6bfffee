package stream

import "fmt"

// Command codes.
const (
	CmdNoOp                byte = 0x00
	CmdWrite               byte = 0x01
	CmdReadBuffer          byte = 0x02
	CmdEraseWrite          byte = 0x05
	CmdReadModified        byte = 0x06
	CmdReadModifiedAll     byte = 0x07
	CmdEraseWriteAlternate byte = 0x0D
	CmdEraseAllUnprotected byte = 0x0F
	CmdWriteStructured     byte = 0x39
	CmdWriteStructuredAlt  byte = 0xF3
)

// Command is one decoded host command. The concrete types are
// WriteCommand, ReadCommand, EraseAllUnprotectedCommand, and
// StructuredFieldCommand.
type Command interface {
	// Code returns the command code byte.
	Code() byte
	String() string
}

// IsWriteClass reports whether code is Write, Erase/Write, or
// Erase/Write Alternate.
func IsWriteClass(code byte) bool {
	return code == CmdWrite || code == CmdEraseWrite || code == CmdEraseWriteAlternate
}

// IsReadClass reports whether code is one of the read commands.
func IsReadClass(code byte) bool {
	return code == CmdReadBuffer || code == CmdReadModified || code == CmdReadModifiedAll
}

// isCommandCode reports whether b is a parseable command code. The
// no-op byte is excluded: it flows through the invalid-command path so
// callers can decide to ignore it.
func isCommandCode(b byte) bool {
	switch b {
	case CmdWrite, CmdReadBuffer, CmdEraseWrite, CmdReadModified,
		CmdReadModifiedAll, CmdEraseWriteAlternate, CmdEraseAllUnprotected,
		CmdWriteStructured, CmdWriteStructuredAlt:
		return true
	}
	return false
}

// WriteCommand is a write-class command: a write control character
// followed by orders and text runs.
type WriteCommand struct {
	// Op is CmdWrite, CmdEraseWrite, or CmdEraseWriteAlternate.
	Op     byte
	WCC    WCC
	Orders []Order
}

func (c *WriteCommand) Code() byte { return c.Op }

// Erases reports whether the command clears the buffer before its
// orders run.
func (c *WriteCommand) Erases() bool {
	return c.Op == CmdEraseWrite || c.Op == CmdEraseWriteAlternate
}

func (c *WriteCommand) String() string {
	return fmt.Sprintf("%s(wcc=%s orders=%d)", CommandName(c.Op), c.WCC, len(c.Orders))
}

// ReadCommand asks the terminal to transmit buffer contents. It is
// complete after the command byte; the reply is built by the encoder.
type ReadCommand struct {
	// Op is CmdReadBuffer, CmdReadModified, or CmdReadModifiedAll.
	Op byte
}

func (c *ReadCommand) Code() byte { return c.Op }

func (c *ReadCommand) String() string { return CommandName(c.Op) }

// EraseAllUnprotectedCommand blanks every unprotected cell and resets
// all modified-data flags. It carries no write control character.
type EraseAllUnprotectedCommand struct{}

func (c *EraseAllUnprotectedCommand) Code() byte { return CmdEraseAllUnprotected }

func (c *EraseAllUnprotectedCommand) String() string { return CommandName(CmdEraseAllUnprotected) }

// StructuredFieldCommand carries length-prefixed structured-field
// records. Records are kept opaque: the screen model does not interpret
// them.
type StructuredFieldCommand struct {
	// Op is CmdWriteStructured or CmdWriteStructuredAlt.
	Op      byte
	Records [][]byte
}

func (c *StructuredFieldCommand) Code() byte { return c.Op }

func (c *StructuredFieldCommand) String() string {
	return fmt.Sprintf("%s(%d records)", CommandName(c.Op), len(c.Records))
}

// CommandName returns a short name for a command code, for logging.
func CommandName(code byte) string {
	switch code {
	case CmdNoOp:
		return "No-Op"
	case CmdWrite:
		return "Write"
	case CmdReadBuffer:
		return "Read Buffer"
	case CmdEraseWrite:
		return "Erase/Write"
	case CmdReadModified:
		return "Read Modified"
	case CmdReadModifiedAll:
		return "Read Modified All"
	case CmdEraseWriteAlternate:
		return "Erase/Write Alternate"
	case CmdEraseAllUnprotected:
		return "Erase All Unprotected"
	case CmdWriteStructured, CmdWriteStructuredAlt:
		return "Write Structured Field"
	default:
		return fmt.Sprintf("Command(0x%02X)", code)
	}
}
