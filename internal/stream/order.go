package stream

import "fmt"

// Order codes that may appear inside a write-class command.
const (
	OrderProgramTab         byte = 0x05
	OrderSetBufferAddress   byte = 0x11
	OrderEraseUnprotected   byte = 0x12
	OrderInsertCursor       byte = 0x13
	OrderStartField         byte = 0x1D
	OrderSetAttribute       byte = 0x28
	OrderStartFieldExtended byte = 0x29
	OrderRepeatToAddress    byte = 0x3C
)

// AttrTypeBasic is the extended attribute type whose value byte carries
// the basic field attribute, as used by Start Field Extended and Set
// Attribute.
const AttrTypeBasic byte = 0xC0

// Order is a single instruction inside a write-class command. The
// concrete types are SetBufferAddress, StartField, StartFieldExtended,
// SetAttribute, InsertCursor, ProgramTab, EraseUnprotectedToAddress,
// RepeatToAddress, and Text.
type Order interface {
	String() string
	isOrder()
}

// isOrderCode reports whether b introduces an order rather than a text
// byte. Text runs end at the next order code.
func isOrderCode(b byte) bool {
	switch b {
	case OrderProgramTab, OrderSetBufferAddress, OrderEraseUnprotected,
		OrderInsertCursor, OrderStartField, OrderSetAttribute,
		OrderStartFieldExtended, OrderRepeatToAddress:
		return true
	}
	return false
}

// SetBufferAddress moves the write position to the encoded address.
type SetBufferAddress struct {
	Hi, Lo byte
}

func (o *SetBufferAddress) isOrder() {}

func (o *SetBufferAddress) String() string {
	return fmt.Sprintf("SBA(0x%02X%02X)", o.Hi, o.Lo)
}

// StartField writes a field attribute at the current position and
// starts a new field there.
type StartField struct {
	Attr byte
}

func (o *StartField) isOrder() {}

func (o *StartField) String() string {
	return fmt.Sprintf("SF(0x%02X)", o.Attr)
}

// AttributePair is one type/value pair in a Start Field Extended order.
type AttributePair struct {
	Type, Value byte
}

// StartFieldExtended starts a field described by a list of attribute
// pairs. Only the basic pair (type 0xC0) affects the screen model;
// other pairs are carried for logging.
type StartFieldExtended struct {
	Pairs []AttributePair
}

func (o *StartFieldExtended) isOrder() {}

func (o *StartFieldExtended) String() string {
	return fmt.Sprintf("SFE(%d pairs)", len(o.Pairs))
}

// BasicAttr returns the value of the basic attribute pair, or false if
// the order carries no basic pair.
func (o *StartFieldExtended) BasicAttr() (byte, bool) {
	for _, p := range o.Pairs {
		if p.Type == AttrTypeBasic {
			return p.Value, true
		}
	}
	return 0, false
}

// SetAttribute changes one character attribute for subsequent text.
// The screen model tracks no character attributes, so execution only
// records it.
type SetAttribute struct {
	Type, Value byte
}

func (o *SetAttribute) isOrder() {}

func (o *SetAttribute) String() string {
	return fmt.Sprintf("SA(0x%02X=0x%02X)", o.Type, o.Value)
}

// InsertCursor places the visible cursor at the current write position.
type InsertCursor struct{}

func (o *InsertCursor) isOrder() {}

func (o *InsertCursor) String() string { return "IC" }

// ProgramTab advances the write position to the start of the next
// field.
type ProgramTab struct{}

func (o *ProgramTab) isOrder() {}

func (o *ProgramTab) String() string { return "PT" }

// EraseUnprotectedToAddress blanks unprotected cells from the current
// write position up to, and not including, the target address.
type EraseUnprotectedToAddress struct {
	Hi, Lo byte
}

func (o *EraseUnprotectedToAddress) isOrder() {}

func (o *EraseUnprotectedToAddress) String() string {
	return fmt.Sprintf("EUA(0x%02X%02X)", o.Hi, o.Lo)
}

// RepeatToAddress fills cells with one character from the current write
// position up to, and not including, the target address.
type RepeatToAddress struct {
	Hi, Lo byte
	Fill   byte
}

func (o *RepeatToAddress) isOrder() {}

func (o *RepeatToAddress) String() string {
	return fmt.Sprintf("RA(0x%02X%02X fill=0x%02X)", o.Hi, o.Lo, o.Fill)
}

// Text is a run of character bytes in the host codepage.
type Text struct {
	Bytes []byte
}

func (o *Text) isOrder() {}

func (o *Text) String() string {
	return fmt.Sprintf("Text(%d bytes)", len(o.Bytes))
}

// OrderName returns a short name for an order code, for logging.
func OrderName(code byte) string {
	switch code {
	case OrderProgramTab:
		return "Program Tab"
	case OrderSetBufferAddress:
		return "Set Buffer Address"
	case OrderEraseUnprotected:
		return "Erase Unprotected to Address"
	case OrderInsertCursor:
		return "Insert Cursor"
	case OrderStartField:
		return "Start Field"
	case OrderSetAttribute:
		return "Set Attribute"
	case OrderStartFieldExtended:
		return "Start Field Extended"
	case OrderRepeatToAddress:
		return "Repeat to Address"
	default:
		return fmt.Sprintf("Order(0x%02X)", code)
	}
}
