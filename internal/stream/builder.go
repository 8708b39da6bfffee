package stream

import (
	"fmt"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
)

// AppendCommand serializes cmd onto dst in the wire form the decoder
// parses, and returns the extended slice. It is strict: it refuses
// anything that would not survive a decode round trip, such as text
// bytes that collide with order codes. Encoded EBCDIC text is always
// safe, since printable codepoints sit above the order-code range.
func AppendCommand(dst []byte, cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case *WriteCommand:
		if !IsWriteClass(c.Op) {
			return dst, fmt.Errorf("code 0x%02X is not a write command", c.Op)
		}
		dst = append(dst, c.Op, byte(c.WCC))
		for _, o := range c.Orders {
			var err error
			dst, err = appendOrder(dst, o)
			if err != nil {
				return dst, err
			}
		}
		return dst, nil
	case *ReadCommand:
		if !IsReadClass(c.Op) {
			return dst, fmt.Errorf("code 0x%02X is not a read command", c.Op)
		}
		return append(dst, c.Op), nil
	case *EraseAllUnprotectedCommand:
		return append(dst, CmdEraseAllUnprotected), nil
	case *StructuredFieldCommand:
		if c.Op != CmdWriteStructured && c.Op != CmdWriteStructuredAlt {
			return dst, fmt.Errorf("code 0x%02X is not a structured field command", c.Op)
		}
		dst = append(dst, c.Op)
		for i, rec := range c.Records {
			length := len(rec) + 2
			if len(rec) == 0 || length > maxStructuredFieldLen {
				return dst, fmt.Errorf("structured field record %d has unencodable length %d", i, len(rec))
			}
			dst = append(dst, byte(length>>8), byte(length))
			dst = append(dst, rec...)
		}
		return dst, nil
	case nil:
		return dst, fmt.Errorf("nil command")
	default:
		return dst, fmt.Errorf("unknown command type %T", cmd)
	}
}

func appendOrder(dst []byte, o Order) ([]byte, error) {
	switch o := o.(type) {
	case *SetBufferAddress:
		return append(dst, OrderSetBufferAddress, o.Hi, o.Lo), nil
	case *StartField:
		return append(dst, OrderStartField, o.Attr), nil
	case *StartFieldExtended:
		if len(o.Pairs) > maxExtendedPairs {
			return dst, fmt.Errorf("start field extended with %d pairs", len(o.Pairs))
		}
		dst = append(dst, OrderStartFieldExtended, byte(len(o.Pairs)))
		for _, p := range o.Pairs {
			dst = append(dst, p.Type, p.Value)
		}
		return dst, nil
	case *SetAttribute:
		return append(dst, OrderSetAttribute, o.Type, o.Value), nil
	case *InsertCursor:
		return append(dst, OrderInsertCursor), nil
	case *ProgramTab:
		return append(dst, OrderProgramTab), nil
	case *EraseUnprotectedToAddress:
		return append(dst, OrderEraseUnprotected, o.Hi, o.Lo), nil
	case *RepeatToAddress:
		return append(dst, OrderRepeatToAddress, o.Hi, o.Lo, o.Fill), nil
	case *Text:
		if len(o.Bytes) == 0 {
			return dst, nil
		}
		for _, b := range o.Bytes {
			if isOrderCode(b) {
				return dst, fmt.Errorf("text byte 0x%02X collides with order code %s", b, OrderName(b))
			}
		}
		return append(dst, o.Bytes...), nil
	case nil:
		return dst, fmt.Errorf("nil order")
	default:
		return dst, fmt.Errorf("unknown order type %T", o)
	}
}

// BufferAddress builds a set-buffer-address order for a row and column.
func BufferAddress(d display.Dimensions, row, col int) (*SetBufferAddress, error) {
	hi, lo, err := display.EncodeAddress(d, row, col)
	if err != nil {
		return nil, err
	}
	return &SetBufferAddress{Hi: hi, Lo: lo}, nil
}

// EncodeText builds a text run from a string, encoded into the host
// codepage. Unmappable characters become the substitute byte.
func EncodeText(cp *ebcdic.Codepage, s string) *Text {
	if cp == nil {
		cp = ebcdic.Default
	}
	encoded, _ := cp.Encode(s)
	return &Text{Bytes: encoded}
}
