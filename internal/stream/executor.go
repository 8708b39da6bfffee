package stream

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
)

// Executor applies decoded commands to a screen and its field table.
// One executor serves one terminal size and codepage; it keeps no state
// between commands, so the same executor may serve several screens.
type Executor struct {
	dims display.Dimensions
	cp   *ebcdic.Codepage
	log  *zap.Logger
}

// NewExecutor creates an executor for the given screen dimensions. A
// nil codepage means ebcdic.Default; a nil logger disables logging.
func NewExecutor(dims display.Dimensions, cp *ebcdic.Codepage, log *zap.Logger) *Executor {
	if cp == nil {
		cp = ebcdic.Default
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{dims: dims, cp: cp, log: log}
}

// Apply executes one command against the screen and field table.
//
// Read-class and structured-field commands change nothing here; the
// caller is responsible for transmitting the reply a read command asks
// for. Execution errors leave all changes made so far in place: the
// stream is a sequence of effects, not a transaction.
func (e *Executor) Apply(cmd Command, s *display.Screen, t *display.FieldTable) error {
	if cmd == nil {
		return nil
	}
	e.log.Debug("applying command", zap.String("command", cmd.String()))
	switch c := cmd.(type) {
	case *WriteCommand:
		return e.applyWrite(c, s, t)
	case *EraseAllUnprotectedCommand:
		e.eraseUnprotected(s)
		t.ClearModified()
		return nil
	case *ReadCommand:
		return nil
	case *StructuredFieldCommand:
		e.log.Debug("ignoring structured field records", zap.Int("records", len(c.Records)))
		return nil
	default:
		e.log.Warn("unhandled command type", zap.String("command", cmd.String()))
		return nil
	}
}

// applyWrite runs a write-class command: optional erase, then each
// order in sequence, then the write control character's side effects.
//
// The write position is tracked separately from the visible cursor. It
// starts at zero after an erase and at the cursor otherwise, and only
// Insert Cursor and the reset-cursor WCC bit move the cursor itself.
func (e *Executor) applyWrite(c *WriteCommand, s *display.Screen, t *display.FieldTable) error {
	cells := e.dims.Cells()
	wp := s.Cursor().Offset()
	if c.Erases() {
		s.Clear()
		t.Reset()
		wp = 0
	}

	// openIdx tracks the field begun by the most recent start-field
	// order; text written after it extends that field until the next
	// start-field order, a capped extension, or the end of the command.
	openIdx := -1
	openStart := 0
	openProt := false

	for _, o := range c.Orders {
		switch o := o.(type) {
		case *SetBufferAddress:
			p, err := display.DecodeAddress(e.dims, o.Hi, o.Lo)
			if err != nil {
				return NewAddressError(fmt.Sprintf("set buffer address 0x%02X%02X", o.Hi, o.Lo), err)
			}
			wp = p.Offset()

		case *StartField:
			attr := display.ParseAttribute(o.Attr)
			idx, err := e.startField(s, t, wp, attr, cells)
			if err != nil {
				return err
			}
			openIdx, openStart, openProt = idx, wp, attr.Protected
			wp++

		case *StartFieldExtended:
			raw, ok := o.BasicAttr()
			if !ok {
				raw = 0
			}
			if extra := len(o.Pairs); extra > 1 || (extra == 1 && !ok) {
				e.log.Debug("ignoring extended attribute pairs", zap.Int("pairs", extra))
			}
			attr := display.ParseAttribute(raw)
			idx, err := e.startField(s, t, wp, attr, cells)
			if err != nil {
				return err
			}
			openIdx, openStart, openProt = idx, wp, attr.Protected
			wp++

		case *SetAttribute:
			e.log.Debug("ignoring set attribute", zap.String("order", o.String()))

		case *Text:
			for _, raw := range o.Bytes {
				if wp >= cells {
					return NewOverrunError(fmt.Sprintf("text run past end of %d-cell buffer", cells))
				}
				prot := e.protectionAt(t, wp, openIdx, openStart, openProt)
				if err := s.SetCell(display.Position(wp), e.cp.DecodeByte(raw), prot); err != nil {
					return NewOverrunError(err.Error())
				}
				wp++
				openIdx = e.extendOpen(t, openIdx, wp)
			}

		case *InsertCursor:
			if wp >= cells {
				return NewAddressError(fmt.Sprintf("insert cursor at offset %d", wp), display.ErrOutOfBounds)
			}
			if err := s.SetCursor(display.Position(wp)); err != nil {
				return NewAddressError(fmt.Sprintf("insert cursor at offset %d", wp), err)
			}

		case *ProgramTab:
			from := wp
			if from >= cells {
				from = cells - 1
			}
			if f, ok := t.NextAfter(display.Position(from)); ok {
				wp = f.Start.Offset()
			} else {
				wp = 0
			}

		case *EraseUnprotectedToAddress:
			target, err := display.DecodeAddress(e.dims, o.Hi, o.Lo)
			if err != nil {
				return NewAddressError(fmt.Sprintf("erase unprotected to 0x%02X%02X", o.Hi, o.Lo), err)
			}
			stop := target.Offset()
			for p := wp % cells; p != stop; p = (p + 1) % cells {
				if cell := s.Cell(display.Position(p)); !cell.Protected {
					if err := s.SetCell(display.Position(p), display.Blank, false); err != nil {
						return NewOverrunError(err.Error())
					}
				}
			}

		case *RepeatToAddress:
			target, err := display.DecodeAddress(e.dims, o.Hi, o.Lo)
			if err != nil {
				return NewAddressError(fmt.Sprintf("repeat to address 0x%02X%02X", o.Hi, o.Lo), err)
			}
			stop := target.Offset()
			ch := e.cp.DecodeByte(o.Fill)
			for p := wp % cells; p != stop; {
				prot := e.protectionAt(t, p, openIdx, openStart, openProt)
				if err := s.SetCell(display.Position(p), ch, prot); err != nil {
					return NewOverrunError(err.Error())
				}
				p++
				if p == cells {
					// A field cannot span the wrap back to address zero.
					p = 0
					openIdx = -1
				}
				if openIdx >= 0 {
					openIdx = e.extendOpen(t, openIdx, p)
				}
			}
			wp = stop
		}
	}

	if c.WCC.ResetModified() {
		t.ClearModified()
	}
	if c.WCC.ResetCursor() {
		if err := s.SetCursor(0); err != nil {
			return NewAddressError("reset cursor", err)
		}
	}
	if c.WCC.Alarm() {
		e.log.Debug("write control requested alarm")
	}
	return nil
}

// startField writes the attribute cell at wp and registers a
// zero-length field there. Overlap with an existing field truncates the
// older field and is logged, not failed.
func (e *Executor) startField(s *display.Screen, t *display.FieldTable, wp int, attr display.Attribute, cells int) (int, error) {
	if wp >= cells {
		return -1, NewOverrunError(fmt.Sprintf("start field past end of %d-cell buffer", cells))
	}
	if err := s.SetCell(display.Position(wp), display.Blank, true); err != nil {
		return -1, NewOverrunError(err.Error())
	}
	if err := t.Add(display.Field{Start: display.Position(wp), Attr: attr}); err != nil {
		var overlap *display.OverlapError
		if errors.As(err, &overlap) {
			e.log.Warn("start field truncated an existing field",
				zap.Int("field", overlap.Index),
				zap.Uint16("start", uint16(overlap.Start)),
				zap.Int("newLength", overlap.NewLength))
		} else {
			return -1, err
		}
	}
	return t.Count() - 1, nil
}

// extendOpen grows the open field to end at endOffset. A capped
// extension closes the field: the neighbor that caused the cap owns
// the cells beyond it.
func (e *Executor) extendOpen(t *display.FieldTable, openIdx, endOffset int) int {
	if openIdx < 0 {
		return openIdx
	}
	if err := t.Extend(openIdx, endOffset); err != nil {
		var overlap *display.OverlapError
		if errors.As(err, &overlap) {
			e.log.Warn("field extension capped by a later field",
				zap.Int("field", overlap.Index),
				zap.Int("newLength", overlap.NewLength))
		}
		return -1
	}
	return openIdx
}

// protectionAt decides the protection flag recorded with a written
// cell: cells covered by the open field inherit its attribute, other
// cells inherit the attribute of whatever field contains them.
func (e *Executor) protectionAt(t *display.FieldTable, wp, openIdx, openStart int, openProt bool) bool {
	if openIdx >= 0 && wp > openStart {
		return openProt
	}
	if f, _, ok := t.At(display.Position(wp)); ok {
		return f.Attr.Protected
	}
	return false
}

// eraseUnprotected blanks every unprotected cell in place.
func (e *Executor) eraseUnprotected(s *display.Screen) {
	cells := e.dims.Cells()
	for p := 0; p < cells; p++ {
		if cell := s.Cell(display.Position(p)); !cell.Protected {
			// In range, cannot fail.
			_ = s.SetCell(display.Position(p), display.Blank, false)
		}
	}
}
