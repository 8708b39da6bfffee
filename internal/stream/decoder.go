package stream

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	// MaxResyncSkip bounds how many bytes the decoder discards while
	// searching for the next command code after corruption.
	MaxResyncSkip = 64

	// maxStructuredFieldLen rejects structured-field records whose
	// length prefix is implausible for a terminal data stream.
	maxStructuredFieldLen = 4096

	// maxExtendedPairs rejects start-field-extended counts no real host
	// would send.
	maxExtendedPairs = 32

	// compactThreshold is how many consumed bytes may pile up before
	// Feed shifts the unconsumed tail to the front of the buffer.
	compactThreshold = 4096
)

// Decoder incrementally parses a 3270 data stream. Bytes arrive through
// Feed in arbitrary chunks; Next returns one command at a time and
// reports ErrIncomplete when the buffered bytes end mid-command.
//
// A write-class command with no explicit terminator is considered
// complete at the end of the buffered data, so callers should feed
// whole records as framed by the transport.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	log *zap.Logger
	buf []byte
	pos int
	// base is the absolute stream offset of buf[0], kept so error
	// offsets stay meaningful across compaction.
	base int
}

// NewDecoder creates a decoder. A nil logger disables logging.
func NewDecoder(log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{log: log}
}

// Feed appends raw bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	if d.pos == len(d.buf) {
		if d.pos > 0 {
			d.base += d.pos
			d.buf = d.buf[:0]
			d.pos = 0
		}
	} else if d.pos > compactThreshold {
		d.base += d.pos
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.pos = 0
	}
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of unconsumed bytes.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.pos
}

// Offset returns the absolute stream offset of the next unconsumed
// byte, counted from decoder creation.
func (d *Decoder) Offset() int {
	return d.base + d.pos
}

// Reset discards all buffered bytes and restarts the offset count.
// Sessions call it when a connection is replaced.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.pos = 0
	d.base = 0
}

// Next parses and consumes the next command.
//
// It returns ErrIncomplete, consuming nothing, when the buffer ends in
// the middle of a command. It returns an invalid-command error,
// consuming one byte, for an unknown command code; the code is carried
// in the error. It returns a corruption error, consuming the skipped
// bytes, after resynchronizing past an impossible length or count.
// Invalid-command and corruption errors are recoverable: call Next
// again to continue with the remaining data.
func (d *Decoder) Next() (Command, error) {
	if d.pos >= len(d.buf) {
		return nil, ErrIncomplete
	}
	code := d.buf[d.pos]
	switch {
	case IsWriteClass(code):
		return d.parseWrite(code)
	case IsReadClass(code):
		d.pos++
		cmd := &ReadCommand{Op: code}
		d.log.Debug("decoded command", zap.String("command", cmd.String()))
		return cmd, nil
	case code == CmdEraseAllUnprotected:
		d.pos++
		cmd := &EraseAllUnprotectedCommand{}
		d.log.Debug("decoded command", zap.String("command", cmd.String()))
		return cmd, nil
	case code == CmdWriteStructured || code == CmdWriteStructuredAlt:
		return d.parseStructured(code)
	default:
		off := d.base + d.pos
		d.pos++
		return nil, NewInvalidCommandError(code, off)
	}
}

// parseWrite parses a write-class command starting at d.pos. The
// position only advances once the whole command is parsed, so an
// incomplete tail leaves every byte in place for the next attempt.
func (d *Decoder) parseWrite(code byte) (Command, error) {
	p := d.pos + 1
	if p >= len(d.buf) {
		return nil, ErrIncomplete
	}
	wcc := WCC(d.buf[p])
	p++

	var orders []Order
	for p < len(d.buf) {
		b := d.buf[p]
		if !isOrderCode(b) {
			start := p
			for p < len(d.buf) && !isOrderCode(d.buf[p]) {
				p++
			}
			orders = append(orders, &Text{Bytes: append([]byte(nil), d.buf[start:p]...)})
			continue
		}
		switch b {
		case OrderSetBufferAddress:
			if p+3 > len(d.buf) {
				return nil, ErrIncomplete
			}
			orders = append(orders, &SetBufferAddress{Hi: d.buf[p+1], Lo: d.buf[p+2]})
			p += 3
		case OrderEraseUnprotected:
			if p+3 > len(d.buf) {
				return nil, ErrIncomplete
			}
			orders = append(orders, &EraseUnprotectedToAddress{Hi: d.buf[p+1], Lo: d.buf[p+2]})
			p += 3
		case OrderStartField:
			if p+2 > len(d.buf) {
				return nil, ErrIncomplete
			}
			orders = append(orders, &StartField{Attr: d.buf[p+1]})
			p += 2
		case OrderStartFieldExtended:
			if p+2 > len(d.buf) {
				return nil, ErrIncomplete
			}
			count := int(d.buf[p+1])
			if count > maxExtendedPairs {
				return d.resync(fmt.Sprintf("start field extended claims %d attribute pairs", count))
			}
			need := 2 + 2*count
			if p+need > len(d.buf) {
				return nil, ErrIncomplete
			}
			pairs := make([]AttributePair, 0, count)
			for i := 0; i < count; i++ {
				pairs = append(pairs, AttributePair{Type: d.buf[p+2+2*i], Value: d.buf[p+3+2*i]})
			}
			orders = append(orders, &StartFieldExtended{Pairs: pairs})
			p += need
		case OrderSetAttribute:
			if p+3 > len(d.buf) {
				return nil, ErrIncomplete
			}
			orders = append(orders, &SetAttribute{Type: d.buf[p+1], Value: d.buf[p+2]})
			p += 3
		case OrderInsertCursor:
			orders = append(orders, &InsertCursor{})
			p++
		case OrderProgramTab:
			orders = append(orders, &ProgramTab{})
			p++
		case OrderRepeatToAddress:
			if p+4 > len(d.buf) {
				return nil, ErrIncomplete
			}
			orders = append(orders, &RepeatToAddress{Hi: d.buf[p+1], Lo: d.buf[p+2], Fill: d.buf[p+3]})
			p += 4
		}
	}

	d.pos = p
	cmd := &WriteCommand{Op: code, WCC: wcc, Orders: orders}
	d.log.Debug("decoded command", zap.String("command", cmd.String()))
	return cmd, nil
}

// parseStructured parses a write-structured-field command: the command
// byte followed by records of the form [length: 2 bytes, big endian,
// counting itself][data]. The record list ends at the end of the
// buffered data.
func (d *Decoder) parseStructured(code byte) (Command, error) {
	p := d.pos + 1
	var records [][]byte
	for p < len(d.buf) {
		if p+2 > len(d.buf) {
			return nil, ErrIncomplete
		}
		length := int(d.buf[p])<<8 | int(d.buf[p+1])
		if length < 3 || length > maxStructuredFieldLen {
			return d.resync(fmt.Sprintf("structured field record length %d", length))
		}
		if p+length > len(d.buf) {
			return nil, ErrIncomplete
		}
		records = append(records, append([]byte(nil), d.buf[p+2:p+length]...))
		p += length
	}

	d.pos = p
	cmd := &StructuredFieldCommand{Op: code, Records: records}
	d.log.Debug("decoded command", zap.String("command", cmd.String()))
	return cmd, nil
}

// resync abandons the command at d.pos and skips forward to the next
// byte that looks like a command code, scanning at most MaxResyncSkip
// bytes past the abandoned command byte.
func (d *Decoder) resync(reason string) (Command, error) {
	start := d.pos
	limit := len(d.buf)
	if m := start + 1 + MaxResyncSkip; limit > m {
		limit = m
	}
	next := start + 1
	for next < limit && !isCommandCode(d.buf[next]) {
		next++
	}
	skipped := next - start
	off := d.base + start
	d.pos = next
	d.log.Warn("resynchronized after stream corruption",
		zap.String("reason", reason),
		zap.Int("offset", off),
		zap.Int("skipped", skipped))
	return nil, NewCorruptionError(reason, skipped, off)
}
