package stream

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
)

// maxFieldContent is the largest per-field content a reply can carry,
// fixed by the one-byte length prefix.
const maxFieldContent = 255

// Encoder serializes terminal-to-host replies:
//
//	[0x06] [aid: 1 byte] [cursor: 2 bytes]
//	  { [field addr: 2 bytes] [content len: 1 byte] [content] }*
//
// Field content is re-encoded into the host codepage. Fields appear in
// creation order; a field with no content contributes its address and a
// zero length.
type Encoder struct {
	cp  *ebcdic.Codepage
	log *zap.Logger
}

// NewEncoder creates an encoder. A nil codepage means ebcdic.Default; a
// nil logger disables logging.
func NewEncoder(cp *ebcdic.Codepage, log *zap.Logger) *Encoder {
	if cp == nil {
		cp = ebcdic.Default
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Encoder{cp: cp, log: log}
}

// ReadModified builds the reply to a Read Modified or Read Modified All
// command: only fields whose modified flag is set are included.
func (e *Encoder) ReadModified(aid AID, s *display.Screen, t *display.FieldTable) []byte {
	return e.encode(aid, s, t.Modified())
}

// ReadBuffer builds the reply to a Read Buffer command. The simplified
// reply carries every field, modified or not, in the same shape as a
// Read Modified reply.
func (e *Encoder) ReadBuffer(aid AID, s *display.Screen, t *display.FieldTable) []byte {
	return e.encode(aid, s, t.Fields())
}

func (e *Encoder) encode(aid AID, s *display.Screen, fields []display.Field) []byte {
	out := make([]byte, 0, 4+8*len(fields))
	out = append(out, CmdReadModified, byte(aid))
	hi, lo := display.EncodePosition(s.Cursor())
	out = append(out, hi, lo)

	for _, f := range fields {
		content, subs := e.cp.Encode(f.Content(s))
		if subs > 0 {
			e.log.Warn("substituted unmappable characters in reply",
				zap.Uint16("field", uint16(f.Start)),
				zap.Int("substituted", subs))
		}
		if len(content) > maxFieldContent {
			e.log.Warn("truncated oversized field content in reply",
				zap.Uint16("field", uint16(f.Start)),
				zap.Int("length", len(content)))
			content = content[:maxFieldContent]
		}
		hi, lo := display.EncodePosition(f.Start)
		out = append(out, hi, lo, byte(len(content)))
		out = append(out, content...)
	}
	return out
}

// ResponseField is one field record in a parsed reply.
type ResponseField struct {
	Start   display.Position
	Content string
}

// Response is a parsed terminal reply, the host-side view of what the
// encoder produces.
type Response struct {
	AID    AID
	Cursor display.Position
	Fields []ResponseField
}

func (r *Response) String() string {
	return fmt.Sprintf("%s(cursor=%d fields=%d)", r.AID, r.Cursor.Offset(), len(r.Fields))
}

// Field returns the content of the field starting at the given
// position, or false if the reply carries no such field.
func (r *Response) Field(p display.Position) (string, bool) {
	for _, f := range r.Fields {
		if f.Start == p {
			return f.Content, true
		}
	}
	return "", false
}

// ParseResponse parses a terminal reply against the screen dimensions
// it was produced for. Field content is decoded from the host codepage;
// a nil codepage means ebcdic.Default.
func ParseResponse(data []byte, d display.Dimensions, cp *ebcdic.Codepage) (*Response, error) {
	if cp == nil {
		cp = ebcdic.Default
	}
	if len(data) < 4 {
		return nil, NewResponseError(fmt.Sprintf("reply of %d bytes is shorter than the header", len(data)), nil)
	}
	if data[0] != CmdReadModified {
		return nil, NewResponseError(fmt.Sprintf("reply starts with 0x%02X, not a read reply", data[0]), nil)
	}
	cursor, err := display.DecodeAddress(d, data[2], data[3])
	if err != nil {
		return nil, NewResponseError("reply cursor address", err)
	}

	resp := &Response{AID: AID(data[1]), Cursor: cursor}
	p := 4
	for p < len(data) {
		if p+3 > len(data) {
			return nil, NewResponseError(fmt.Sprintf("field header truncated at offset %d", p), nil)
		}
		start, err := display.DecodeAddress(d, data[p], data[p+1])
		if err != nil {
			return nil, NewResponseError(fmt.Sprintf("field address at offset %d", p), err)
		}
		n := int(data[p+2])
		if p+3+n > len(data) {
			return nil, NewResponseError(fmt.Sprintf("field content truncated at offset %d", p), nil)
		}
		resp.Fields = append(resp.Fields, ResponseField{
			Start:   start,
			Content: cp.Decode(data[p+3 : p+3+n]),
		})
		p += 3 + n
	}
	return resp, nil
}
