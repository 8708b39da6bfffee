package stream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
)

// replyRig builds a screen with three fields: "hello" at 10 (modified),
// an empty input at 100 (modified), and an untouched field at 200.
func replyRig(t *testing.T) (*display.Screen, *display.FieldTable) {
	t.Helper()
	s, err := display.NewScreen(display.Model2)
	if err != nil {
		t.Fatalf("NewScreen: %v", err)
	}
	if err := s.SetCursor(11); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}
	tbl := display.NewFieldTable()
	if err := tbl.Add(display.Field{Start: 10, Length: 6}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tbl.SetText(s, 0, "hello"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if err := tbl.Add(display.Field{Start: 100, Length: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tbl.SetModified(1, true); err != nil {
		t.Fatalf("SetModified: %v", err)
	}
	if err := tbl.Add(display.Field{Start: 200, Length: 3}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return s, tbl
}

func TestEncodeReadModified(t *testing.T) {
	s, tbl := replyRig(t)
	enc := NewEncoder(ebcdic.CP037, nil)

	got := enc.ReadModified(AIDEnter, s, tbl)

	want := []byte{
		0x06, 0x7D, 0x00, 0x0B,
		0x00, 0x0A, 0x05, 0x88, 0x85, 0x93, 0x93, 0x96,
		0x00, 0x64, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadModified =\n% X\nwant\n% X", got, want)
	}
}

func TestEncodeReadBufferCarriesAllFields(t *testing.T) {
	s, tbl := replyRig(t)
	enc := NewEncoder(ebcdic.CP037, nil)

	got := enc.ReadBuffer(AIDNone, s, tbl)

	resp, err := ParseResponse(got, display.Model2, ebcdic.CP037)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.AID != AIDNone {
		t.Errorf("AID = %s, want None", resp.AID)
	}
	if len(resp.Fields) != 3 {
		t.Fatalf("fields = %d, want 3 (unmodified included)", len(resp.Fields))
	}
	if content, ok := resp.Field(200); !ok || content != "  " {
		t.Errorf("field 200 = (%q, %v), want two blanks", content, ok)
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	s, tbl := replyRig(t)
	enc := NewEncoder(ebcdic.CP037, nil)

	resp, err := ParseResponse(enc.ReadModified(AIDEnter, s, tbl), display.Model2, ebcdic.CP037)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}

	if resp.AID != AIDEnter {
		t.Errorf("AID = %s, want Enter", resp.AID)
	}
	if resp.Cursor.Offset() != 11 {
		t.Errorf("cursor = %d, want 11", resp.Cursor.Offset())
	}
	if len(resp.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(resp.Fields))
	}
	if resp.Fields[0].Start.Offset() != 10 || resp.Fields[0].Content != "hello" {
		t.Errorf("field 0 = %+v, want 10/%q", resp.Fields[0], "hello")
	}
	if resp.Fields[1].Start.Offset() != 100 || resp.Fields[1].Content != "" {
		t.Errorf("field 1 = %+v, want 100 with empty content", resp.Fields[1])
	}
	if _, ok := resp.Field(999); ok {
		t.Error("Field(999) found a field that was never sent")
	}
}

func TestEncodeTruncatesOversizedContent(t *testing.T) {
	s, err := display.NewScreen(display.Model2)
	if err != nil {
		t.Fatalf("NewScreen: %v", err)
	}
	tbl := display.NewFieldTable()
	if err := tbl.Add(display.Field{Start: 0, Length: 400}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tbl.SetText(s, 0, strings.Repeat("x", 399)); err != nil {
		t.Fatalf("SetText: %v", err)
	}

	enc := NewEncoder(ebcdic.CP037, nil)
	resp, err := ParseResponse(enc.ReadModified(AIDEnter, s, tbl), display.Model2, ebcdic.CP037)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got := len(resp.Fields[0].Content); got != maxFieldContent {
		t.Errorf("content length = %d, want capped at %d", got, maxFieldContent)
	}
}

func TestParseResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"shorter than header", []byte{0x06}},
		{"wrong leading byte", []byte{0x99, 0x7D, 0x00, 0x00}},
		{"cursor out of range", []byte{0x06, 0x7D, 0x07, 0x80}},
		{"field header truncated", []byte{0x06, 0x7D, 0x00, 0x00, 0x00, 0x0A}},
		{"field content truncated", []byte{0x06, 0x7D, 0x00, 0x00, 0x00, 0x0A, 0x05, 0x88}},
		{"field address out of range", []byte{0x06, 0x7D, 0x00, 0x00, 0x07, 0x80, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.data, display.Model2, ebcdic.CP037)
			if !IsMalformedResponse(err) {
				t.Errorf("ParseResponse = %v, want malformed-response error", err)
			}
		})
	}
}
