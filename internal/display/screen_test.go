package display

import (
	"errors"
	"strings"
	"testing"
)

func TestNewScreen(t *testing.T) {
	s, err := NewScreen(Model2)
	if err != nil {
		t.Fatalf("NewScreen(Model2) error = %v", err)
	}
	if s.Cursor() != 0 {
		t.Errorf("new screen cursor = %d, want 0", s.Cursor().Offset())
	}
	for i := 0; i < Model2.Cells(); i++ {
		c := s.Cell(Position(i))
		if c.Ch != Blank || c.Protected {
			t.Fatalf("cell %d = %+v, want blank unprotected", i, c)
		}
	}

	if _, err := NewScreen(Dimensions{Rows: 0, Cols: 80}); err == nil {
		t.Error("NewScreen with zero rows: expected error")
	}
	if _, err := NewScreen(Dimensions{Rows: 1000, Cols: 1000}); err == nil {
		t.Error("NewScreen past 16-bit addressing: expected error")
	}
}

func TestClearPreservesCursor(t *testing.T) {
	s, err := NewScreen(Model2)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetCell(42, 'X', true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCursor(Position(100)); err != nil {
		t.Fatal(err)
	}

	s.Clear()

	if c := s.Cell(42); c.Ch != Blank || c.Protected {
		t.Errorf("cell after clear = %+v, want blank unprotected", c)
	}
	if s.Cursor().Offset() != 100 {
		t.Errorf("cursor after clear = %d, want 100", s.Cursor().Offset())
	}
}

func TestSetCursorBounds(t *testing.T) {
	s, err := NewScreen(Model2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetCursor(Position(1919)); err != nil {
		t.Errorf("SetCursor(1919) error = %v", err)
	}
	if err := s.SetCursor(Position(1920)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("SetCursor(1920) error = %v, want ErrOutOfBounds", err)
	}
}

func TestWriteReadText(t *testing.T) {
	s, err := NewScreen(Model2)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.WriteText(5, 10, "HELLO"); err != nil {
		t.Fatalf("WriteText error = %v", err)
	}
	got, err := s.ReadText(5, 10, 5)
	if err != nil {
		t.Fatalf("ReadText error = %v", err)
	}
	if got != "HELLO" {
		t.Errorf("ReadText = %q, want %q", got, "HELLO")
	}

	// Writes continue onto the next row but never past the last cell.
	if err := s.WriteText(23, 78, "AB"); err != nil {
		t.Errorf("WriteText at end of grid error = %v", err)
	}
	if err := s.WriteText(23, 78, "ABC"); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("WriteText past grid error = %v, want ErrOutOfBounds", err)
	}

	if _, err := s.ReadText(23, 78, 3); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReadText past grid error = %v, want ErrOutOfBounds", err)
	}
}

func TestScreenString(t *testing.T) {
	s, err := NewScreen(Model2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteText(0, 0, "TOP"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteText(23, 77, "END"); err != nil {
		t.Fatal(err)
	}

	out := s.String()
	lines := strings.Split(out, "\n")
	if len(lines) != 24 {
		t.Fatalf("String() has %d lines, want 24", len(lines))
	}
	for i, line := range lines {
		if len([]rune(line)) != 80 {
			t.Fatalf("line %d has %d characters, want 80", i, len([]rune(line)))
		}
	}
	if !strings.HasPrefix(lines[0], "TOP") {
		t.Errorf("first line = %q, want prefix TOP", lines[0])
	}
	if !strings.HasSuffix(lines[23], "END") {
		t.Errorf("last line = %q, want suffix END", lines[23])
	}
}
