package display

import (
	"errors"
	"fmt"
	"unicode"
)

// Input routing failures surfaced by SetText.
var (
	ErrProtectedField = errors.New("field is protected")
	ErrNumericOnly    = errors.New("field accepts numeric input only")
	ErrNoInputArea    = errors.New("field has no content cells")
)

// OverlapError reports that defining or growing a field collided with
// another field's range. It is warning-level: the table resolves the
// collision by truncation and stays consistent, so callers log it and
// carry on.
type OverlapError struct {
	Index     int      // field that was truncated
	Start     Position // its start
	NewLength int      // its length after truncation
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("field %d at offset %d truncated to length %d by overlapping field",
		e.Index, e.Start.Offset(), e.NewLength)
}

// FieldTable is the ordered collection of fields on one screen. Order is
// creation order, which the response encoder preserves. All existing
// fields are discarded when an erase-class command runs.
type FieldTable struct {
	fields []Field
}

// NewFieldTable returns an empty table.
func NewFieldTable() *FieldTable {
	return &FieldTable{}
}

// Reset discards every field.
func (t *FieldTable) Reset() {
	t.fields = t.fields[:0]
}

// Count returns the number of fields.
func (t *FieldTable) Count() int { return len(t.fields) }

// Get returns the field at creation index i.
func (t *FieldTable) Get(i int) (Field, bool) {
	if i < 0 || i >= len(t.fields) {
		return Field{}, false
	}
	return t.fields[i], true
}

// Fields returns a copy of the table in creation order.
func (t *FieldTable) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Add appends a field. When the new field's start lands inside an
// existing field's range, the existing field is truncated to end where
// the new one begins and an *OverlapError describes the repair; the add
// itself always succeeds.
func (t *FieldTable) Add(f Field) error {
	var warn error
	for i := range t.fields {
		if t.fields[i].Contains(f.Start) {
			newLen := f.Start.Offset() - t.fields[i].Start.Offset()
			t.fields[i].Length = newLen
			warn = &OverlapError{Index: i, Start: t.fields[i].Start, NewLength: newLen}
		}
	}
	t.fields = append(t.fields, f)
	return warn
}

// Extend grows field i so its range ends at endOffset (exclusive). The
// extension stops at the next field's start; when that cap applies the
// returned *OverlapError names the capped field and the caller should
// treat the field as closed.
func (t *FieldTable) Extend(i int, endOffset int) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("no field at index %d", i)
	}
	f := &t.fields[i]
	desired := endOffset - f.Start.Offset()
	if desired <= f.Length {
		return nil
	}

	// A later field's attribute cell ends this one.
	stop := -1
	for j := range t.fields {
		if j == i {
			continue
		}
		start := t.fields[j].Start.Offset()
		if start > f.Start.Offset() && start < endOffset {
			if stop == -1 || start < stop {
				stop = start
			}
		}
	}
	if stop >= 0 {
		f.Length = stop - f.Start.Offset()
		return &OverlapError{Index: i, Start: f.Start, NewLength: f.Length}
	}

	f.Length = desired
	return nil
}

// At returns the field whose range contains p, with its creation index.
func (t *FieldTable) At(p Position) (Field, int, bool) {
	for i, f := range t.fields {
		if f.Contains(p) {
			return f, i, true
		}
	}
	return Field{}, 0, false
}

// NextAfter returns the field whose start is the lowest offset strictly
// after p, wrapping to the screen's first field when none follows. False
// when the table is empty.
func (t *FieldTable) NextAfter(p Position) (Field, bool) {
	var after, first *Field
	for i := range t.fields {
		f := &t.fields[i]
		if first == nil || f.Start < first.Start {
			first = f
		}
		if f.Start > p && (after == nil || f.Start < after.Start) {
			after = f
		}
	}
	if after != nil {
		return *after, true
	}
	if first != nil {
		return *first, true
	}
	return Field{}, false
}

// Modified returns copies of the fields whose modified flag is set, in
// creation order.
func (t *FieldTable) Modified() []Field {
	var out []Field
	for _, f := range t.fields {
		if f.Modified {
			out = append(out, f)
		}
	}
	return out
}

// SetModified sets or clears one field's modified flag.
func (t *FieldTable) SetModified(i int, modified bool) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("no field at index %d", i)
	}
	t.fields[i].Modified = modified
	return nil
}

// ClearModified clears every field's modified flag, the write-control
// reset-modified side effect.
func (t *FieldTable) ClearModified() {
	for i := range t.fields {
		t.fields[i].Modified = false
	}
}

// SetText replaces field i's content with local input: the text fills the
// content cells left to right, the remainder is blanked, and the field is
// marked modified. Text longer than the field is truncated to fit.
// Protected fields reject input; numeric fields reject non-numeric runes.
func (t *FieldTable) SetText(s *Screen, i int, text string) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("no field at index %d", i)
	}
	f := &t.fields[i]
	if f.Attr.Protected {
		return fmt.Errorf("field %d: %w", i, ErrProtectedField)
	}
	if f.Attr.Numeric {
		for _, r := range text {
			if !isNumericInput(r) {
				return fmt.Errorf("field %d rejects %q: %w", i, r, ErrNumericOnly)
			}
		}
	}
	n := f.ContentLength()
	if n == 0 {
		return fmt.Errorf("field %d: %w", i, ErrNoInputArea)
	}

	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	p := f.ContentStart()
	for j := 0; j < n; j++ {
		ch := Blank
		if j < len(runes) {
			ch = runes[j]
		}
		if err := s.SetCell(p+Position(j), ch, false); err != nil {
			return err
		}
	}
	f.Modified = true
	return nil
}

func isNumericInput(r rune) bool {
	return unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' || r == '+' || r == ' '
}
