package display

import (
	"fmt"
	"strings"
)

// Blank is the character an erased or never-written cell displays.
const Blank = ' '

// Cell is one character position on the screen. Protected cells reject
// local input; the flag is set by the order executor when the host writes
// inside a protected field (and on every field attribute cell).
type Cell struct {
	Ch        rune
	Protected bool
}

// Screen is the character grid one session displays. It is mutated by the
// order executor on behalf of the host and read by renderers. The cursor
// is the visible input cursor, always in bounds; it moves only through
// SetCursor, never as a side effect of cell writes.
type Screen struct {
	dims   Dimensions
	cells  []Cell
	cursor Position
}

// NewScreen allocates a blank screen. Fails on unusable dimensions.
func NewScreen(d Dimensions) (*Screen, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unusable screen dimensions %s", d)
	}
	s := &Screen{
		dims:  d,
		cells: make([]Cell, d.Cells()),
	}
	s.Clear()
	return s, nil
}

// Dimensions returns the grid size.
func (s *Screen) Dimensions() Dimensions { return s.dims }

// Clear blanks every cell and removes all protection. The cursor stays
// where it was; only the write-control reset-cursor bit moves it.
func (s *Screen) Clear() {
	for i := range s.cells {
		s.cells[i] = Cell{Ch: Blank}
	}
}

// Cell returns the cell at p. Positions from a different grid that fall
// past the end read as blank.
func (s *Screen) Cell(p Position) Cell {
	if int(p) >= len(s.cells) {
		return Cell{Ch: Blank}
	}
	return s.cells[p]
}

// SetCell writes one cell.
func (s *Screen) SetCell(p Position, ch rune, protected bool) error {
	if int(p) >= len(s.cells) {
		return fmt.Errorf("cell %d past %s grid: %w", p.Offset(), s.dims, ErrOutOfBounds)
	}
	s.cells[p] = Cell{Ch: ch, Protected: protected}
	return nil
}

// Cursor returns the visible cursor position.
func (s *Screen) Cursor() Position { return s.cursor }

// SetCursor moves the visible cursor.
func (s *Screen) SetCursor(p Position) error {
	if !p.In(s.dims) {
		return fmt.Errorf("cursor %d past %s grid: %w", p.Offset(), s.dims, ErrOutOfBounds)
	}
	s.cursor = p
	return nil
}

// Row returns the text of one row, padded to the full column width.
func (s *Screen) Row(row int) string {
	if row < 0 || row >= s.dims.Rows {
		return ""
	}
	var sb strings.Builder
	sb.Grow(s.dims.Cols)
	start := row * s.dims.Cols
	for _, c := range s.cells[start : start+s.dims.Cols] {
		sb.WriteRune(c.Ch)
	}
	return sb.String()
}

// String renders the whole grid, one line per row.
func (s *Screen) String() string {
	rows := make([]string, s.dims.Rows)
	for r := range rows {
		rows[r] = s.Row(r)
	}
	return strings.Join(rows, "\n")
}

// WriteText stores text starting at (row, col), advancing linearly. It is
// a positional poke for host-side composition and diagnostics: it ignores
// fields and leaves protection flags alone. Fails without writing when the
// text would run past the last cell.
func (s *Screen) WriteText(row, col int, text string) error {
	p, err := PositionAt(s.dims, row, col)
	if err != nil {
		return err
	}
	runes := []rune(text)
	if p.Offset()+len(runes) > s.dims.Cells() {
		return fmt.Errorf("%d characters at offset %d overrun %s grid: %w",
			len(runes), p.Offset(), s.dims, ErrOutOfBounds)
	}
	for i, r := range runes {
		c := &s.cells[int(p)+i]
		c.Ch = r
	}
	return nil
}

// ReadText returns length characters starting at (row, col), advancing
// linearly. Fails when the range runs past the last cell.
func (s *Screen) ReadText(row, col, length int) (string, error) {
	p, err := PositionAt(s.dims, row, col)
	if err != nil {
		return "", err
	}
	if length < 0 || p.Offset()+length > s.dims.Cells() {
		return "", fmt.Errorf("%d characters at offset %d overrun %s grid: %w",
			length, p.Offset(), s.dims, ErrOutOfBounds)
	}
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteRune(s.cells[int(p)+i].Ch)
	}
	return sb.String(), nil
}
