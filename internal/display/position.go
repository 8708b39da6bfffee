package display

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds marks positions, addresses, and ranges that fall outside
// the screen grid. Callers classify with errors.Is.
var ErrOutOfBounds = errors.New("position out of bounds")

// Dimensions is a screen size in character cells.
type Dimensions struct {
	Rows int `yaml:"rows" json:"rows"`
	Cols int `yaml:"cols" json:"cols"`
}

// The standard 3278 display geometries.
var (
	Model2 = Dimensions{Rows: 24, Cols: 80}
	Model3 = Dimensions{Rows: 32, Cols: 80}
	Model4 = Dimensions{Rows: 43, Cols: 80}
	Model5 = Dimensions{Rows: 27, Cols: 132}
)

// Cells returns the total cell count, rows times columns.
func (d Dimensions) Cells() int { return d.Rows * d.Cols }

// Valid reports whether the dimensions describe a usable grid whose
// offsets fit the 16-bit wire address.
func (d Dimensions) Valid() bool {
	return d.Rows > 0 && d.Cols > 0 && d.Cells() <= 0x10000
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Rows, d.Cols)
}

// Position is a validated linear offset into a screen grid. Construct
// through NewPosition or PositionAt so the bounds check cannot be skipped.
type Position uint16

// NewPosition validates a linear offset against the grid.
func NewPosition(d Dimensions, offset int) (Position, error) {
	if offset < 0 || offset >= d.Cells() {
		return 0, fmt.Errorf("offset %d outside %s grid (%d cells): %w", offset, d, d.Cells(), ErrOutOfBounds)
	}
	return Position(offset), nil
}

// PositionAt validates a (row, col) pair against the grid.
func PositionAt(d Dimensions, row, col int) (Position, error) {
	if row < 0 || row >= d.Rows || col < 0 || col >= d.Cols {
		return 0, fmt.Errorf("row %d, col %d outside %s grid: %w", row, col, d, ErrOutOfBounds)
	}
	return Position(row*d.Cols + col), nil
}

// Offset returns the linear offset.
func (p Position) Offset() int { return int(p) }

// RowCol splits the position into its row and column on the given grid.
func (p Position) RowCol(d Dimensions) (row, col int) {
	return int(p) / d.Cols, int(p) % d.Cols
}

// In reports whether the position lies on the given grid.
func (p Position) In(d Dimensions) bool {
	return int(p) < d.Cells()
}

// Next returns the following position, wrapping from the last cell back
// to the first.
func (p Position) Next(d Dimensions) Position {
	n := int(p) + 1
	if n >= d.Cells() {
		return 0
	}
	return Position(n)
}
