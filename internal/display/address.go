package display

import "fmt"

// Wire addresses are two bytes carrying a linear offset, high byte first:
//
//	offset = hi<<8 | lo
//	row    = offset / cols
//	col    = offset % cols
//
// This is the simplified scheme described in the package comment, not the
// 12/14-bit coded addressing of real hardware.

// DecodeAddress converts a two-byte wire address to a position on the
// grid. Fails when the offset lands past the last cell.
func DecodeAddress(d Dimensions, hi, lo byte) (Position, error) {
	offset := int(hi)<<8 | int(lo)
	p, err := NewPosition(d, offset)
	if err != nil {
		return 0, fmt.Errorf("wire address %02x%02x: %w", hi, lo, err)
	}
	return p, nil
}

// EncodeAddress converts a (row, col) pair to its two-byte wire address.
// Fails when the row or column is off the grid.
func EncodeAddress(d Dimensions, row, col int) (hi, lo byte, err error) {
	p, err := PositionAt(d, row, col)
	if err != nil {
		return 0, 0, err
	}
	hi, lo = EncodePosition(p)
	return hi, lo, nil
}

// EncodePosition splits an already-validated position into its wire bytes.
func EncodePosition(p Position) (hi, lo byte) {
	return byte(p >> 8), byte(p & 0xFF)
}
