// Package display holds the terminal-side state the 3270 data stream
// mutates: a fixed character grid with per-cell protection, a cursor, and
// the ordered table of fields overlaid on the grid.
//
// Positions are linear offsets into the grid (0 at top-left, row-major),
// validated against the grid dimensions at construction. The wire address
// codec in this package uses the simplified 16-bit linear scheme
// (offset = hi<<8 | lo); real 3270 hardware uses a 12/14-bit coded form,
// so streams captured from actual mainframes will not decode here.
//
// Nothing in this package is safe for concurrent mutation. A session owns
// its Screen and FieldTable exclusively; see internal/session.
package display
