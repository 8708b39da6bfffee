package session

import (
	"strings"

	"github.com/muldry/tn3270/internal/display"
)

// FieldInfo describes one field in a snapshot. Row and Col locate the
// attribute cell; the content starts one cell later.
type FieldInfo struct {
	Index       int    `json:"index"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	Length      int    `json:"length"`
	Protected   bool   `json:"protected"`
	Numeric     bool   `json:"numeric"`
	Hidden      bool   `json:"hidden"`
	Intensified bool   `json:"intensified"`
	Modified    bool   `json:"modified"`
	Content     string `json:"content"`
}

// Snapshot is a value copy of the session's visible state, safe to
// hand to renderers and to serialize for monitoring.
type Snapshot struct {
	ID             string      `json:"id"`
	Addr           string      `json:"addr"`
	Connected      bool        `json:"connected"`
	KeyboardLocked bool        `json:"keyboard_locked"`
	Rows           int         `json:"rows"`
	Cols           int         `json:"cols"`
	CursorRow      int         `json:"cursor_row"`
	CursorCol      int         `json:"cursor_col"`
	Lines          []string    `json:"lines"`
	Fields         []FieldInfo `json:"fields"`
}

// String renders the screen text, one line per row.
func (sn Snapshot) String() string {
	return strings.Join(sn.Lines, "\n")
}

// Snapshot returns a copy of the current screen state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Addr:      s.addr,
		Connected: s.conn != nil && !s.closed,
	}
	if s.screen == nil {
		return snap
	}

	dims := s.screen.Dimensions()
	snap.KeyboardLocked = s.locked
	snap.Rows = dims.Rows
	snap.Cols = dims.Cols
	snap.CursorRow, snap.CursorCol = s.screen.Cursor().RowCol(dims)
	snap.Lines = make([]string, dims.Rows)
	for r := 0; r < dims.Rows; r++ {
		snap.Lines[r] = s.screen.Row(r)
	}
	snap.Fields = make([]FieldInfo, 0, s.fields.Count())
	for i, f := range s.fields.Fields() {
		row, col := f.Start.RowCol(dims)
		snap.Fields = append(snap.Fields, FieldInfo{
			Index:       i,
			Row:         row,
			Col:         col,
			Length:      f.Length,
			Protected:   f.Attr.Protected,
			Numeric:     f.Attr.Numeric,
			Hidden:      f.Attr.Hidden,
			Intensified: f.Attr.Intensified,
			Modified:    f.Modified,
			Content:     f.Content(s.screen),
		})
	}
	return snap
}

// NextUnprotected returns the index of the first unprotected field with
// room for input strictly after the field at index from, wrapping past
// the end of the table. It returns -1 when no field qualifies. A from
// of -1 starts the search at the beginning.
func (sn Snapshot) NextUnprotected(from int) int {
	n := len(sn.Fields)
	if n == 0 {
		return -1
	}
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		f := sn.Fields[i]
		if !f.Protected && f.Length > 1 {
			return i
		}
	}
	return -1
}

// FieldContentPosition returns the row and column of field i's first
// content cell.
func (sn Snapshot) FieldContentPosition(i int) (row, col int, ok bool) {
	if i < 0 || i >= len(sn.Fields) {
		return 0, 0, false
	}
	f := sn.Fields[i]
	d := display.Dimensions{Rows: sn.Rows, Cols: sn.Cols}
	p := display.Position(f.Row*sn.Cols + f.Col).Next(d)
	row, col = p.RowCol(d)
	return row, col, true
}
