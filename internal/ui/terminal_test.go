package ui

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
	"github.com/muldry/tn3270/internal/session"
	"github.com/muldry/tn3270/internal/stream"
	"github.com/muldry/tn3270/internal/telnet"
)

// pipeSession builds a negotiated session over an in-memory pipe and
// returns the host side so tests can read submitted input.
func pipeSession(t *testing.T) (*session.Session, *telnet.Conn) {
	t.Helper()

	hostSide, termSide := net.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	type negotiated struct {
		conn *telnet.Conn
		err  error
	}
	hostCh := make(chan negotiated, 1)
	go func() {
		conn, err := telnet.Server(ctx, hostSide, nil)
		hostCh <- negotiated{conn: conn, err: err}
	}()

	tc, err := telnet.Client(ctx, termSide, "IBM-3278-2", nil)
	if err != nil {
		t.Fatalf("client negotiation failed: %v", err)
	}

	hr := <-hostCh
	if hr.err != nil {
		t.Fatalf("server negotiation failed: %v", hr.err)
	}

	sess, err := session.NewFromConn(tc, session.Options{})
	if err != nil {
		t.Fatalf("session from conn: %v", err)
	}
	t.Cleanup(func() {
		sess.Close()
		hr.conn.Close()
	})
	return sess, hr.conn
}

// loginScreen builds a record that paints a title, a visible input
// field, and a hidden input field, with the cursor in the visible one.
func loginScreen(t *testing.T) []byte {
	t.Helper()
	dims := display.Model2
	cp := ebcdic.Default

	var orders []stream.Order
	at := func(row, col int) {
		sba, err := stream.BufferAddress(dims, row, col)
		if err != nil {
			t.Fatalf("buffer address (%d,%d): %v", row, col, err)
		}
		orders = append(orders, sba)
	}
	openInput := func(row, col, width int, attr byte) {
		at(row, col)
		hi, lo, err := display.EncodeAddress(dims, row, col+width+1)
		if err != nil {
			t.Fatalf("input end address: %v", err)
		}
		orders = append(orders,
			&stream.StartField{Attr: attr},
			&stream.RepeatToAddress{Hi: hi, Lo: lo, Fill: 0x40},
			&stream.StartField{Attr: display.Attribute{Protected: true}.Byte()},
		)
	}

	bright := display.Attribute{Protected: true, Intensified: true}.Byte()
	label := display.Attribute{Protected: true}.Byte()

	at(0, 10)
	orders = append(orders, &stream.StartField{Attr: bright}, stream.EncodeText(cp, "SIGN ON"))
	at(2, 0)
	orders = append(orders, &stream.StartField{Attr: label}, stream.EncodeText(cp, "USERID"))
	openInput(2, 10, 8, display.Attribute{}.Byte())
	at(4, 0)
	orders = append(orders, &stream.StartField{Attr: label}, stream.EncodeText(cp, "PASSWORD"))
	openInput(4, 10, 8, display.Attribute{Hidden: true}.Byte())
	at(2, 11)
	orders = append(orders, &stream.InsertCursor{})

	record, err := stream.AppendCommand(nil, &stream.WriteCommand{
		Op:     stream.CmdEraseWrite,
		WCC:    stream.WCCKeyboardRestore | stream.WCCResetModified,
		Orders: orders,
	})
	if err != nil {
		t.Fatalf("failed to build login screen: %v", err)
	}
	return record
}

// readyModel wraps an already negotiated session in a terminal model
// sitting in the ready phase.
func readyModel(t *testing.T, sess *session.Session) TerminalModel {
	t.Helper()
	m := NewTerminal(sess.Addr(), session.Options{})
	m.sess = sess
	m.phase = phaseReady
	m.snap = sess.Snapshot()
	m.focus = focusForSnapshot(m.snap)
	return m
}

func press(t *testing.T, m TerminalModel, msg tea.KeyMsg) TerminalModel {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(TerminalModel)
	if !ok {
		t.Fatalf("update returned %T, want TerminalModel", updated)
	}
	return next
}

func typeText(t *testing.T, m TerminalModel, text string) TerminalModel {
	t.Helper()
	for _, r := range text {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func focusedContent(m TerminalModel) string {
	if m.focus < 0 || m.focus >= len(m.snap.Fields) {
		return ""
	}
	return strings.TrimRight(m.snap.Fields[m.focus].Content, " ")
}

func TestFreshScreenFocusesCursorField(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := readyModel(t, sess)
	if m.focus < 0 {
		t.Fatal("no field focused on a screen with two input fields")
	}
	f := m.snap.Fields[m.focus]
	if f.Protected {
		t.Error("focus landed on a protected field")
	}
	if f.Row != 2 || f.Col != 10 {
		t.Errorf("focus at (%d,%d), want the field at (2,10)", f.Row, f.Col)
	}
}

func TestTypingFillsFocusedField(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := typeText(t, readyModel(t, sess), "jdoe")
	if got := focusedContent(m); got != "jdoe" {
		t.Errorf("field content %q, want %q", got, "jdoe")
	}
	if m.snap.CursorRow != 2 || m.snap.CursorCol != 15 {
		t.Errorf("cursor at (%d,%d), want (2,15) after four characters",
			m.snap.CursorRow, m.snap.CursorCol)
	}
	if !m.snap.Fields[m.focus].Modified {
		t.Error("typed field not marked modified")
	}
}

func TestTypingStopsAtFieldCapacity(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := typeText(t, readyModel(t, sess), "abcdefghijkl")
	if got := focusedContent(m); got != "abcdefgh" {
		t.Errorf("field content %q, want the first eight characters", got)
	}
	// The cursor parks on the field's last cell instead of escaping it.
	if m.snap.CursorRow != 2 || m.snap.CursorCol != 18 {
		t.Errorf("cursor at (%d,%d), want (2,18)", m.snap.CursorRow, m.snap.CursorCol)
	}
}

func TestBackspaceErasesTypedInput(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := typeText(t, readyModel(t, sess), "abc")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if got := focusedContent(m); got != "ab" {
		t.Errorf("field content %q after backspace, want %q", got, "ab")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if got := focusedContent(m); got != "" {
		t.Errorf("field content %q after erasing everything, want empty", got)
	}
}

func TestTabCyclesUnprotectedFields(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := readyModel(t, sess)
	first := m.focus

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	f := m.snap.Fields[m.focus]
	if f.Row != 4 || f.Col != 10 {
		t.Errorf("tab moved focus to (%d,%d), want the field at (4,10)", f.Row, f.Col)
	}
	if m.snap.CursorRow != 4 || m.snap.CursorCol != 11 {
		t.Errorf("cursor at (%d,%d), want the field's first content cell (4,11)",
			m.snap.CursorRow, m.snap.CursorCol)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focus != first {
		t.Errorf("shift+tab returned focus %d, want %d", m.focus, first)
	}

	// Two unprotected fields means two tabs wrap around.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != first {
		t.Errorf("focus %d after a full cycle, want %d", m.focus, first)
	}
}

func TestEnterSubmitsModifiedFields(t *testing.T) {
	sess, host := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := typeText(t, readyModel(t, sess), "jdoe")

	type hostRead struct {
		record []byte
		err    error
	}
	readCh := make(chan hostRead, 1)
	go func() {
		record, err := host.ReadRecord()
		readCh <- hostRead{record: record, err: err}
	}()

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	var got hostRead
	select {
	case got = <-readCh:
	case <-time.After(5 * time.Second):
		t.Fatal("host never received the submitted input")
	}
	if got.err != nil {
		t.Fatalf("host read failed: %v", got.err)
	}

	resp, err := stream.ParseResponse(got.record, display.Model2, ebcdic.Default)
	if err != nil {
		t.Fatalf("failed to parse submitted input: %v", err)
	}
	if resp.AID != stream.AIDEnter {
		t.Errorf("submitted AID %s, want Enter", resp.AID)
	}
	start, err := display.PositionAt(display.Model2, 2, 10)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	content, ok := resp.Field(start)
	if !ok {
		t.Fatal("reply carries no field for the typed input")
	}
	if strings.TrimRight(content, " ") != "jdoe" {
		t.Errorf("submitted content %q, want %q", content, "jdoe")
	}

	if !m.snap.KeyboardLocked {
		t.Error("keyboard not locked after submit")
	}
	if !strings.Contains(m.renderStatusLine(), "X SYSTEM") {
		t.Error("status line does not show X SYSTEM while locked")
	}
}

func TestLockedKeyboardRefusesInput(t *testing.T) {
	sess, host := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	go func() {
		// Drain the submit so the pipe write does not block.
		_, _ = host.ReadRecord()
	}()

	m := typeText(t, readyModel(t, sess), "a")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.snap.KeyboardLocked {
		t.Fatal("keyboard should lock after submit")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if m.status != "X SYSTEM" {
		t.Errorf("status %q after typing into a locked keyboard, want X SYSTEM", m.status)
	}
	if got := focusedContent(m); got != "a" {
		t.Errorf("field content %q changed while locked", got)
	}
}

func TestHostUpdateResetsFocusAndBuffer(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := typeText(t, readyModel(t, sess), "stale")

	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process repaint: %v", err)
	}
	updated, _ := m.Update(screenUpdateMsg{snapshot: sess.Snapshot()})
	m = updated.(TerminalModel)

	if m.typed != "" {
		t.Errorf("typed buffer %q survived a host repaint", m.typed)
	}
	if got := focusedContent(m); got != "" {
		t.Errorf("field content %q after repaint, want empty", got)
	}
	f := m.snap.Fields[m.focus]
	if f.Row != 2 || f.Col != 10 {
		t.Errorf("focus at (%d,%d) after repaint, want (2,10)", f.Row, f.Col)
	}
}

func TestRenderGridMasksHiddenFields(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := readyModel(t, sess)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "secret")

	if got := focusedContent(m); got != "secret" {
		t.Fatalf("hidden field content %q, want %q", got, "secret")
	}

	grid := m.renderGrid()
	if strings.Contains(grid, "secret") {
		t.Error("hidden field content leaked into the rendered grid")
	}
	for _, want := range []string{"SIGN ON", "USERID", "PASSWORD"} {
		if !strings.Contains(grid, want) {
			t.Errorf("rendered grid missing %q", want)
		}
	}
}

func TestStatusLineShowsCursorPosition(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := readyModel(t, sess)
	line := m.renderStatusLine()
	if !strings.Contains(line, "003/012") {
		t.Errorf("status line %q missing cursor position 003/012", line)
	}
	if !strings.Contains(line, sess.Addr()) {
		t.Errorf("status line %q missing host address", line)
	}
}

func TestQuitKeyClosesSession(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := readyModel(t, sess)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(TerminalModel)

	if !m.quitting {
		t.Error("ctrl+c did not mark the model as quitting")
	}
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c command is not quit")
	}
	if sess.Connected() {
		t.Error("session still connected after quit")
	}
}

func TestErrSurfacesConnectFailure(t *testing.T) {
	m := NewTerminal("192.0.2.1:23", session.Options{})

	dialErr := errors.New("connection refused")
	updated, _ := m.Update(connectFailedMsg{err: dialErr})
	m = updated.(TerminalModel)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(TerminalModel)

	if !m.quitting {
		t.Fatal("q on the failure screen did not mark the model as quitting")
	}
	if got := m.Err(); !errors.Is(got, dialErr) {
		t.Errorf("Err() = %v, want the dial error", got)
	}
}

func TestErrNilAfterUserQuit(t *testing.T) {
	sess, _ := pipeSession(t)
	if err := sess.ProcessRecord(loginScreen(t)); err != nil {
		t.Fatalf("process login screen: %v", err)
	}

	m := readyModel(t, sess)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(TerminalModel)

	if got := m.Err(); got != nil {
		t.Errorf("Err() = %v after the operator quit, want nil", got)
	}
}

func TestAidForKey(t *testing.T) {
	cases := []struct {
		name string
		msg  tea.KeyMsg
		want stream.AID
		ok   bool
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, stream.AIDEnter, true},
		{"esc is clear", tea.KeyMsg{Type: tea.KeyEsc}, stream.AIDClear, true},
		{"f1", tea.KeyMsg{Type: tea.KeyF1}, stream.AIDPF1, true},
		{"f12", tea.KeyMsg{Type: tea.KeyF12}, stream.AIDPF12, true},
		{"alt+1 is pa1", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}, Alt: true}, stream.AIDPA1, true},
		{"alt+3 is pa3", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}, Alt: true}, stream.AIDPA3, true},
		{"plain rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}, 0, false},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := aidForKey(tc.msg)
			if ok != tc.ok {
				t.Fatalf("aidForKey ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("aidForKey = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestPrevUnprotected(t *testing.T) {
	sn := session.Snapshot{
		Rows: 24, Cols: 80,
		Fields: []session.FieldInfo{
			{Index: 0, Row: 0, Col: 0, Length: 10, Protected: true},
			{Index: 1, Row: 1, Col: 0, Length: 10},
			{Index: 2, Row: 2, Col: 0, Length: 1}, // no room for input
			{Index: 3, Row: 3, Col: 0, Length: 10},
		},
	}

	cases := []struct {
		name string
		from int
		want int
	}{
		{"before first input wraps to last", 1, 3},
		{"skips zero length fields", 3, 1},
		{"negative start finds the last input", -1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := prevUnprotected(sn, tc.from); got != tc.want {
				t.Errorf("prevUnprotected(%d) = %d, want %d", tc.from, got, tc.want)
			}
		})
	}

	if got := prevUnprotected(session.Snapshot{}, -1); got != -1 {
		t.Errorf("prevUnprotected on an empty table = %d, want -1", got)
	}
}

func TestFieldAt(t *testing.T) {
	sn := session.Snapshot{
		Rows: 24, Cols: 80,
		Fields: []session.FieldInfo{
			{Index: 0, Row: 2, Col: 10, Length: 9},
		},
	}

	cases := []struct {
		name     string
		row, col int
		want     int
	}{
		{"attribute cell", 2, 10, 0},
		{"first content cell", 2, 11, 0},
		{"last content cell", 2, 18, 0},
		{"one past the field", 2, 19, -1},
		{"unformatted area", 0, 0, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fieldAt(sn, tc.row, tc.col); got != tc.want {
				t.Errorf("fieldAt(%d,%d) = %d, want %d", tc.row, tc.col, got, tc.want)
			}
		})
	}
}

func TestClassifyCells(t *testing.T) {
	sn := session.Snapshot{
		Rows: 24, Cols: 80,
		Fields: []session.FieldInfo{
			{Row: 0, Col: 0, Length: 5, Protected: true, Intensified: true},
			{Row: 1, Col: 0, Length: 5},
			{Row: 2, Col: 0, Length: 5, Hidden: true},
			{Row: 3, Col: 0, Length: 5, Protected: true},
		},
	}
	classes := classifyCells(sn)

	cases := []struct {
		name     string
		row, col int
		want     cellClass
	}{
		{"intensified content", 0, 2, classIntensified},
		{"input content", 1, 2, classInput},
		{"hidden content", 2, 2, classHidden},
		{"protected content", 3, 2, classProtected},
		{"attribute cell keeps the default look", 1, 0, classNormal},
		{"unformatted cell", 10, 40, classNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classes[tc.row*sn.Cols+tc.col]; got != tc.want {
				t.Errorf("cell (%d,%d) classified %d, want %d", tc.row, tc.col, got, tc.want)
			}
		})
	}
}
