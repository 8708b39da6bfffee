package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/session"
	"github.com/muldry/tn3270/internal/stream"
)

// connectPacing is how long the connect progress bar takes to fill. It
// paces the animation over a typical worst case dial with retries; the
// bar simply stays full when the host needs longer.
const connectPacing = 10 * time.Second

// phase is the terminal's lifecycle state
type phase int

const (
	phaseConnecting phase = iota
	phaseReady
	phaseFailed
	phaseClosed
)

// Messages for async session events
type connectedMsg struct{}

type connectFailedMsg struct {
	err error
}

type sessionClosedMsg struct {
	err error
}

type screenUpdateMsg struct {
	snapshot session.Snapshot
}

// screenKeyMap defines key bindings while a screen is displayed
type screenKeyMap struct {
	Next  key.Binding
	Prev  key.Binding
	Send  key.Binding
	Clear key.Binding
	PF    key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k screenKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Send, k.Clear, k.PF, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k screenKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Send},
		{k.Clear, k.PF, k.Quit},
	}
}

// connectKeyMap defines key bindings while connecting
type connectKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k connectKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k connectKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit},
	}
}

// endKeyMap defines key bindings on the failed and closed screens
type endKeyMap struct {
	Retry key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k endKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k endKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Retry, k.Quit},
	}
}

// TerminalModel is the interactive terminal emulator screen. It renders
// the session's screen grid, routes typed input into unprotected
// fields, and submits attention keys to the host.
type TerminalModel struct {
	sess    *session.Session
	updates chan session.Snapshot

	phase    phase
	snap     session.Snapshot
	focus    int    // index of the field receiving typed input, -1 when none
	typed    string // local edit buffer for the focused field
	status   string // transient operator information message
	err      error
	quitting bool

	width  int
	height int

	started  time.Time
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     screenKeyMap
	connKeys connectKeyMap
	endKeys  endKeyMap
}

// NewTerminal creates a terminal model that will connect to addr using
// the given session options. Any OnUpdate callback in opts still runs;
// the model chains its own screen refresh behind it.
func NewTerminal(addr string, opts session.Options) TerminalModel {
	updates := make(chan session.Snapshot, 1)
	forward := opts.OnUpdate
	opts.OnUpdate = func(sn session.Snapshot) {
		if forward != nil {
			forward(sn)
		}
		// Coalesce bursts; the renderer only needs the newest state.
		select {
		case updates <- sn:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- sn
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	keys := screenKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down", "right"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up", "left"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		PF: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1-f12", "pf keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}

	connKeys := connectKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}

	endKeys := endKeyMap{
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "enter", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	return TerminalModel{
		sess:     session.New(addr, opts),
		updates:  updates,
		phase:    phaseConnecting,
		focus:    -1,
		started:  time.Now(),
		spinner:  s,
		progress: bar,
		help:     help.New(),
		keys:     keys,
		connKeys: connKeys,
		endKeys:  endKeys,
	}
}

// Session returns the model's underlying session, so callers can close
// it after the program exits.
func (m TerminalModel) Session() *session.Session {
	return m.sess
}

// Err returns the error that ended the terminal: the connection failure
// when no session was ever established, the read error after an
// involuntary disconnect, and nil when the operator quit a working
// session.
func (m TerminalModel) Err() error {
	if m.phase == phaseFailed {
		return m.err
	}
	if m.quitting {
		return nil
	}
	return m.err
}

// Init starts the connection attempt
func (m TerminalModel) Init() tea.Cmd {
	return tea.Batch(m.connectCmd(), m.spinner.Tick)
}

// connectCmd dials the host in the background
func (m TerminalModel) connectCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		if err := sess.Connect(context.Background()); err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{}
	}
}

// runCmd pumps host records until the connection ends
func (m TerminalModel) runCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		return sessionClosedMsg{err: sess.Run(context.Background())}
	}
}

// waitForUpdate delivers the next host-driven screen refresh
func (m TerminalModel) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		return screenUpdateMsg{snapshot: <-ch}
	}
}

// Update handles messages and updates the model
func (m TerminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case connectedMsg:
		m.phase = phaseReady
		m.err = nil
		m.snap = m.sess.Snapshot()
		m.focus = focusForSnapshot(m.snap)
		m.typed = ""
		m.status = ""
		return m, tea.Batch(m.runCmd(), m.waitForUpdate())

	case connectFailedMsg:
		m.phase = phaseFailed
		m.err = msg.err
		return m, nil

	case sessionClosedMsg:
		if m.quitting {
			return m, tea.Quit
		}
		m.phase = phaseClosed
		m.err = msg.err
		return m, nil

	case screenUpdateMsg:
		if m.phase != phaseReady {
			return m, m.waitForUpdate()
		}
		// A host write invalidates any input in progress.
		m.snap = msg.snapshot
		m.focus = focusForSnapshot(m.snap)
		m.typed = ""
		m.status = ""
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		if m.phase != phaseConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey routes keyboard input by lifecycle phase
func (m TerminalModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.phase {
	case phaseReady:
		return m.handleScreenKey(msg)

	case phaseFailed, phaseClosed:
		switch {
		case key.Matches(msg, m.endKeys.Retry):
			m.phase = phaseConnecting
			m.err = nil
			m.started = time.Now()
			return m, tea.Batch(m.connectCmd(), m.spinner.Tick)
		case key.Matches(msg, m.endKeys.Quit):
			return m.quit()
		}
	}

	return m, nil
}

// quit closes the session and ends the program
func (m TerminalModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	_ = m.sess.Close()
	return m, tea.Quit
}

// handleScreenKey handles keyboard input while a screen is displayed
func (m TerminalModel) handleScreenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Next):
		return m.focusMove(1)
	case key.Matches(msg, m.keys.Prev):
		return m.focusMove(-1)
	}

	if aid, ok := aidForKey(msg); ok {
		return m.submit(aid)
	}

	switch msg.Type {
	case tea.KeyRunes:
		if msg.Alt {
			return m, nil
		}
		return m.typeRunes(msg.Runes)
	case tea.KeySpace:
		return m.typeRunes([]rune{' '})
	case tea.KeyBackspace:
		return m.eraseRune()
	}

	return m, nil
}

// aidForKey maps an attention key press to its identifier. Enter and
// Esc carry Enter and Clear, function keys carry PF1-PF12 with the
// shifted set reaching PF24, and Alt-1 through Alt-3 carry PA1-PA3.
func aidForKey(msg tea.KeyMsg) (stream.AID, bool) {
	s := msg.String()
	switch s {
	case "enter":
		return stream.AIDEnter, true
	case "esc":
		return stream.AIDClear, true
	case "alt+1":
		return stream.AIDPA1, true
	case "alt+2":
		return stream.AIDPA2, true
	case "alt+3":
		return stream.AIDPA3, true
	}

	base := 0
	if strings.HasPrefix(s, "shift+f") {
		base = 12
		s = strings.TrimPrefix(s, "shift+")
	}
	if !strings.HasPrefix(s, "f") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "f"))
	if err != nil || n < 1 {
		return 0, false
	}
	if base > 0 && n > 12 {
		return 0, false
	}
	aid, err := stream.PF(base + n)
	if err != nil {
		return 0, false
	}
	return aid, true
}

// focusMove advances the focused field forward or backward through the
// unprotected fields, moving the cursor to the new field's first
// content cell.
func (m TerminalModel) focusMove(dir int) (tea.Model, tea.Cmd) {
	var next int
	if dir >= 0 {
		next = m.snap.NextUnprotected(m.focus)
	} else {
		next = prevUnprotected(m.snap, m.focus)
	}
	if next < 0 {
		return m, nil
	}
	m.focus = next
	m.typed = ""
	m.status = ""
	if row, col, ok := m.snap.FieldContentPosition(next); ok {
		_ = m.sess.MoveCursor(row, col)
		m.snap = m.sess.Snapshot()
	}
	return m, nil
}

// prevUnprotected is NextUnprotected's reverse: the nearest unprotected
// field with room for input strictly before from, wrapping past the
// start of the table.
func prevUnprotected(sn session.Snapshot, from int) int {
	n := len(sn.Fields)
	if n == 0 {
		return -1
	}
	if from < 0 {
		from = n
	}
	for step := 1; step <= n; step++ {
		i := ((from-step)%n + n) % n
		f := sn.Fields[i]
		if !f.Protected && f.Length > 1 {
			return i
		}
	}
	return -1
}

// typeRunes appends printable input to the focused field's buffer,
// stopping at the field's capacity.
func (m TerminalModel) typeRunes(runes []rune) (tea.Model, tea.Cmd) {
	if m.focus < 0 || m.focus >= len(m.snap.Fields) {
		return m, nil
	}
	if m.snap.KeyboardLocked {
		m.status = "X SYSTEM"
		return m, nil
	}
	capacity := m.snap.Fields[m.focus].Length - 1
	typed := m.typed
	for _, r := range runes {
		if utf8.RuneCountInString(typed) >= capacity {
			break
		}
		typed += string(r)
	}
	if typed == m.typed {
		return m, nil
	}
	return m.applyTyped(typed)
}

// eraseRune removes the last typed character
func (m TerminalModel) eraseRune() (tea.Model, tea.Cmd) {
	if m.focus < 0 || m.typed == "" {
		return m, nil
	}
	runes := []rune(m.typed)
	return m.applyTyped(string(runes[:len(runes)-1]))
}

// applyTyped writes the edit buffer into the focused field and tracks
// the cursor behind the last typed character.
func (m TerminalModel) applyTyped(typed string) (tea.Model, tea.Cmd) {
	if err := m.sess.SetFieldText(m.focus, typed); err != nil {
		switch {
		case errors.Is(err, session.ErrKeyboardLocked):
			m.status = "X SYSTEM"
		case errors.Is(err, display.ErrNumericOnly):
			m.status = "X NUM"
		default:
			m.status = err.Error()
		}
		return m, nil
	}
	m.typed = typed
	m.status = ""
	m = m.syncCursor()
	return m, nil
}

// syncCursor places the cursor where the next typed character lands,
// clamped to the focused field's last cell.
func (m TerminalModel) syncCursor() TerminalModel {
	row, col, ok := m.snap.FieldContentPosition(m.focus)
	if !ok {
		return m
	}
	capacity := m.snap.Fields[m.focus].Length - 1
	offset := utf8.RuneCountInString(m.typed)
	if offset > capacity-1 {
		offset = capacity - 1
	}
	pos := (row*m.snap.Cols + col + offset) % (m.snap.Rows * m.snap.Cols)
	_ = m.sess.MoveCursor(pos/m.snap.Cols, pos%m.snap.Cols)
	m.snap = m.sess.Snapshot()
	return m
}

// submit sends the screen's modified fields under the given attention
// identifier.
func (m TerminalModel) submit(aid stream.AID) (tea.Model, tea.Cmd) {
	if err := m.sess.Submit(aid); err != nil {
		switch {
		case errors.Is(err, session.ErrKeyboardLocked):
			m.status = "X SYSTEM"
		case errors.Is(err, session.ErrNotConnected):
			m.status = "NOT CONNECTED"
		default:
			m.status = err.Error()
		}
		return m, nil
	}
	m.typed = ""
	m.status = ""
	m.snap = m.sess.Snapshot()
	return m, nil
}

// focusForSnapshot picks the input field for a fresh screen: the field
// under the host-placed cursor when it accepts input, otherwise the
// first unprotected field.
func focusForSnapshot(sn session.Snapshot) int {
	if i := fieldAt(sn, sn.CursorRow, sn.CursorCol); i >= 0 {
		f := sn.Fields[i]
		if !f.Protected && f.Length > 1 {
			return i
		}
	}
	return sn.NextUnprotected(-1)
}

// fieldAt returns the index of the field containing the given position,
// attribute cell included, or -1 when the position is unformatted.
func fieldAt(sn session.Snapshot, row, col int) int {
	pos := row*sn.Cols + col
	for i, f := range sn.Fields {
		start := f.Row*sn.Cols + f.Col
		if pos >= start && pos < start+f.Length {
			return i
		}
	}
	return -1
}

// View renders the current phase
func (m TerminalModel) View() string {
	switch m.phase {
	case phaseConnecting:
		return m.viewConnecting()
	case phaseReady:
		return m.viewScreen()
	case phaseFailed:
		return m.viewFailed()
	default:
		return m.viewClosed()
	}
}

// viewConnecting renders the dial progress screen
func (m TerminalModel) viewConnecting() string {
	elapsed := time.Since(m.started)
	percent := elapsed.Seconds() / connectPacing.Seconds()
	if percent > 1 {
		percent = 1
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s CONNECTING", m.spinner.View())),
		"",
		SubtitleStyle.Render("Negotiating with "+m.sess.Addr()),
		"",
		m.progress.ViewAs(percent),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
		m.help.View(m.connKeys),
	)
	return m.place(content)
}

// viewScreen renders the emulated screen with its status line
func (m TerminalModel) viewScreen() string {
	header := TitleStyle.Render("tn3270 ") + SubtitleStyle.Render(m.sess.Addr())
	grid := ScreenBoxStyle.Render(m.renderGrid())
	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		grid,
		m.renderStatusLine(),
		m.help.View(m.keys),
	)
	return m.place(content)
}

// viewFailed renders the connect failure screen
func (m TerminalModel) viewFailed() string {
	detail := ""
	if m.err != nil {
		detail = m.err.Error()
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		RenderError("Connection to "+m.sess.Addr()+" failed"),
		"",
		SubtitleStyle.Render(detail),
		"",
		m.help.View(m.endKeys),
	)
	return m.place(content)
}

// viewClosed renders the end-of-session screen
func (m TerminalModel) viewClosed() string {
	notice := "Connection closed by host"
	if m.err != nil && !errors.Is(m.err, io.EOF) {
		notice = fmt.Sprintf("Connection lost: %v", m.err)
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render("DISCONNECTED"),
		"",
		SubtitleStyle.Render(notice),
		"",
		m.help.View(m.endKeys),
	)
	return m.place(content)
}

// place centers content in the terminal when its size is known
func (m TerminalModel) place(content string) string {
	if m.width <= 0 {
		return content
	}
	if m.height <= 0 {
		return lipgloss.Place(m.width, 0, lipgloss.Center, lipgloss.Top, content)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// cellClass selects the style for one screen cell
type cellClass uint8

const (
	classNormal cellClass = iota
	classInput
	classProtected
	classIntensified
	classHidden
)

// cellLook is a cell's resolved appearance, cursor overlay included
type cellLook struct {
	class  cellClass
	cursor bool
}

// classifyCells maps every screen cell to its style class. Attribute
// cells keep the default look so input underlining starts at the
// field's first content cell.
func classifyCells(sn session.Snapshot) []cellClass {
	classes := make([]cellClass, sn.Rows*sn.Cols)
	for _, f := range sn.Fields {
		var class cellClass
		switch {
		case f.Hidden:
			class = classHidden
		case f.Intensified:
			class = classIntensified
		case f.Protected:
			class = classProtected
		default:
			class = classInput
		}
		start := f.Row*sn.Cols + f.Col
		for i := 1; i < f.Length; i++ {
			p := start + i
			if p >= len(classes) {
				break
			}
			classes[p] = class
		}
	}
	return classes
}

// renderGrid renders the screen, one styled line per row
func (m TerminalModel) renderGrid() string {
	sn := m.snap
	if sn.Rows == 0 || sn.Cols == 0 {
		return ""
	}
	classes := classifyCells(sn)
	rows := make([]string, sn.Rows)
	for r := 0; r < sn.Rows; r++ {
		rows[r] = renderGridRow(sn, classes, r)
	}
	return strings.Join(rows, "\n")
}

// renderGridRow styles one row, grouping runs of cells that share a
// look so the output stays compact.
func renderGridRow(sn session.Snapshot, classes []cellClass, r int) string {
	line := []rune(sn.Lines[r])
	for len(line) < sn.Cols {
		line = append(line, ' ')
	}

	look := func(c int) cellLook {
		return cellLook{
			class:  classes[r*sn.Cols+c],
			cursor: r == sn.CursorRow && c == sn.CursorCol,
		}
	}

	var b strings.Builder
	runStart := 0
	runLook := look(0)
	for c := 1; c <= sn.Cols; c++ {
		if c < sn.Cols && look(c) == runLook {
			continue
		}
		b.WriteString(renderRun(runLook, string(line[runStart:c])))
		if c < sn.Cols {
			runStart = c
			runLook = look(c)
		}
	}
	return b.String()
}

// renderRun styles one run of same-look cells. Hidden content renders
// as blanks so secrets never reach the terminal.
func renderRun(l cellLook, text string) string {
	if l.class == classHidden {
		text = strings.Repeat(" ", utf8.RuneCountInString(text))
	}
	if l.cursor {
		return CursorStyle.Render(text)
	}
	switch l.class {
	case classInput:
		return InputFieldStyle.Render(text)
	case classProtected:
		return ProtectedFieldStyle.Render(text)
	case classIntensified:
		return IntensifiedFieldStyle.Render(text)
	default:
		return NormalFieldStyle.Render(text)
	}
}

// renderStatusLine renders the operator information line under the
// screen: host on the left, lock state or the last input fault in the
// middle, cursor position on the right.
func (m TerminalModel) renderStatusLine() string {
	sn := m.snap
	left := StatusBarStyle.Render(sn.Addr)
	right := StatusBarStyle.Render(fmt.Sprintf("%03d/%03d", sn.CursorRow+1, sn.CursorCol+1))

	mid := ""
	switch {
	case sn.KeyboardLocked:
		mid = LockStyle.Render("X SYSTEM")
	case m.status != "":
		mid = LockStyle.Render(m.status)
	}

	pad := sn.Cols + 2 - lipgloss.Width(left) - lipgloss.Width(mid) - lipgloss.Width(right)
	if pad < 2 {
		pad = 2
	}
	lpad := pad / 2
	return left + strings.Repeat(" ", lpad) + mid + strings.Repeat(" ", pad-lpad) + right
}
