package host

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
	"github.com/muldry/tn3270/internal/logging"
	"github.com/muldry/tn3270/internal/stream"
	"github.com/muldry/tn3270/internal/telnet"
)

// Panel layout coordinates. Every position fits the smallest supported
// geometry, so the panels render on any model.
const (
	titleRow = 0

	useridRow  = 5
	passwdRow  = 7
	inputCol   = 20 // attribute cell of the sign-on input fields
	credWidth  = 8
	signonMsg  = 11
	commandRow = 12
	commandCol = 18 // attribute cell of the command field
	cmdWidth   = 40
	statusMsg  = 14
	footerRow  = 22
	labelCol   = 5
	valueCol   = 25
)

var (
	attrLabel  = display.Attribute{Protected: true}.Byte()
	attrBright = display.Attribute{Protected: true, Intensified: true}.Byte()
	attrInput  = display.Attribute{}.Byte()
	attrSecret = display.Attribute{Hidden: true}.Byte()
)

// Blank in every supported codepage.
const ebcdicSpace = 0x40

type panel int

const (
	panelSignOn panel = iota
	panelStatus
)

// app runs the sign-on application for one connected terminal. It keeps
// a host-side mirror of the terminal screen: every outbound command is
// applied to the mirror before it is sent, and reply contents are poked
// back into it, so the monitor always shows what the operator sees.
type app struct {
	conn   *telnet.Conn
	cp     *ebcdic.Codepage
	mon    *Monitor
	log    *zap.Logger
	dims   display.Dimensions
	screen *display.Screen
	fields *display.FieldTable
	exec   *stream.Executor

	current    panel
	lastAID    stream.AID
	user       string
	signedOnAt time.Time
}

func newApp(conn *telnet.Conn, cp *ebcdic.Codepage, mon *Monitor) (*app, error) {
	if cp == nil {
		cp = ebcdic.Default
	}
	dims := conn.Dimensions()
	screen, err := display.NewScreen(dims)
	if err != nil {
		return nil, err
	}
	return &app{
		conn:    conn,
		cp:      cp,
		mon:     mon,
		log:     logging.GetLogger(),
		dims:    dims,
		screen:  screen,
		fields:  display.NewFieldTable(),
		exec:    stream.NewExecutor(dims, cp, logging.GetLogger()),
		lastAID: stream.AIDNone,
	}, nil
}

// run paints the sign-on panel and then serves operator replies until
// the operator disconnects or the connection drops.
func (a *app) run() error {
	if err := a.showSignOn(""); err != nil {
		return err
	}
	for {
		record, err := a.conn.ReadRecord()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if len(record) == 0 {
			continue
		}
		logging.LogDataStream(a.conn.RemoteAddr().String(), "inbound", record)
		resp, err := stream.ParseResponse(record, a.dims, a.cp)
		if err != nil {
			a.log.Warn("Discarding unparseable terminal reply",
				zap.String("remote_addr", a.conn.RemoteAddr().String()),
				zap.Error(err),
			)
			continue
		}
		a.mirrorReply(resp)

		done, err := a.handle(resp)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (a *app) handle(resp *stream.Response) (bool, error) {
	a.log.Debug("Terminal reply",
		zap.String("remote_addr", a.conn.RemoteAddr().String()),
		zap.Stringer("aid", resp.AID),
		zap.Int("fields", len(resp.Fields)),
	)
	switch a.current {
	case panelSignOn:
		return a.handleSignOn(resp)
	default:
		return a.handleStatus(resp)
	}
}

func (a *app) handleSignOn(resp *stream.Response) (bool, error) {
	switch resp.AID {
	case stream.AIDEnter:
		user := strings.TrimSpace(a.replyField(resp, useridRow, inputCol))
		pass := strings.TrimSpace(a.replyField(resp, passwdRow, inputCol))
		if user == "" || pass == "" {
			return false, a.showSignOn("USERID AND PASSWORD ARE REQUIRED")
		}
		a.user = strings.ToUpper(user)
		a.signedOnAt = time.Now()
		logging.Info("Operator signed on",
			zap.String("remote_addr", a.conn.RemoteAddr().String()),
			zap.String("userid", a.user),
		)
		return false, a.showStatus("")
	case stream.AIDClear:
		return false, a.showSignOn("")
	case stream.AIDPF3:
		if err := a.showGoodbye(); err != nil {
			return true, err
		}
		return true, nil
	default:
		return false, a.showSignOn(fmt.Sprintf("%s IS NOT ASSIGNED HERE", resp.AID))
	}
}

func (a *app) handleStatus(resp *stream.Response) (bool, error) {
	switch resp.AID {
	case stream.AIDEnter:
		cmd := strings.ToUpper(strings.TrimSpace(a.replyField(resp, commandRow, commandCol)))
		switch cmd {
		case "", "TIME", "REFRESH":
			return false, a.showStatus("")
		case "LOGOFF":
			return false, a.signOff()
		default:
			return false, a.showStatus(fmt.Sprintf("COMMAND %s IS NOT RECOGNIZED", cmd))
		}
	case stream.AIDClear:
		return false, a.showStatus("")
	case stream.AIDPF3:
		return false, a.signOff()
	default:
		return false, a.showStatus(fmt.Sprintf("%s IS NOT ASSIGNED HERE", resp.AID))
	}
}

func (a *app) signOff() error {
	logging.Info("Operator signed off",
		zap.String("remote_addr", a.conn.RemoteAddr().String()),
		zap.String("userid", a.user),
	)
	a.user = ""
	return a.showSignOn("SIGNED OFF")
}

// replyField returns the reply content of the field whose attribute
// cell sits at (row, col), or "" when the reply does not carry it. A
// Read Modified reply omits untouched fields, so absence is normal.
func (a *app) replyField(resp *stream.Response, row, col int) string {
	p, err := display.PositionAt(a.dims, row, col)
	if err != nil {
		return ""
	}
	content, _ := resp.Field(p)
	return content
}

// mirrorReply pokes typed reply content into the host-side mirror so
// the monitor shows what the operator entered. Hidden input stays
// masked on the mirror.
func (a *app) mirrorReply(resp *stream.Response) {
	a.lastAID = resp.AID
	for _, f := range resp.Fields {
		row, col := f.Start.RowCol(a.dims)
		content := f.Content
		if a.current == panelSignOn && row == passwdRow {
			content = strings.Repeat("*", len(content))
		}
		if err := a.screen.WriteText(row, col+1, content); err != nil {
			a.log.Warn("Reply field does not fit the mirror",
				zap.Int("row", row),
				zap.Int("col", col),
				zap.Error(err),
			)
		}
	}
	a.publish()
}

// send applies the panel to the host-side mirror and then writes it to
// the terminal. A panel the mirror rejects is malformed and is not
// sent.
func (a *app) send(b *panelBuilder) error {
	cmd, err := b.command()
	if err != nil {
		return fmt.Errorf("panel layout: %w", err)
	}
	if err := a.exec.Apply(cmd, a.screen, a.fields); err != nil {
		return fmt.Errorf("panel does not apply: %w", err)
	}
	record, err := stream.AppendCommand(nil, cmd)
	if err != nil {
		return fmt.Errorf("panel does not serialize: %w", err)
	}
	logging.LogDataStream(a.conn.RemoteAddr().String(), "outbound", record)
	if err := a.conn.WriteRecord(record); err != nil {
		return fmt.Errorf("write to terminal: %w", err)
	}
	a.publish()
	return nil
}

// publish snapshots the mirror for the monitor. AID names the last
// attention key the terminal sent, so subscribers can correlate panel
// changes with operator actions.
func (a *app) publish() {
	if a.mon == nil {
		return
	}
	rows := make([]string, a.dims.Rows)
	for r := range rows {
		rows[r] = a.screen.Row(r)
	}
	a.mon.Publish(ScreenState{
		RemoteAddr:   a.conn.RemoteAddr().String(),
		TerminalType: a.conn.TerminalType(),
		Panel:        a.panelName(),
		AID:          a.lastAID.String(),
		Rows:         rows,
		UpdatedAt:    time.Now(),
	})
}

func (a *app) panelName() string {
	if a.current == panelSignOn {
		return "signon"
	}
	return "status"
}

func (a *app) showSignOn(message string) error {
	a.current = panelSignOn
	b := newPanelBuilder(a.dims, a.cp)
	b.text(titleRow, 30, attrBright, "TN3270 DEMO SYSTEM")
	b.text(2, labelCol, attrLabel, "SIGN ON WITH ANY USERID AND PASSWORD")
	b.text(useridRow, labelCol, attrLabel, "USERID   ===>")
	b.input(useridRow, inputCol, attrInput, credWidth)
	b.text(passwdRow, labelCol, attrLabel, "PASSWORD ===>")
	b.input(passwdRow, inputCol, attrSecret, credWidth)
	b.text(signonMsg, labelCol, attrBright, message)
	b.text(footerRow, labelCol, attrLabel, "ENTER SIGN ON    PF3 DISCONNECT    CLEAR REDRAW")
	b.cursor(useridRow, inputCol+1)
	return a.send(b)
}

func (a *app) showStatus(message string) error {
	a.current = panelStatus
	now := time.Now()
	b := newPanelBuilder(a.dims, a.cp)
	b.text(titleRow, 32, attrBright, "SYSTEM STATUS")
	b.pair(4, "USERID . . . . :", a.user)
	b.pair(5, "TERMINAL . . . :", a.conn.TerminalType())
	b.pair(6, "SCREEN SIZE  . :", fmt.Sprintf("%d X %d", a.dims.Rows, a.dims.Cols))
	b.pair(7, "SIGNED ON  . . :", a.signedOnAt.Format("15:04:05"))
	b.pair(8, "HOST TIME  . . :", now.Format("15:04:05"))
	b.text(commandRow, labelCol, attrLabel, "COMMAND ===>")
	b.input(commandRow, commandCol, attrInput, cmdWidth)
	b.text(statusMsg, labelCol, attrBright, message)
	b.text(footerRow, labelCol, attrLabel, "ENTER REFRESH    PF3 SIGN OFF    CLEAR REDRAW")
	b.cursor(commandRow, commandCol+1)
	return a.send(b)
}

func (a *app) showGoodbye() error {
	a.current = panelSignOn
	b := newPanelBuilder(a.dims, a.cp)
	b.text(titleRow, 30, attrBright, "TN3270 DEMO SYSTEM")
	b.text(11, 30, attrLabel, "DISCONNECTED - GOODBYE")
	return a.send(b)
}

// panelBuilder accumulates the orders of one Erase/Write command in
// buffer order. All panels repaint from a cleared screen, which keeps
// the field arithmetic trivial at the cost of slightly larger records.
type panelBuilder struct {
	dims   display.Dimensions
	cp     *ebcdic.Codepage
	orders []stream.Order
	err    error
}

func newPanelBuilder(dims display.Dimensions, cp *ebcdic.Codepage) *panelBuilder {
	return &panelBuilder{dims: dims, cp: cp}
}

func (b *panelBuilder) at(row, col int) {
	if b.err != nil {
		return
	}
	sba, err := stream.BufferAddress(b.dims, row, col)
	if err != nil {
		b.err = err
		return
	}
	b.orders = append(b.orders, sba)
}

// text paints a field at (row, col): the attribute byte in that cell,
// content in the cells after it. An empty string still paints the
// attribute so message lines keep a stable field position.
func (b *panelBuilder) text(row, col int, attr byte, s string) {
	b.at(row, col)
	if b.err != nil {
		return
	}
	b.orders = append(b.orders, &stream.StartField{Attr: attr})
	if s != "" {
		b.orders = append(b.orders, stream.EncodeText(b.cp, s))
	}
}

// input opens an operator field of width cells at (row, col), blanks it
// with a repeat order so the field owns its extent, and closes it with
// a protected attribute one past its last cell.
func (b *panelBuilder) input(row, col int, attr byte, width int) {
	b.at(row, col)
	if b.err != nil {
		return
	}
	b.orders = append(b.orders, &stream.StartField{Attr: attr})
	hi, lo, err := display.EncodeAddress(b.dims, row, col+width+1)
	if err != nil {
		b.err = err
		return
	}
	b.orders = append(b.orders,
		&stream.RepeatToAddress{Hi: hi, Lo: lo, Fill: ebcdicSpace},
		&stream.StartField{Attr: attrLabel},
	)
}

func (b *panelBuilder) pair(row int, label, value string) {
	b.text(row, labelCol, attrLabel, label)
	b.text(row, valueCol, attrBright, value)
}

func (b *panelBuilder) cursor(row, col int) {
	b.at(row, col)
	if b.err != nil {
		return
	}
	b.orders = append(b.orders, &stream.InsertCursor{})
}

// command wraps the accumulated orders in an Erase/Write that unlocks
// the keyboard and clears modified flags.
func (b *panelBuilder) command() (stream.Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &stream.WriteCommand{
		Op:     stream.CmdEraseWrite,
		WCC:    stream.WCCKeyboardRestore | stream.WCCResetModified,
		Orders: b.orders,
	}, nil
}
