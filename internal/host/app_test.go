package host

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
	"github.com/muldry/tn3270/internal/session"
	"github.com/muldry/tn3270/internal/stream"
	"github.com/muldry/tn3270/internal/telnet"
)

// startApp wires the application to an in-memory terminal session. It
// returns the terminal session, its snapshot feed, and the channel the
// application's exit value arrives on.
func startApp(t *testing.T) (*session.Session, chan session.Snapshot, chan error) {
	return startAppWithMonitor(t, nil)
}

func startAppWithMonitor(t *testing.T, mon *Monitor) (*session.Session, chan session.Snapshot, chan error) {
	t.Helper()
	hostSide, termSide := net.Pipe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	appErr := make(chan error, 1)
	go func() {
		tc, err := telnet.Server(ctx, hostSide, nil)
		if err != nil {
			appErr <- err
			return
		}
		a, err := newApp(tc, nil, mon)
		if err != nil {
			appErr <- err
			return
		}
		appErr <- a.run()
	}()

	ct, err := telnet.Client(ctx, termSide, "IBM-3278-2", nil)
	if err != nil {
		t.Fatalf("client negotiation: %v", err)
	}

	updates := make(chan session.Snapshot, 16)
	sess, err := session.NewFromConn(ct, session.Options{
		OnUpdate: func(s session.Snapshot) { updates <- s },
	})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	go func() { _ = sess.Run(ctx) }()

	t.Cleanup(func() {
		sess.Close()
		hostSide.Close()
	})
	return sess, updates, appErr
}

// waitForScreen drains snapshots until one contains want.
func waitForScreen(t *testing.T, updates chan session.Snapshot, want string) session.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-updates:
			if strings.Contains(snap.String(), want) {
				return snap
			}
		case <-deadline:
			t.Fatalf("no screen containing %q arrived", want)
		}
	}
}

func TestSignOnToStatusFlow(t *testing.T) {
	sess, updates, _ := startApp(t)

	snap := waitForScreen(t, updates, "TN3270 DEMO SYSTEM")
	if snap.KeyboardLocked {
		t.Error("sign-on panel should unlock the keyboard")
	}

	var unprotected int
	for _, f := range snap.Fields {
		if !f.Protected {
			unprotected++
		}
	}
	if unprotected != 2 {
		t.Errorf("sign-on panel has %d unprotected fields, want 2", unprotected)
	}

	if err := sess.SetFieldTextAt(useridRow, inputCol+1, "jdoe"); err != nil {
		t.Fatalf("type userid: %v", err)
	}
	if err := sess.SetFieldTextAt(passwdRow, inputCol+1, "secret"); err != nil {
		t.Fatalf("type password: %v", err)
	}
	if err := sess.Submit(stream.AIDEnter); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap = waitForScreen(t, updates, "SYSTEM STATUS")
	text := snap.String()
	if !strings.Contains(text, "JDOE") {
		t.Errorf("status panel should show the upper-cased userid:\n%s", text)
	}
	if !strings.Contains(text, "IBM-3278-2") {
		t.Errorf("status panel should show the terminal type:\n%s", text)
	}
	if !strings.Contains(text, "24 X 80") {
		t.Errorf("status panel should show the screen size:\n%s", text)
	}
	if snap.KeyboardLocked {
		t.Error("status panel should unlock the keyboard")
	}
}

func TestSignOnRequiresCredentials(t *testing.T) {
	sess, updates, _ := startApp(t)
	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")

	// Submit with nothing typed.
	if err := sess.Submit(stream.AIDEnter); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForScreen(t, updates, "USERID AND PASSWORD ARE REQUIRED")

	// Userid alone is not enough either.
	if err := sess.SetFieldTextAt(useridRow, inputCol+1, "jdoe"); err != nil {
		t.Fatalf("type userid: %v", err)
	}
	if err := sess.Submit(stream.AIDEnter); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForScreen(t, updates, "USERID AND PASSWORD ARE REQUIRED")
}

func TestStatusCommands(t *testing.T) {
	sess, updates, _ := startApp(t)
	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")
	signOn(t, sess)
	waitForScreen(t, updates, "SYSTEM STATUS")

	typeCommand(t, sess, "notacmd")
	snap := waitForScreen(t, updates, "COMMAND NOTACMD IS NOT RECOGNIZED")
	if snap.KeyboardLocked {
		t.Error("error message should still unlock the keyboard")
	}

	// Clear repaints the panel without the message.
	if err := sess.Submit(stream.AIDClear); err != nil {
		t.Fatalf("clear: %v", err)
	}
	snap = waitForScreen(t, updates, "SYSTEM STATUS")
	if strings.Contains(snap.String(), "NOT RECOGNIZED") {
		t.Error("clear should repaint the panel without the old message")
	}

	typeCommand(t, sess, "time")
	snap = waitForScreen(t, updates, "HOST TIME")
	if strings.Contains(snap.String(), "NOT RECOGNIZED") {
		t.Error("TIME should be a recognized command")
	}

	typeCommand(t, sess, "logoff")
	snap = waitForScreen(t, updates, "SIGNED OFF")
	if !strings.Contains(snap.String(), "TN3270 DEMO SYSTEM") {
		t.Error("logoff should return to the sign-on panel")
	}
}

func TestStatusPF3SignsOff(t *testing.T) {
	sess, updates, _ := startApp(t)
	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")
	signOn(t, sess)
	waitForScreen(t, updates, "SYSTEM STATUS")

	if err := sess.Submit(stream.AIDPF3); err != nil {
		t.Fatalf("pf3: %v", err)
	}
	waitForScreen(t, updates, "SIGNED OFF")
}

func TestSignOnPF3Disconnects(t *testing.T) {
	sess, updates, appErr := startApp(t)
	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")

	if err := sess.Submit(stream.AIDPF3); err != nil {
		t.Fatalf("pf3: %v", err)
	}
	waitForScreen(t, updates, "GOODBYE")

	select {
	case err := <-appErr:
		if err != nil {
			t.Errorf("application exit: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("application did not exit after PF3")
	}
}

func TestUnassignedKeyReportsItself(t *testing.T) {
	sess, updates, _ := startApp(t)
	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")

	if err := sess.Submit(stream.AIDPA1); err != nil {
		t.Fatalf("pa1: %v", err)
	}
	waitForScreen(t, updates, "PA1 IS NOT ASSIGNED HERE")
}

func signOn(t *testing.T, sess *session.Session) {
	t.Helper()
	if err := sess.SetFieldTextAt(useridRow, inputCol+1, "jdoe"); err != nil {
		t.Fatalf("type userid: %v", err)
	}
	if err := sess.SetFieldTextAt(passwdRow, inputCol+1, "secret"); err != nil {
		t.Fatalf("type password: %v", err)
	}
	if err := sess.Submit(stream.AIDEnter); err != nil {
		t.Fatalf("sign on: %v", err)
	}
}

func typeCommand(t *testing.T, sess *session.Session, cmd string) {
	t.Helper()
	if err := sess.SetFieldTextAt(commandRow, commandCol+1, cmd); err != nil {
		t.Fatalf("type command %q: %v", cmd, err)
	}
	if err := sess.Submit(stream.AIDEnter); err != nil {
		t.Fatalf("submit command %q: %v", cmd, err)
	}
}

func TestPanelBuilderFields(t *testing.T) {
	dims := display.Model2
	b := newPanelBuilder(dims, ebcdic.Default)
	b.text(0, 10, attrLabel, "NAME:")
	b.input(0, 16, attrInput, 5)
	b.cursor(0, 17)
	cmd, err := b.command()
	if err != nil {
		t.Fatalf("command: %v", err)
	}

	record, err := stream.AppendCommand(nil, cmd)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	screen, err := display.NewScreen(dims)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	fields := display.NewFieldTable()
	exec := stream.NewExecutor(dims, ebcdic.Default, nil)

	dec := stream.NewDecoder(nil)
	dec.Feed(record)
	decoded, err := dec.Next()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := exec.Apply(decoded, screen, fields); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := strings.TrimRight(screen.Row(0), " "); !strings.Contains(got, "NAME:") {
		t.Errorf("row 0 = %q, want the label", got)
	}
	list := fields.Fields()
	if len(list) != 3 {
		t.Fatalf("panel painted %d fields, want 3", len(list))
	}
	input := list[1]
	if input.Attr.Protected {
		t.Error("input field should be unprotected")
	}
	if got := input.ContentLength(); got != 5 {
		t.Errorf("input width = %d, want 5", got)
	}
	row, col := screen.Cursor().RowCol(dims)
	if row != 0 || col != 17 {
		t.Errorf("cursor at (%d,%d), want (0,17)", row, col)
	}
}

func TestPanelBuilderRejectsOffGridText(t *testing.T) {
	b := newPanelBuilder(display.Model2, ebcdic.Default)
	b.text(30, 0, attrLabel, "TOO FAR DOWN")
	if _, err := b.command(); err == nil {
		t.Error("text below the last row should fail the panel")
	}
}
