package host

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/muldry/tn3270/internal/session"
)

func TestServerServesTerminals(t *testing.T) {
	srv, err := New(&Config{Host: "127.0.0.1", Port: 0, LogLevel: "error"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startErr := make(chan error, 1)
	go func() { startErr <- srv.Start() }()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server never started listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	updates := make(chan session.Snapshot, 16)
	sess := session.New(srv.Addr().String(), session.Options{
		MaxRetries:    5,
		RetryInterval: 50 * time.Millisecond,
		OnUpdate:      func(s session.Snapshot) { updates <- s },
	})
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()
	go func() { _ = sess.Run(ctx) }()

	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")

	if got := srv.ActiveConnections(); got != 1 {
		t.Errorf("ActiveConnections() = %d, want 1", got)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}

	select {
	case err := <-startErr:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}

	if got := srv.ActiveConnections(); got != 0 {
		t.Errorf("ActiveConnections() = %d after shutdown, want 0", got)
	}
}

func TestServerRejectsBadCodepage(t *testing.T) {
	if _, err := New(&Config{Host: "127.0.0.1", Port: 0, LogLevel: "error", Codepage: "9999"}); err == nil {
		t.Error("unknown codepage should fail New")
	}
}

func TestMonitorSeesTerminalScreens(t *testing.T) {
	m := NewMonitor()
	defer m.Close()
	wsrv := httptest.NewServer(m.Handler())
	defer wsrv.Close()
	wconn := dialMonitor(t, wsrv)

	sess, updates, _ := startAppWithMonitor(t, m)
	waitForScreen(t, updates, "TN3270 DEMO SYSTEM")

	st := readState(t, wconn)
	if st.Panel != "signon" {
		t.Errorf("first state panel = %q, want signon", st.Panel)
	}
	if !strings.Contains(strings.Join(st.Rows, "\n"), "TN3270 DEMO SYSTEM") {
		t.Error("first state should carry the sign-on screen")
	}

	signOn(t, sess)
	waitForScreen(t, updates, "SYSTEM STATUS")

	// The reply echo arrives first with the password masked, then the
	// status repaint.
	var masked bool
	for i := 0; i < 10; i++ {
		st := readState(t, wconn)
		text := strings.Join(st.Rows, "\n")
		if strings.Contains(text, "******") {
			masked = true
		}
		if st.Panel == "status" && strings.Contains(text, "SYSTEM STATUS") {
			if !masked {
				t.Error("password echo should be masked before the status repaint")
			}
			return
		}
	}
	t.Fatal("status panel never reached the monitor")
}
