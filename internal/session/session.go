package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
	"github.com/muldry/tn3270/internal/logging"
	"github.com/muldry/tn3270/internal/stream"
	"github.com/muldry/tn3270/internal/telnet"
)

var (
	// ErrNotConnected indicates an operation that needs a live
	// connection was called before Connect or after Close.
	ErrNotConnected = errors.New("session not connected")

	// ErrKeyboardLocked indicates input was attempted while the host
	// holds the keyboard. The lock clears when the host writes with
	// the keyboard-restore bit or erases all unprotected cells.
	ErrKeyboardLocked = errors.New("keyboard locked")
)

const defaultRetryInterval = 500 * time.Millisecond

// Options configure a session.
type Options struct {
	// TerminalType is reported during telnet negotiation. Empty
	// selects the default 24x80 model.
	TerminalType string

	// TLSConfig enables TLS on the connection when non-nil.
	TLSConfig *tls.Config

	// Codepage selects the character mapping. Nil means code page 037.
	Codepage *ebcdic.Codepage

	// MaxRetries is the number of additional connection attempts after
	// the first fails. Zero means a single attempt.
	MaxRetries uint64

	// RetryInterval is the initial delay between connection attempts.
	// Zero means half a second; later delays grow exponentially.
	RetryInterval time.Duration

	// OnUpdate, when set, receives a snapshot after every processed
	// record. It is called without any session lock held.
	OnUpdate func(Snapshot)

	// Log receives session events. Nil means no logging.
	Log *zap.Logger
}

// Session is one terminal-side connection to a host: the connection,
// the screen it paints, and the field table input routes through.
type Session struct {
	id   string
	addr string
	opts Options
	cp   *ebcdic.Codepage
	log  *zap.Logger

	mu     sync.Mutex
	conn   *telnet.Conn
	dec    *stream.Decoder
	exec   *stream.Executor
	enc    *stream.Encoder
	screen *display.Screen
	fields *display.FieldTable
	locked bool
	closed bool
}

// New creates a session for addr. No connection is made until Connect.
func New(addr string, opts Options) *Session {
	s := &Session{
		id:   uuid.New().String(),
		addr: addr,
		opts: opts,
		cp:   opts.Codepage,
		log:  opts.Log,
	}
	if s.cp == nil {
		s.cp = ebcdic.Default
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// NewFromConn wraps an already negotiated connection. The screen size
// follows the connection's terminal type.
func NewFromConn(conn *telnet.Conn, opts Options) (*Session, error) {
	s := New(conn.RemoteAddr().String(), opts)
	if err := s.adopt(conn); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Addr returns the host address the session targets.
func (s *Session) Addr() string { return s.addr }

// Connected reports whether the session has a live connection.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}

// Connect dials the host, negotiates telnet options, and sets up a
// fresh screen sized for the negotiated terminal type. Failed attempts
// are retried with exponential backoff up to Options.MaxRetries.
func (s *Session) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempt := func() error {
		conn, err := telnet.Dial(ctx, s.addr, s.opts.TLSConfig, s.opts.TerminalType, s.log)
		if err != nil {
			return err
		}
		return s.adopt(conn)
	}

	if s.opts.MaxRetries == 0 {
		return attempt()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryInterval
	if policy.InitialInterval == 0 {
		policy.InitialInterval = defaultRetryInterval
	}
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.opts.MaxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		s.log.Warn("Connection attempt failed",
			zap.String("addr", s.addr),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	}
	return backoff.RetryNotify(attempt, b, notify)
}

// adopt installs a negotiated connection and resets all screen state.
// The keyboard starts locked; the host's first write releases it.
func (s *Session) adopt(conn *telnet.Conn) error {
	dims := conn.Dimensions()
	screen, err := display.NewScreen(dims)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to size screen for %q: %w", conn.TerminalType(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.screen = screen
	s.fields = display.NewFieldTable()
	s.dec = stream.NewDecoder(s.log)
	s.exec = stream.NewExecutor(dims, s.cp, s.log)
	s.enc = stream.NewEncoder(s.cp, s.log)
	s.locked = true
	s.closed = false

	s.log.Info("Session established",
		zap.String("id", s.id),
		zap.String("addr", s.addr),
		zap.String("terminal_type", conn.TerminalType()),
		zap.String("size", dims.String()))
	return nil
}

// Run reads host records and applies them until the connection fails
// or ctx is canceled. It always returns a non-nil error: ctx.Err()
// after cancellation, the read error otherwise.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		rec, err := conn.ReadRecord()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Info("Connection closed", zap.String("id", s.id), zap.Error(err))
			return err
		}
		if err := s.ProcessRecord(rec); err != nil {
			return err
		}
	}
}

// ProcessRecord decodes one host record, applies every command in it,
// and answers read commands on the wire. Recoverable decode and
// execution errors are logged and skipped; the returned error is
// non-nil only when the session cannot continue, such as a dead
// connection.
func (s *Session) ProcessRecord(record []byte) error {
	s.mu.Lock()
	err := s.processLocked(record)
	cb := s.opts.OnUpdate
	var snap Snapshot
	if cb != nil && err == nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if cb != nil && err == nil {
		cb(snap)
	}
	return err
}

func (s *Session) processLocked(record []byte) error {
	if s.dec == nil || s.closed {
		return ErrNotConnected
	}
	logging.LogDataStream(s.addr, "inbound", record)

	s.dec.Feed(record)
	var replies [][]byte
	dumped := false
	for {
		cmd, err := s.dec.Next()
		if stream.IsIncomplete(err) {
			break
		}
		if err != nil {
			if code, ok := stream.InvalidCommandCode(err); ok && code == stream.CmdNoOp {
				continue
			}
			s.log.Warn("Skipping unusable data stream content",
				zap.String("id", s.id), zap.Error(err))
			if !dumped {
				logging.LogRawBytes("Record with unusable content", record)
				dumped = true
			}
			continue
		}
		replies = append(replies, s.applyLocked(cmd)...)
	}

	// A record must end on a command boundary; drop any remainder so
	// the next record starts clean.
	if n := s.dec.Buffered(); n > 0 {
		s.log.Warn("Record ended inside a command, discarding remainder",
			zap.String("id", s.id), zap.Int("bytes", n))
		s.dec.Reset()
	}

	for _, reply := range replies {
		logging.LogDataStream(s.addr, "outbound", reply)
		if err := s.conn.WriteRecord(reply); err != nil {
			return fmt.Errorf("failed to send read reply: %w", err)
		}
	}
	return nil
}

// applyLocked executes one command and returns any reply records it
// produces. Host-initiated reads are answered with the no-attention
// identifier.
func (s *Session) applyLocked(cmd stream.Command) [][]byte {
	switch c := cmd.(type) {
	case *stream.ReadCommand:
		var reply []byte
		if c.Op == stream.CmdReadBuffer {
			reply = s.enc.ReadBuffer(stream.AIDNone, s.screen, s.fields)
		} else {
			reply = s.enc.ReadModified(stream.AIDNone, s.screen, s.fields)
		}
		return [][]byte{reply}

	case *stream.WriteCommand:
		if err := s.exec.Apply(c, s.screen, s.fields); err != nil {
			// An execution fault inhibits input until the host
			// recovers, like an operation check on real hardware.
			s.locked = true
			s.log.Warn("Write command aborted",
				zap.String("id", s.id),
				zap.String("command", c.String()),
				zap.Error(err))
			return nil
		}
		if c.WCC.KeyboardRestore() {
			s.locked = false
		}
		return nil

	case *stream.EraseAllUnprotectedCommand:
		if err := s.exec.Apply(c, s.screen, s.fields); err != nil {
			s.log.Warn("Erase all unprotected failed", zap.String("id", s.id), zap.Error(err))
			return nil
		}
		s.locked = false
		return nil

	default:
		if err := s.exec.Apply(cmd, s.screen, s.fields); err != nil {
			s.log.Warn("Command skipped", zap.String("id", s.id), zap.Error(err))
		}
		return nil
	}
}

// SetFieldText replaces the content of field i with local input. The
// field must be unprotected; numeric fields accept digits and numeric
// punctuation only. The field is marked modified.
func (s *Session) SetFieldText(i int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields == nil || s.closed {
		return ErrNotConnected
	}
	if s.locked {
		return ErrKeyboardLocked
	}
	return s.fields.SetText(s.screen, i, text)
}

// SetFieldTextAt routes text to the field containing the given screen
// position.
func (s *Session) SetFieldTextAt(row, col int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields == nil || s.closed {
		return ErrNotConnected
	}
	if s.locked {
		return ErrKeyboardLocked
	}
	p, err := display.PositionAt(s.screen.Dimensions(), row, col)
	if err != nil {
		return err
	}
	_, i, ok := s.fields.At(p)
	if !ok {
		return fmt.Errorf("no field at row %d col %d", row, col)
	}
	return s.fields.SetText(s.screen, i, text)
}

// MoveCursor places the cursor locally.
func (s *Session) MoveCursor(row, col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == nil || s.closed {
		return ErrNotConnected
	}
	p, err := display.PositionAt(s.screen.Dimensions(), row, col)
	if err != nil {
		return err
	}
	return s.screen.SetCursor(p)
}

// Submit sends the modified fields to the host under the given
// attention identifier and locks the keyboard until the host restores
// it.
func (s *Session) Submit(aid stream.AID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closed {
		return ErrNotConnected
	}
	if s.locked {
		return ErrKeyboardLocked
	}

	reply := s.enc.ReadModified(aid, s.screen, s.fields)
	logging.LogDataStream(s.addr, "outbound", reply)
	if err := s.conn.WriteRecord(reply); err != nil {
		return fmt.Errorf("failed to submit %s: %w", aid, err)
	}
	s.locked = true
	s.log.Debug("Submitted input",
		zap.String("id", s.id),
		zap.String("aid", aid.String()),
		zap.Int("bytes", len(reply)))
	return nil
}

// SendRaw writes a prebuilt record to the host unchanged. It is the
// escape hatch for scripted traffic; Submit is the normal path.
func (s *Session) SendRaw(record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closed {
		return ErrNotConnected
	}
	logging.LogDataStream(s.addr, "outbound", record)
	return s.conn.WriteRecord(record)
}

// Close shuts the connection down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closed {
		return nil
	}
	s.closed = true
	err := s.conn.Close()
	s.log.Info("Session closed", zap.String("id", s.id))
	return err
}
