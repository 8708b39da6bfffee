package telnet

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/display"
)

const (
	se   = 240 // 0xF0
	sb   = 250 // 0xFA
	will = 251 // 0xFB
	wont = 252 // 0xFC
	do   = 253 // 0xFD
	dont = 254 // 0xFE
	iac  = 255 // 0xFF

	nop    = 241 // 0xF1
	ga     = 249 // 0xF9
	eorCmd = 239 // 0xEF

	optBinary = 0
	optTTYPE  = 24
	optEOR    = 25

	ttypeIs   = 0
	ttypeSend = 1
)

const (
	// maxRecordLen bounds a single framed record; a 3270 screen plus
	// escaping is far below this.
	maxRecordLen = 1 << 16

	// maxSubnegLen bounds a subnegotiation payload such as a terminal
	// type name.
	maxSubnegLen = 256

	negotiateTimeout = 10 * time.Second
)

// ErrNegotiationFailed indicates the peer did not agree to the options
// TN3270 requires.
var ErrNegotiationFailed = errors.New("telnet option negotiation failed")

// ErrRecordTooLong indicates the peer sent a record exceeding the
// protocol-plausible maximum.
var ErrRecordTooLong = errors.New("telnet record exceeds maximum length")

// optionState tracks one telnet option in both directions. usOK and
// themOK say which directions we are willing to enable; us and them say
// which are currently on.
type optionState struct {
	usOK, themOK           bool
	usPending, themPending bool
	us, them               bool
}

// Conn is a telnet connection carrying EOR-framed 3270 records.
// Reads and writes may run concurrently with each other, but at most
// one reader and one writer at a time.
type Conn struct {
	conn     net.Conn
	r        *bufio.Reader
	log      *zap.Logger
	opts     map[byte]*optionState
	server   bool
	termType string
}

func newConn(conn net.Conn, log *zap.Logger, server bool, termType string) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Conn{
		conn:     conn,
		r:        bufio.NewReader(conn),
		log:      log,
		server:   server,
		termType: termType,
	}
	if server {
		c.opts = map[byte]*optionState{
			optBinary: {usOK: true, themOK: true},
			optEOR:    {usOK: true, themOK: true},
			optTTYPE:  {themOK: true},
		}
	} else {
		c.opts = map[byte]*optionState{
			optBinary: {usOK: true, themOK: true},
			optEOR:    {usOK: true, themOK: true},
			optTTYPE:  {usOK: true},
		}
	}
	return c
}

// TerminalType returns the negotiated terminal identification string:
// the type the peer reported on the server side, the type we report on
// the client side.
func (c *Conn) TerminalType() string {
	return c.termType
}

// Dimensions returns the screen size implied by the terminal type.
func (c *Conn) Dimensions() display.Dimensions {
	return ModelDimensions(c.termType)
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetReadDeadline sets the deadline for future record reads.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// ReadRecord reads one record: data bytes up to the next IAC EOR,
// with doubled IACs collapsed. Option traffic inside the record is
// handled inline. An empty record (IAC EOR with no data) returns an
// empty, non-nil slice.
func (c *Conn) ReadRecord() ([]byte, error) {
	data := make([]byte, 0, 256)
	for {
		b, hasData, isEOR, err := c.next()
		if err != nil {
			return nil, err
		}
		if isEOR {
			return data, nil
		}
		if hasData {
			data = append(data, b)
			if len(data) > maxRecordLen {
				return nil, ErrRecordTooLong
			}
		}
	}
}

// WriteRecord writes one record: p with IACs doubled, terminated by
// IAC EOR.
func (c *Conn) WriteRecord(p []byte) error {
	buf := make([]byte, 0, len(p)+8)
	for _, b := range p {
		buf = append(buf, b)
		if b == iac {
			buf = append(buf, iac)
		}
	}
	buf = append(buf, iac, eorCmd)
	_, err := c.conn.Write(buf)
	return err
}

// next reads one stream unit: a data byte, an end-of-record mark, or
// nothing visible after absorbing one piece of option traffic. It
// returns after every unit so negotiation loops regain control between
// events.
func (c *Conn) next() (b byte, hasData, isEOR bool, err error) {
	b, err = c.r.ReadByte()
	if err != nil {
		return 0, false, false, err
	}
	if b != iac {
		return b, true, false, nil
	}
	cmd, err := c.r.ReadByte()
	if err != nil {
		return 0, false, false, err
	}
	switch cmd {
	case iac:
		return iac, true, false, nil
	case eorCmd:
		return 0, false, true, nil
	case nop, ga:
	case sb:
		if err := c.readSubnegotiation(); err != nil {
			return 0, false, false, err
		}
	case will, wont, do, dont:
		opt, err := c.r.ReadByte()
		if err != nil {
			return 0, false, false, err
		}
		if err := c.handleOption(cmd, opt); err != nil {
			return 0, false, false, err
		}
	default:
		c.log.Debug("ignoring telnet command", zap.Uint8("command", cmd))
	}
	return 0, false, false, nil
}

// handleOption applies one WILL/WONT/DO/DONT and replies as needed.
// Acknowledgements of our own requests generate no counter-reply, so
// two speaking peers always quiesce.
func (c *Conn) handleOption(cmd, opt byte) error {
	st := c.opts[opt]
	c.log.Debug("telnet option",
		zap.String("verb", verbName(cmd)),
		zap.Uint8("option", opt))
	switch cmd {
	case will:
		if st == nil || !st.themOK {
			return c.send(iac, dont, opt)
		}
		if st.themPending {
			st.themPending = false
			st.them = true
			return nil
		}
		if !st.them {
			st.them = true
			return c.send(iac, do, opt)
		}
	case wont:
		if st != nil {
			st.them = false
			st.themPending = false
		}
	case do:
		if st == nil || !st.usOK {
			return c.send(iac, wont, opt)
		}
		if st.usPending {
			st.usPending = false
			st.us = true
			return nil
		}
		if !st.us {
			st.us = true
			return c.send(iac, will, opt)
		}
	case dont:
		if st != nil {
			st.us = false
			st.usPending = false
		}
	}
	return nil
}

// readSubnegotiation consumes one IAC SB ... IAC SE block. The only
// payload acted on is terminal type: a server stores the reported name,
// a client answers a send request with its own name.
func (c *Conn) readSubnegotiation() error {
	var payload []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return err
		}
		if b == iac {
			nb, err := c.r.ReadByte()
			if err != nil {
				return err
			}
			if nb == se {
				break
			}
			if nb == iac {
				payload = append(payload, iac)
				continue
			}
			c.log.Debug("unexpected byte in subnegotiation", zap.Uint8("byte", nb))
			continue
		}
		payload = append(payload, b)
		if len(payload) > maxSubnegLen {
			return fmt.Errorf("%w: subnegotiation too long", ErrNegotiationFailed)
		}
	}

	if len(payload) < 2 || payload[0] != optTTYPE {
		return nil
	}
	switch {
	case c.server && payload[1] == ttypeIs:
		c.termType = string(payload[2:])
		c.log.Debug("terminal type reported", zap.String("terminalType", c.termType))
	case !c.server && payload[1] == ttypeSend:
		reply := make([]byte, 0, len(c.termType)+6)
		reply = append(reply, iac, sb, optTTYPE, ttypeIs)
		reply = append(reply, c.termType...)
		reply = append(reply, iac, se)
		if _, err := c.conn.Write(reply); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) send(p ...byte) error {
	_, err := c.conn.Write(p)
	return err
}

func verbName(cmd byte) string {
	switch cmd {
	case will:
		return "WILL"
	case wont:
		return "WONT"
	case do:
		return "DO"
	case dont:
		return "DONT"
	default:
		return fmt.Sprintf("0x%02X", cmd)
	}
}

var modelPattern = regexp.MustCompile(`^IBM-\d{4}-([2-5])`)

// ModelDimensions maps a terminal identification string to its screen
// size. Unrecognized types fall back to the 24x80 base model every
// terminal supports.
func ModelDimensions(termType string) display.Dimensions {
	m := modelPattern.FindStringSubmatch(termType)
	if len(m) == 2 {
		switch m[1] {
		case "2":
			return display.Model2
		case "3":
			return display.Model3
		case "4":
			return display.Model4
		case "5":
			return display.Model5
		}
	}
	return display.Model2
}
