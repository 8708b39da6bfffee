package telnet

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/version"
)

// Client wraps an established connection and performs the terminal side
// of TN3270 option negotiation: it answers the host's requests until
// binary mode and end-of-record framing are active in both directions.
// termType is the terminal identification to report; empty means the
// default model.
func Client(ctx context.Context, conn net.Conn, termType string, log *zap.Logger) (*Conn, error) {
	if termType == "" {
		termType = version.TerminalModel
	}
	c := newConn(conn, log, false, termType)
	if err := c.negotiate(ctx, false); err != nil {
		return nil, err
	}
	return c, nil
}

// Server wraps an accepted connection and performs the host side of
// TN3270 option negotiation: it asks for the terminal type, then
// enables binary mode and end-of-record framing in both directions.
func Server(ctx context.Context, conn net.Conn, log *zap.Logger) (*Conn, error) {
	c := newConn(conn, log, true, "")
	if err := c.negotiate(ctx, true); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) negotiate(ctx context.Context, drive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(negotiateTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}
	defer c.conn.SetDeadline(time.Time{})

	typeRequested := false
	modesRequested := false
	if drive {
		// The terminal type comes first; mode requests follow once we
		// know who we are talking to.
		c.opts[optTTYPE].themPending = true
		if err := c.send(iac, do, optTTYPE); err != nil {
			return err
		}
	}

	for {
		if drive {
			if c.opts[optTTYPE].them && !typeRequested {
				typeRequested = true
				if err := c.send(iac, sb, optTTYPE, ttypeSend, iac, se); err != nil {
					return err
				}
			}
			if c.termType != "" && !modesRequested {
				modesRequested = true
				c.opts[optEOR].themPending = true
				c.opts[optEOR].usPending = true
				c.opts[optBinary].themPending = true
				c.opts[optBinary].usPending = true
				if err := c.send(
					iac, do, optEOR,
					iac, do, optBinary,
					iac, will, optEOR,
					iac, will, optBinary,
				); err != nil {
					return err
				}
			}
		}
		if c.ready(drive) {
			c.log.Debug("telnet negotiation complete",
				zap.String("terminalType", c.termType),
				zap.Bool("server", c.server))
			return nil
		}

		_, hasData, isEOR, err := c.next()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNegotiationFailed, err)
		}
		if hasData || isEOR {
			return fmt.Errorf("%w: peer sent data before options settled", ErrNegotiationFailed)
		}
	}
}

// ready reports whether both required modes are active in both
// directions, and, when driving, whether the terminal type is known.
func (c *Conn) ready(drive bool) bool {
	binary := c.opts[optBinary]
	eorOpt := c.opts[optEOR]
	if !binary.us || !binary.them || !eorOpt.us || !eorOpt.them {
		return false
	}
	if drive && c.termType == "" {
		return false
	}
	return true
}
