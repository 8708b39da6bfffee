package host

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/logging"
)

const (
	// Time allowed to write a state to a subscriber
	monitorWriteWait = 10 * time.Second

	// States queued per subscriber beyond the initial replay
	monitorBacklog = 32
)

// ScreenState is one published screen mirror, delivered to subscribers
// as a JSON text message. Closed marks the final state of a terminal
// that disconnected.
type ScreenState struct {
	RemoteAddr   string    `json:"remote_addr"`
	TerminalType string    `json:"terminal_type,omitempty"`
	Panel        string    `json:"panel,omitempty"`
	AID          string    `json:"aid,omitempty"`
	Rows         []string  `json:"rows,omitempty"`
	Closed       bool      `json:"closed,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Monitor fans screen states out to WebSocket subscribers. A new
// subscriber immediately receives the current state of every connected
// terminal; a subscriber that cannot keep up is dropped rather than
// allowed to stall the terminal applications.
type Monitor struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*monitorClient]struct{}
	last    map[string][]byte // current marshaled state per terminal
	closed  bool
}

type monitorClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewMonitor creates a monitor with no subscribers.
func NewMonitor() *Monitor {
	return &Monitor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The monitor is a local diagnostic surface; any page may
			// subscribe to it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*monitorClient]struct{}),
		last:    make(map[string][]byte),
	}
}

// Handler returns the HTTP handler that upgrades subscribers.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(m.serveWS)
}

func (m *Monitor) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("Monitor upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	// The channel is sized under the lock, so replaying every current
	// state can never block here.
	c := &monitorClient{
		conn: conn,
		send: make(chan []byte, len(m.last)+monitorBacklog),
	}
	m.clients[c] = struct{}{}
	for _, data := range m.last {
		c.send <- data
	}
	m.mu.Unlock()

	logging.LogConnection(remoteAddr, "monitor_subscribed")

	go c.writePump()
	go c.readPump(m)
}

// Publish records state as the terminal's current screen and queues it
// to every subscriber.
func (m *Monitor) Publish(state ScreenState) {
	data, err := json.Marshal(state)
	if err != nil {
		logging.Error("Failed to marshal screen state", zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if state.Closed {
		delete(m.last, state.RemoteAddr)
	} else {
		m.last[state.RemoteAddr] = data
	}
	for c := range m.clients {
		select {
		case c.send <- data:
		default:
			delete(m.clients, c)
			close(c.send)
		}
	}
}

// Drop publishes the final state of a terminal that disconnected.
func (m *Monitor) Drop(remoteAddr string) {
	m.Publish(ScreenState{
		RemoteAddr: remoteAddr,
		Closed:     true,
		UpdatedAt:  time.Now(),
	})
}

// Subscribers returns the number of connected subscribers.
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for c := range m.clients {
		delete(m.clients, c)
		close(c.send)
	}
	m.last = make(map[string][]byte)
}

// remove unregisters a client after its reader saw the connection drop.
func (m *Monitor) remove(c *monitorClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.send)
	}
}

// writePump delivers queued states until the channel closes, then says
// goodbye. It is the only goroutine writing to the connection.
func (c *monitorClient) writePump() {
	defer func() { _ = c.conn.Close() }()
	remoteAddr := c.conn.RemoteAddr().String()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logging.Debug("Monitor subscriber write failed",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
		logging.LogWebSocketMessage(remoteAddr, "sent", websocket.TextMessage, data)
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards subscriber input and unregisters the client when
// the connection drops. Subscribers only listen.
func (c *monitorClient) readPump(m *Monitor) {
	defer func() {
		m.remove(c)
		_ = c.conn.Close()
		logging.LogConnection(c.conn.RemoteAddr().String(), "monitor_unsubscribed")
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
