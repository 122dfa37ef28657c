package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/logger"
	"rep-protocol/internal/observability"
)

// HubConfig configures websocket delivery.
type HubConfig struct {
	// SendBuffer is the number of messages queued per client before it is dropped.
	SendBuffer int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a client may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHubConfig returns default websocket configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   256,
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Hub streams committed events to websocket clients as JSON, one message
// per event. Publish never blocks on a client: one whose buffer is full is
// disconnected.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	log      *logger.Logger
	metrics  *observability.Metrics

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  atomic.Bool // set under mu
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	token  domain.Address // zero means all tokens
	once   sync.Once
	closed chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.closed) })
}

// NewHub creates a hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, log *logger.Logger, metrics *observability.Metrics) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log,
		metrics: metrics,
		clients: make(map[*client]struct{}),
	}
}

// Publish queues every event for every subscribed client.
func (h *Hub) Publish(_ context.Context, events []domain.Event) error {
	if h.closed.Load() {
		return nil
	}

	msgs := make([][]byte, len(events))
	for i := range events {
		b, err := json.Marshal(&events[i])
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		msgs[i] = b
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
	deliver:
		for i := range events {
			if !c.token.IsZero() && events[i].Token != c.token {
				continue
			}
			select {
			case c.send <- msgs[i]:
			default:
				slow = append(slow, c)
				break deliver
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
		h.metrics.RecordWSDropped()
		h.remove(c)
	}
	return nil
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. An optional ?token= query restricts the stream to one token.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var token domain.Address
	if q := r.URL.Query().Get("token"); q != "" {
		t, err := domain.ParseAddress(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		token = t
	}
	if h.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, h.config.SendBuffer),
		token:  token,
		closed: make(chan struct{}),
	}
	if !h.add(c) {
		// Close ran after the check above; say goodbye instead of streaming.
		c.close()
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed.Swap(true) {
		h.mu.Unlock()
		return
	}
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.metrics.SetWSClients(0)
}

// add registers c unless the hub is closed.
func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWSClients(n)
	return true
}

func (h *Hub) remove(c *client) {
	c.close()
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWSClients(n)
}

// readLoop discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer of c.conn.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
