package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
)

// Event names written on the stream
const (
	EventSnapshot     = "snapshot"
	EventNotification = "notification"
)

const (
	clientBufferSize  = 16
	heartbeatInterval = 15 * time.Second
)

// Message is one server-sent event
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client is one connected stream
type Client struct {
	ID       uuid.UUID
	User     string
	Outbound chan Message
	done     chan struct{}
	once     sync.Once
}

// Hub fans messages out to every connected client. A client whose buffer is
// full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewHub creates a new Hub; m may be nil
func NewHub(logger *logging.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  logger.WithComponent("sse-hub"),
		metrics: m,
	}
}

// Register adds a client for user
func (h *Hub) Register(user string) *Client {
	c := &Client{
		ID:       uuid.New(),
		User:     user,
		Outbound: make(chan Message, clientBufferSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.setGauge(n)
	h.logger.Debug("SSE client connected", "clientId", c.ID, "user", user)
	return c
}

// Unregister removes a client and ends its stream
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.once.Do(func() { close(c.done) })
	h.setGauge(n)
	h.logger.Debug("SSE client disconnected", "clientId", c.ID)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Outbound <- msg:
		default:
			h.logger.Warn("Dropping SSE message; outbound buffer full", "clientId", c.ID, "event", msg.Event)
		}
	}
}

// Notify broadcasts a notification to local clients, so the hub can stand in
// for the cross-instance bus on a single instance
func (h *Hub) Notify(_ context.Context, n domain.Notification) error {
	h.Broadcast(Message{Event: EventNotification, Data: n})
	return nil
}

// Serve streams messages to the client until the request ends or the client
// is unregistered. initial, when non-nil, is written first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, c *Client, initial *Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if initial != nil {
		if err := h.write(w, *initial); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg := <-c.Outbound:
			if err := h.write(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Hub) write(w http.ResponseWriter, msg Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal SSE message", "event", msg.Event)
		return nil
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
	return err
}

func (h *Hub) setGauge(n int) {
	if h.metrics != nil {
		h.metrics.SetRealtimeClients(n)
	}
}
