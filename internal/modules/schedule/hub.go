package schedule

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"labbooking/internal/domain"
	"labbooking/internal/modules/booking"
	"labbooking/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 8
)

const EventSchedule = "schedule"

// Event is pushed to live schedule subscribers.
type Event struct {
	Type     string `json:"type"`
	Schedule *View  `json:"schedule"`
}

type client struct {
	conn *websocket.Conn
	// date pins the window start; zero follows the current day.
	date domain.Date
	send chan []byte
}

// Hub pushes a freshly built schedule to every subscriber after each booking
// or registry change. Change notifications are coalesced, so a burst of
// writes triggers one rebuild.
type Hub struct {
	builder *Builder
	log     *slog.Logger
	metrics *observability.Prom

	mu      sync.RWMutex
	clients map[*client]struct{}
	// closed is set once Run has returned; later subscribers are refused.
	closed bool

	changed chan struct{}
}

func NewHub(builder *Builder, log *slog.Logger, metrics *observability.Prom) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		builder: builder,
		log:     log,
		metrics: metrics,
		clients: make(map[*client]struct{}),
		changed: make(chan struct{}, 1),
	}
}

func (h *Hub) NotifyBookingChanged(ctx context.Context, change booking.Change) {
	h.signal()
}

func (h *Hub) NotifyEquipmentChanged(ctx context.Context, equipmentID int64) {
	h.signal()
}

func (h *Hub) signal() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// Run rebuilds and broadcasts on every change until ctx is done, then closes
// all subscriber connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.changed:
			h.broadcast(ctx)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ctx context.Context) {
	h.mu.RLock()
	byDate := make(map[domain.Date][]*client)
	for c := range h.clients {
		byDate[c.date] = append(byDate[c.date], c)
	}
	h.mu.RUnlock()

	for date, clients := range byDate {
		msg, err := h.render(ctx, date)
		if err != nil {
			h.log.ErrorContext(ctx, "schedule rebuild failed", "error", err)
			continue
		}
		h.mu.RLock()
		for _, c := range clients {
			if _, ok := h.clients[c]; !ok {
				continue
			}
			select {
			case c.send <- msg:
			default:
				// Slow reader; it gets the next rebuild.
			}
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) render(ctx context.Context, date domain.Date) ([]byte, error) {
	s, err := h.builder.Build(ctx, date)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: EventSchedule, Schedule: NewView(s)})
}

// Serve registers conn, sends the current schedule and pumps until the peer
// goes away.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, date domain.Date) {
	c := &client{conn: conn, date: date, send: make(chan []byte, sendBuffer)}

	initial, err := h.render(ctx, date)
	if err != nil {
		h.log.ErrorContext(ctx, "schedule build failed", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "schedule unavailable"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	c.send <- initial

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ScheduleClientsDelta(1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.ScheduleClientsDelta(-1)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

// readPump only services control frames; subscribers never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NewUpgrader accepts same-origin requests, requests without an Origin
// header, and the listed origins.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}
