// Package livefeed pushes dashboard snapshots and notifications to websocket
// clients.
package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/metrics"
)

const (
	TypeSnapshot     = "snapshot"
	TypeNotification = "notification"

	sendBuffer      = 256
	broadcastBuffer = 64
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type outbound struct {
	typ  string
	data []byte
}

// Hub maintains the set of active clients and broadcasts messages. The client
// set is owned by the Run goroutine.
type Hub struct {
	log     zerolog.Logger
	metrics *metrics.Metrics

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}

	// sticky message types are replayed to clients on connect.
	sticky map[string]bool

	count    atomic.Int64
	upgrader websocket.Upgrader
}

func NewHub(log zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:        log,
		metrics:    m,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, broadcastBuffer),
		done:       make(chan struct{}),
		sticky:     map[string]bool{TypeSnapshot: true},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	clients := make(map[*Client]struct{})
	last := make(map[string][]byte)

	drop := func(c *Client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		h.setCount(len(clients))
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.setCount(len(clients))
			h.log.Debug().Str("remote", c.remote).Msg("livefeed client registered")
			for _, data := range last {
				select {
				case c.send <- data:
				default:
				}
			}

		case c := <-h.unregister:
			drop(c)
			h.log.Debug().Str("remote", c.remote).Msg("livefeed client unregistered")

		case msg := <-h.broadcast:
			if h.sticky[msg.typ] {
				last[msg.typ] = msg.data
			}
			for c := range clients {
				select {
				case c.send <- msg.data:
				default:
					h.log.Warn().Str("remote", c.remote).Msg("livefeed client too slow, dropping")
					drop(c)
				}
			}
		}
	}
}

// Publish queues a message for every connected client. It never blocks; when
// the broadcast queue is full the message is dropped.
func (h *Hub) Publish(msgType string, payload any) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("type", msgType).Msg("livefeed marshal failed")
		return
	}
	select {
	case h.broadcast <- outbound{typ: msgType, data: data}:
	default:
		h.log.Warn().Str("type", msgType).Msg("livefeed broadcast queue full, message dropped")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

func (h *Hub) setCount(n int) {
	h.count.Store(int64(n))
	h.metrics.SetLivefeedClients(n)
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: conn.RemoteAddr().String(),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
