// Package overlay pushes display changes to browser overlays over
// websockets.
package overlay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
	"github.com/okian/trophycase/pkg/metrics"
)

const (
	sendBuffer      = 16
	broadcastBuffer = 64
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
)

// Frame is the JSON document sent to overlays. A nil Achievement blanks the
// overlay.
type Frame struct {
	Type        string             `json:"type"`
	Achievement *model.Achievement `json:"achievement"`
}

// CurrentFunc returns the achievement on screen, or nil.
type CurrentFunc func() *model.Achievement

// Hub fans display changes out to connected overlays. It is a display
// subscriber; Run must be running for clients to be served.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	count      atomic.Int64

	current  CurrentFunc
	upgrader websocket.Upgrader
	log      logger.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. current supplies the frame sent to new clients.
func NewHub(current CurrentFunc, log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	if current == nil {
		current = func() *model.Achievement { return nil }
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		current:    current,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Run serves the hub until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
		h.observe()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.observe()
			h.log.Debug(ctx, "overlay connected", logger.Int("clients", len(h.clients)))
			if frame, err := encode(h.current()); err == nil {
				c.send <- frame
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.observe()
				h.log.Debug(ctx, "overlay disconnected", logger.Int("clients", len(h.clients)))
			}

		case frame := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					h.log.Warn(ctx, "overlay too slow, disconnecting")
					h.drop(c)
				}
			}
			h.observe()
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// observe publishes the client count. Must be called from Run.
func (h *Hub) observe() {
	h.count.Store(int64(len(h.clients)))
	metrics.UpdateOverlayClients(len(h.clients))
}

// Clients returns the number of connected overlays.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// OnDisplay queues a frame for every client. Frames are dropped when the
// hub falls behind so the display cycle never blocks.
func (h *Hub) OnDisplay(ctx context.Context, a *model.Achievement) {
	frame, err := encode(a)
	if err != nil {
		h.log.Error(ctx, "encoding overlay frame", logger.Error(err))
		return
	}
	select {
	case h.broadcast <- frame:
	case <-h.done:
	default:
		h.log.Warn(ctx, "overlay broadcast queue full, dropping frame")
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func encode(a *model.Achievement) ([]byte, error) {
	return json.Marshal(Frame{Type: "display", Achievement: a})
}

// readPump discards client input and notices disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug(context.Background(), "overlay read error", logger.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.log.Debug(context.Background(), "overlay write failed", logger.Error(err))
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
