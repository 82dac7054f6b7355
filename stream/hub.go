// Package stream pushes erosion progress to websocket clients.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ob6160/TerrainErosion/core"
	"github.com/ob6160/TerrainErosion/erosion"
)

const writeWait = 5 * time.Second

const (
	TypeProgress = "progress"
	TypeFinal    = "final"
)

// Snapshot is the JSON message sent to clients.
type Snapshot struct {
	Type       string      `json:"type"`
	Iteration  int         `json:"iteration"`
	Terrain    float64     `json:"terrain"`
	Water      float64     `json:"water"`
	Sediment   float64     `json:"sediment"`
	Resolution int         `json:"resolution"`
	Heights    [][]float64 `json:"heights,omitempty"`
}

// client owns one connection. send holds at most the newest undelivered
// snapshot; its writer goroutine is the only one touching the connection's
// write side.
type client struct {
	conn *websocket.Conn
	send chan Snapshot
	done chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan Snapshot, 1), done: make(chan struct{})}
}

// offer queues s without blocking, replacing any snapshot still waiting.
func (c *client) offer(s Snapshot) {
	for {
		select {
		case c.send <- s:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// Hub tracks connected clients and fans snapshots out to them. New clients
// receive the latest snapshot on connect. Broadcasting never waits on the
// network; a slow client only ever misses intermediate snapshots.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
	last    *Snapshot
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]*client),
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var c = newClient(conn)
	h.mu.Lock()
	if h.last != nil {
		c.offer(*h.last)
	}
	h.clients[conn] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	defer close(c.done)
	defer h.remove(conn)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.logger.Debug("client gone", "remote", r.RemoteAddr, "err", err)
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	for {
		select {
		case s := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(s); err != nil {
				h.logger.Warn("websocket write failed", "err", err)
				// Unblocks the read loop, which unregisters the client.
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Broadcast queues s for every client and returns at once.
func (h *Hub) Broadcast(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &s
	for _, c := range h.clients {
		c.offer(s)
	}
}

// Publish is an erosion.TraceFunc.
func (h *Hub) Publish(ev erosion.TraceEvent) {
	h.Broadcast(Snapshot{
		Type:       TypeProgress,
		Iteration:  ev.Iteration,
		Terrain:    ev.Totals.Terrain,
		Water:      ev.Totals.Water,
		Sediment:   ev.Totals.Sediment,
		Resolution: len(ev.Preview),
		Heights:    ev.Preview,
	})
}

// SetHeights makes the hub a core.HeightSink for the finished surface.
func (h *Hub) SetHeights(heights [][]float64, resolution int) error {
	surface, err := core.NewSurface(heights)
	if err != nil {
		return err
	}
	var resampled = surface.Resample(resolution)
	h.Broadcast(Snapshot{Type: TypeFinal, Resolution: len(resampled), Heights: resampled})
	return nil
}

// Serve runs an HTTP server exposing the hub at /ws until ctx is done.
func Serve(ctx context.Context, addr string, hub *Hub) error {
	var mux = http.NewServeMux()
	mux.Handle("/ws", hub)
	var srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	var errC = make(chan error, 1)
	go func() {
		errC <- srv.ListenAndServe()
	}()
	hub.logger.Info("progress stream listening", "addr", addr)

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}
	var shutdownCtx, cancel = context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
