package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"go.viam.com/swerve/logging"
)

const (
	clientBuffer = 8
	writeTimeout = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebsocketHub streams records to every connected websocket client. A client that cannot keep up
// misses records rather than slowing the others down.
type WebsocketHub struct {
	logger logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Record
	closed  bool
	workers sync.WaitGroup
}

// NewWebsocketHub returns a hub with no clients. Serve it with an http.Server.
func NewWebsocketHub(logger logging.Logger) *WebsocketHub {
	return &WebsocketHub{logger: logger, clients: map[*websocket.Conn]chan Record{}}
}

// ServeHTTP upgrades the request and streams records until the client goes away.
func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("websocket upgrade failed", "error", err)
		return
	}
	out := make(chan Record, clientBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = out
	h.workers.Add(1)
	h.mu.Unlock()
	h.logger.Infow("telemetry client connected", "remote", r.RemoteAddr)

	go func() {
		// Reads only detect the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	defer h.workers.Done()
	defer func() {
		_ = conn.Close()
	}()
	for rec := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(rec); err != nil {
			h.logger.Debugw("telemetry client write failed", "remote", r.RemoteAddr, "error", err)
			h.remove(conn)
			return
		}
	}
}

func (h *WebsocketHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.clients[conn]; ok {
		close(out)
		delete(h.clients, conn)
	}
}

// Clients returns the number of connected clients.
func (h *WebsocketHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues the record for every client.
func (h *WebsocketHub) Publish(ctx context.Context, rec Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("websocket hub is closed")
	}
	for _, out := range h.clients {
		select {
		case out <- rec:
		default:
		}
	}
	return nil
}

// Close disconnects every client.
func (h *WebsocketHub) Close() error {
	h.mu.Lock()
	h.closed = true
	for conn, out := range h.clients {
		close(out)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	h.workers.Wait()
	return nil
}
