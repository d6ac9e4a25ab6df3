// Package server exposes the dashboard over HTTP: a REST API, CSV/PDF
// downloads and a WebSocket feed of rendered map frames.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	frameQueueSize = 64
	writeTimeout   = 10 * time.Second
)

// Hub fans rendered frames out to connected WebSocket clients. Frames are
// queued and broadcast from a single goroutine so a slow client never blocks
// the renderer.
type Hub struct {
	log      *logrus.Entry
	upgrader websocket.Upgrader

	frames chan []byte
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	// Stats
	framesSent    uint64
	framesDropped uint64
}

// NewHub creates a stopped hub.
func NewHub() *Hub {
	return &Hub{
		log: logrus.WithField("component", "hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		frames:  make(chan []byte, frameQueueSize),
		done:    make(chan struct{}),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start begins the broadcast goroutine.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.broadcastLoop()
}

// Stop closes all client connections and stops broadcasting.
func (h *Hub) Stop() {
	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()
	h.log.Infof("hub stopped (sent=%d, dropped=%d)", h.framesSent, h.framesDropped)
}

// Broadcast queues a frame for delivery to all clients. Frames are dropped
// when the queue is full rather than blocking the caller.
func (h *Hub) Broadcast(frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Warnf("frame marshal error: %v", err)
		return
	}
	select {
	case h.frames <- data:
	default:
		h.framesDropped++
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades an HTTP request to a WebSocket client of the frame feed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Infof("client connected (%d total)", count)

	// The feed is one-way; the read loop only detects disconnects.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Infof("client disconnected (%d remain)", count)
}

func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case data := <-h.frames:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.framesSent++
			h.mu.Unlock()
		case <-h.done:
			return
		}
	}
}
