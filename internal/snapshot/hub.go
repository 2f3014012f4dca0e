package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"poolwatch/internal/models"
	"poolwatch/internal/observability"
)

const (
	hubWriteTimeout = 10 * time.Second
	hubPongWait     = 60 * time.Second
	hubPingInterval = 25 * time.Second
	clientQueueSize = 16
)

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub streams snapshot frames to websocket clients. New clients receive
// the last frame immediately; slow clients are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *observability.Metrics

	mu        sync.Mutex
	clients   map[string]*hubClient
	lastFrame []byte
}

// NewHub creates a hub. allowedOrigins empty accepts every origin.
func NewHub(allowedOrigins []string, metrics *observability.Metrics) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	h := &Hub{
		metrics: metrics,
		clients: make(map[string]*hubClient),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		},
	}
	return h
}

// Name implements Sink
func (h *Hub) Name() string {
	return "websocket"
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Send implements Sink by broadcasting one frame to every client
func (h *Hub) Send(_ context.Context, tokens []models.DisplayToken) error {
	frame, err := json.Marshal(NewFrame(tokens))
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastFrame = frame
	for id, c := range h.clients {
		select {
		case c.send <- frame:
		default:
			log.WithFields(log.Fields{
				"client_id": id,
			}).Warn("Dropping slow websocket client")
			delete(h.clients, id)
			c.close()
		}
	}
	h.metrics.SetWSClients(len(h.clients))
	return nil
}

// ServeHTTP upgrades the request and streams frames until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"error":  err,
		}).Warn("Websocket upgrade failed")
		return
	}

	c := &hubClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if h.lastFrame != nil {
		c.send <- h.lastFrame
	}
	h.metrics.SetWSClients(len(h.clients))
	h.mu.Unlock()

	log.WithFields(log.Fields{
		"client_id": c.id,
		"remote":    r.RemoteAddr,
	}).Info("Websocket client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.metrics.SetWSClients(len(h.clients))
	h.mu.Unlock()
}

// readLoop discards inbound frames and detects disconnects
func (h *Hub) readLoop(c *hubClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		log.WithFields(log.Fields{
			"client_id": c.id,
		}).Info("Websocket client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(hubPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
	h.metrics.SetWSClients(0)
}
