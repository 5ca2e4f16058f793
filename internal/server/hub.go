package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"

	"github.com/tndhk/No26-todo-md/internal/syncer"
)

// MessageType identifies a websocket broadcast message.
type MessageType string

const (
	// MessageTypeProjectUpdate indicates a project's tasks or title changed.
	MessageTypeProjectUpdate MessageType = "project_update"
	// MessageTypeHello greets a freshly connected client.
	MessageTypeHello MessageType = "hello"
)

// Message is one websocket broadcast.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ProjectUpdateData is the payload of a project_update message.
type ProjectUpdateData struct {
	ProjectID string        `json:"project_id"`
	Result    syncer.Result `json:"result"`
}

// Hub fans task-change events out to connected websocket clients. It
// implements syncer.Notifier.
type Hub struct {
	logger *log.Logger

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ syncer.Notifier = (*Hub)(nil)

// NewHub creates a hub. Start must be called before it broadcasts anything.
func NewHub(logger *log.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		logger:    logger,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the broadcast loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.broadcastLoop()
}

// Stop closes every client connection and waits for the loop to exit.
func (h *Hub) Stop() {
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// ProjectChanged queues a project_update broadcast. Never blocks; when the
// queue is full the message is dropped with a warning.
func (h *Hub) ProjectChanged(projectID string, result syncer.Result) {
	data, err := json.Marshal(ProjectUpdateData{ProjectID: projectID, Result: result})
	if err != nil {
		h.logger.Error("failed to marshal project update", "err", err)
		return
	}

	msg := Message{Type: MessageTypeProjectUpdate, Timestamp: time.Now(), Data: data}
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// broadcastLoop delivers queued messages to all connected clients.
func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal broadcast", "err", err)
				continue
			}

			h.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					h.removeClient(conn)
				}
			}
		}
	}
}

// addClient registers a connection and sends the hello message.
func (h *Hub) addClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Debug("websocket client connected", "clients", count)

	hello := Message{Type: MessageTypeHello, Timestamp: time.Now()}
	if data, err := json.Marshal(hello); err == nil {
		ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
		_ = conn.Write(ctx, websocket.MessageText, data)
		cancel()
	}
}

// removeClient drops a connection.
func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	_, exists := h.clients[conn]
	if exists {
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.clientsMu.Unlock()

	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug("websocket client disconnected", "clients", count)
	}
}

// readLoop keeps a connection alive until the client goes away. Client
// messages are not processed.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)
	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
