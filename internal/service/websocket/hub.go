// Package websocket fans classification events out to dashboard clients.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"smartwaste/internal/logger"
	"smartwaste/internal/models"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 64
	writeWait       = 5 * time.Second
)

// Event is the JSON envelope pushed to clients.
type Event struct {
	Event  string                       `json:"event"`
	Result *models.ClassificationResult `json:"result,omitempty"`
}

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client. Run must be called at most once.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Dashboard client connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Dashboard client disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warning("Dropping dashboard client: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds client. After shutdown the client is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishArrival announces that the device reported an item.
func (h *HubService) PublishArrival() {
	h.publish(Event{Event: "waste_detected"})
}

// PublishClassification announces a stored classification.
func (h *HubService) PublishClassification(result models.ClassificationResult) {
	h.publish(Event{Event: "classification", Result: &result})
}

// publish never blocks the caller; when the queue is full the event is dropped.
func (h *HubService) publish(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding %s event: %v", event.Event, err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full, dropping %s event", event.Event)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
