package websocket

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/jpeg"
	"sync"

	"cctvstation/internal/config"
	"cctvstation/internal/dto"
	"cctvstation/internal/logger"
	"cctvstation/internal/metrics"
	"cctvstation/internal/service/display"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 64
	viewQuality     = 75
)

// FrameMessage carries one annotated frame to the viewers.
type FrameMessage struct {
	Kind  string `json:"kind"`
	Frame int    `json:"frame"`
	Image string `json:"image"`
}

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	quit       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

func NewHubService(config *config.Config, metrics *metrics.Metrics, logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		quit:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger,
	}
}

func (h *HubService) Run() {
	for {
		select {
		case <-h.quit:
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.updateViewers()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.updateViewers()
			h.logger.Info("Client connected. Total: %d", h.GetClientCount())

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			h.updateViewers()
			h.logger.Info("Client disconnected. Total: %d", h.GetClientCount())

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				err := client.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
			h.updateViewers()
		}
	}
}

// Stop ends Run and closes all viewer connections.
func (h *HubService) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast queues message for every viewer. It drops the message when the queue is full.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// PublishDetection sends a detection feed entry to the viewers.
func (h *HubService) PublishDetection(event dto.DetectionEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode detection event: %v", err)
		return
	}
	if !h.Broadcast(msg) {
		h.logger.Warning("Viewer queue full, dropped %s detection event", event.Type)
	}
}

// StreamFrames forwards frames from mailbox to the viewers as base64 JPEG until the mailbox is closed.
func (h *HubService) StreamFrames(mailbox *display.Mailbox) {
	var buf bytes.Buffer
	for {
		frame, ok := mailbox.Next()
		if !ok {
			return
		}
		if h.GetClientCount() == 0 {
			continue
		}

		buf.Reset()
		if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: viewQuality}); err != nil {
			h.logger.Error("Failed to encode view frame %d: %v", frame.Index, err)
			continue
		}

		msg, err := json.Marshal(FrameMessage{
			Kind:  "frame",
			Frame: frame.Index,
			Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
		if err != nil {
			h.logger.Error("Failed to encode view message: %v", err)
			continue
		}
		if !h.Broadcast(msg) && h.metrics != nil {
			h.metrics.DisplayDrops.Add(1)
		}
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *HubService) updateViewers() {
	if h.metrics != nil {
		h.metrics.Viewers.Store(uint64(h.GetClientCount()))
	}
}
