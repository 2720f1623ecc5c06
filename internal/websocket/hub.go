package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tahcohcat/goalquest-web/internal/auth"
	"github.com/tahcohcat/goalquest-web/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin for development
		// In production, implement proper origin checking
		return true
	},
}

// ProgressEvent is pushed to a user's open tabs after a mutation so every
// view of the collection stays current.
type ProgressEvent struct {
	Type          string `json:"type"` // task_toggled, level_unlocked, goal_created, badge_earned
	GoalID        string `json:"goal_id,omitempty"`
	LevelID       int    `json:"level_id,omitempty"`
	TaskID        string `json:"task_id,omitempty"`
	CurrentLevel  int    `json:"current_level,omitempty"`
	TotalXP       int    `json:"total_xp,omitempty"`
	UnlockedLevel int    `json:"unlocked_level,omitempty"`
	Message       string `json:"message,omitempty"`
}

type userMessage struct {
	userID int
	data   []byte
}

type Hub struct {
	clients    map[*Client]bool
	send       chan userMessage
	register   chan *Client
	unregister chan *Client
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		send:       make(chan userMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logger.New().Debug(fmt.Sprintf("Client connected. Total: %d", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.New().Debug(fmt.Sprintf("Client disconnected. Total: %d", len(h.clients)))
			}

		case message := <-h.send:
			for client := range h.clients {
				if client.userID != message.userID {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Notify queues a progress event for every open connection of one user.
// A marshal failure is logged and dropped; events are best-effort.
func (h *Hub) Notify(userID int, event ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.New().WithError(err).Warn("failed to marshal progress event")
		return
	}
	select {
	case h.send <- userMessage{userID: userID, data: data}:
	default:
		logger.New().Warn("progress event queue full, dropping event")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.New().WithError(err).Warn("WebSocket error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.New().WithError(err).Warn("WebSocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func handleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromSession(r)
	if userID == 0 {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.New().WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{hub: hub, conn: conn, userID: userID, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// RegisterRoutes wires the websocket endpoint and returns the running hub
// so the API layer can publish events.
func RegisterRoutes(r *mux.Router) *Hub {
	hub := NewHub()
	go hub.Run()

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(hub, w, r)
	})

	return hub
}
