package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Broadcast topics and event types.
const (
	TopicProjections = "projections"
	TopicScenarios   = "scenarios"

	EventProjectionUpdated = "projection_updated"
	EventScenarioUpdated   = "scenario_updated"
)

// ProjectionEvent is the payload pushed when a projection mutates.
type ProjectionEvent struct {
	ProjectionID uint    `json:"projection_id"`
	PlayerID     uint    `json:"player_id"`
	ScenarioID   *uint   `json:"scenario_id,omitempty"`
	Season       int     `json:"season"`
	HalfPPR      float64 `json:"half_ppr"`
	Action       string  `json:"action"`
}

// ScenarioEvent is the payload pushed when a scenario is created, cloned, or
// deleted.
type ScenarioEvent struct {
	ScenarioID uint   `json:"scenario_id"`
	Season     int    `json:"season"`
	Name       string `json:"name"`
	Action     string `json:"action"`
}

// WebSocketHub fans mutation events out to subscribed clients. A nil hub is
// safe to notify; handlers never branch on whether realtime is wired.
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger
	mu         sync.RWMutex
}

// Client is one websocket connection and its topic subscriptions.
type Client struct {
	hub    *WebSocketHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint

	mu     sync.RWMutex
	topics map[string]bool
}

// WebSocketMessage is the wire envelope for every push.
type WebSocketMessage struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Subscription is the only client-to-server message.
type Subscription struct {
	Action string   `json:"action"` // "subscribe" or "unsubscribe"
	Topics []string `json:"topics"`
}

func NewWebSocketHub(logger *logrus.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run owns the client registry. Start it once, in its own goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.WithField("user_id", client.userID).Debug("Websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a new client to the hub.
func (h *WebSocketHub) Register(client *Client) {
	h.register <- client
}

// BroadcastToTopic pushes a typed message to every client subscribed to the
// topic. Slow clients are skipped, never waited on.
func (h *WebSocketHub) BroadcastToTopic(topic string, messageType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	message := WebSocketMessage{
		Type:      messageType,
		Topic:     topic,
		Data:      jsonData,
		Timestamp: time.Now().UTC(),
	}
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.IsSubscribedTo(topic) {
			select {
			case client.send <- messageBytes:
			default:
			}
		}
	}
	return nil
}

// NotifyProjectionUpdated broadcasts a projection mutation to the
// projections topic.
func (h *WebSocketHub) NotifyProjectionUpdated(ev ProjectionEvent) {
	if h == nil {
		return
	}
	if err := h.BroadcastToTopic(TopicProjections, EventProjectionUpdated, ev); err != nil {
		h.logger.WithError(err).Warn("Failed to broadcast projection event")
	}
}

// NotifyScenarioUpdated broadcasts a scenario lifecycle event to the
// scenarios topic.
func (h *WebSocketHub) NotifyScenarioUpdated(ev ScenarioEvent) {
	if h == nil {
		return
	}
	if err := h.BroadcastToTopic(TopicScenarios, EventScenarioUpdated, ev); err != nil {
		h.logger.WithError(err).Warn("Failed to broadcast scenario event")
	}
}

func NewClient(hub *WebSocketHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		topics: make(map[string]bool),
	}
}

// ReadPump consumes subscription messages until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var sub Subscription
		if err := c.conn.ReadJSON(&sub); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("Websocket read failed")
			}
			break
		}

		c.mu.Lock()
		switch sub.Action {
		case "subscribe":
			for _, topic := range sub.Topics {
				c.topics[topic] = true
			}
		case "unsubscribe":
			for _, topic := range sub.Topics {
				delete(c.topics, topic)
			}
		}
		c.mu.Unlock()
	}
}

// WritePump drains the send buffer and keeps the connection alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// IsSubscribedTo reports whether the client wants a topic; "*" subscribes
// to everything.
func (c *Client) IsSubscribedTo(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic] || c.topics["*"]
}
