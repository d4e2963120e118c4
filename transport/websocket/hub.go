package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Event names
const (
	EventDay     = "day"
	EventDone    = "done"
	EventDeleted = "deleted"
)

var log = logrus.WithField("component", "websocket")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	RunID    string              `json:"run_id"`
	Event    string              `json:"event"`
	Day      int                 `json:"day,omitempty"`
	Snapshot *engine.DaySnapshot `json:"snapshot,omitempty"`
	Summary  *service.Summary    `json:"summary,omitempty"`
	Data     interface{}         `json:"data,omitempty"`
}

// Client represents a WebSocket client watching one run
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	pending [][]byte
	runID   string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by run ID
	runs map[string]map[*Client]bool
	mu   sync.RWMutex

	// Outbound events for the clients of one run
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	quit chan struct{}
	once sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		runs:       make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.quit:
			h.closeAll()
			return
		}
	}
}

// Stop ends the event loop and closes every client
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.quit) })
}

// ReplayMessages turns a stored run into one day event per snapshot followed
// by a done event carrying the summary
func ReplayMessages(run *service.RunInfo) []*Message {
	if run == nil || run.Result == nil {
		return nil
	}

	messages := make([]*Message, 0, len(run.Result.History)+1)
	for i := range run.Result.History {
		snap := run.Result.History[i]
		messages = append(messages, &Message{
			RunID:    run.ID,
			Event:    EventDay,
			Day:      snap.Day,
			Snapshot: &snap,
		})
	}

	summary := run.Summary
	messages = append(messages, &Message{
		RunID:   run.ID,
		Event:   EventDone,
		Day:     run.Result.Days(),
		Summary: &summary,
	})
	return messages
}

// ServeRun upgrades the request and streams the replay to the client. The
// client then stays subscribed to later events for the same run.
func (h *Hub) ServeRun(w http.ResponseWriter, r *http.Request, runID string, replay []*Message) {
	pending := make([][]byte, 0, len(replay))
	for _, message := range replay {
		data, err := json.Marshal(message)
		if err != nil {
			log.WithError(err).Error("failed to marshal replay message")
			http.Error(w, "failed to prepare replay", http.StatusInternalServerError)
			return
		}
		pending = append(pending, data)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		pending: pending,
		runID:   runID,
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEvent sends a custom event to all clients of a run
func (h *Hub) BroadcastEvent(runID string, event string, data interface{}) {
	message := &Message{
		RunID: runID,
		Event: event,
		Data:  data,
	}

	select {
	case h.broadcast <- message:
	case <-h.quit:
	}
}

// ClientCount returns the number of clients watching a run
func (h *Hub) ClientCount(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs[runID])
}

// registerClient adds a client to a run
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.runs[client.runID] == nil {
		h.runs[client.runID] = make(map[*Client]bool)
	}
	h.runs[client.runID][client] = true

	log.WithFields(logrus.Fields{
		"run_id":  client.runID,
		"clients": len(h.runs[client.runID]),
	}).Debug("client registered")
}

// unregisterClient removes a client from a run
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.runs[client.runID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.runs, client.runID)
	}

	log.WithFields(logrus.Fields{
		"run_id":  client.runID,
		"clients": len(clients),
	}).Debug("client unregistered")
}

// broadcastMessage sends a message to all clients of a run
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Error("failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.runs[message.RunID] {
		select {
		case client.send <- data:
		default:
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.runs {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// readPump keeps the connection alive until the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Incoming messages are ignored
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("websocket closed")
			}
			break
		}
	}
}

// writePump replays pending messages and then pumps hub messages to the
// connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for _, message := range c.pending {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.pending = nil

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
