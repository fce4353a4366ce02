package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/online-games/game/service"
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MatchViewer renders a match for one player. An empty playerID asks for
// the spectator view.
type MatchViewer func(ctx context.Context, matchID, playerID string) (*service.MatchInfo, error)

// Message represents a WebSocket message
type Message struct {
	MatchID string             `json:"match_id"`
	Event   string             `json:"event"`
	Match   *service.MatchInfo `json:"match,omitempty"`
	Data    any                `json:"data,omitempty"`
}

// Client represents a WebSocket client watching one match
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	matchID  string
	playerID string
}

// Hub maintains the set of active clients and pushes match updates to them.
// Each client receives the match as seen from its own seat.
type Hub struct {
	// Registered clients by match ID
	matches map[string]map[*Client]bool
	mu      sync.RWMutex

	view   MatchViewer
	logger *zap.Logger

	// Match IDs whose state changed
	notify chan string

	// Events for every client of a match
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(view MatchViewer, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		matches:    make(map[string]map[*Client]bool),
		view:       view,
		logger:     logger,
		notify:     make(chan string, 64),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)
			h.pushState(ctx, client.matchID, client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case matchID := <-h.notify:
			h.pushState(ctx, matchID, nil)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to matchID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, matchID, playerID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		matchID:  matchID,
		playerID: playerID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// NotifyMatch tells every client of matchID to refresh its view
func (h *Hub) NotifyMatch(matchID string) {
	select {
	case h.notify <- matchID:
	default:
		h.logger.Warn("websocket notify queue full", zap.String("match_id", matchID))
	}
}

// BroadcastEvent sends the same event to every client of a match
func (h *Hub) BroadcastEvent(matchID string, event string, data any) {
	message := &Message{MatchID: matchID, Event: event, Data: data}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full", zap.String("match_id", matchID))
	}
}

// ClientCount returns the number of clients watching matchID
func (h *Hub) ClientCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}

// registerClient adds a client to a match
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.matches[client.matchID] == nil {
		h.matches[client.matchID] = make(map[*Client]bool)
	}
	h.matches[client.matchID][client] = true
	total := len(h.matches[client.matchID])
	h.mu.Unlock()

	h.logger.Debug("client registered",
		zap.String("match_id", client.matchID),
		zap.String("player", client.playerID),
		zap.Int("clients", total),
	)
}

// unregisterClient removes a client from a match
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.matches[client.matchID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.matches, client.matchID)
	}

	h.logger.Debug("client unregistered",
		zap.String("match_id", client.matchID),
		zap.Int("clients", len(clients)),
	)
}

// pushState renders the match once per distinct player and sends it to
// target, or to every client of the match when target is nil
func (h *Hub) pushState(ctx context.Context, matchID string, target *Client) {
	h.mu.RLock()
	var clients []*Client
	for client := range h.matches[matchID] {
		if target == nil || client == target {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	rendered := make(map[string][]byte)
	for _, client := range clients {
		data, ok := rendered[client.playerID]
		if !ok {
			data = h.render(ctx, matchID, client.playerID)
			rendered[client.playerID] = data
		}
		if data != nil {
			h.deliver(client, data)
		}
	}
}

func (h *Hub) render(ctx context.Context, matchID, playerID string) []byte {
	message := &Message{MatchID: matchID, Event: "state_update"}
	info, err := h.view(ctx, matchID, playerID)
	if err != nil {
		message.Event = "error"
		message.Data = err.Error()
	} else {
		message.Match = info
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", zap.String("match_id", matchID), zap.Error(err))
		return nil
	}
	return data
}

// broadcastMessage sends a message to all clients of a match
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	var clients []*Client
	for client := range h.matches[message.MatchID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.deliver(client, data)
	}
}

// deliver queues data for a client and drops clients that fall behind
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	var clients []*Client
	for _, set := range h.matches {
		for client := range set {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.unregisterClient(client)
	}
}

// readPump keeps the connection alive and unregisters the client when it
// goes away. Incoming messages are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// message is written as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

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
