package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	authorizeWait  = 5 * time.Second
)

// Authorizer decides whether a user may receive a topic's events.
type Authorizer interface {
	AuthorizeTopic(ctx context.Context, userID, topic string) error
}

// clientAction is a JSON message sent by a WebSocket client.
type clientAction struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
	Ref    string `json:"ref,omitempty"`
}

// Reply is a JSON message sent to a WebSocket client.
type Reply struct {
	Type    string              `json:"type"` // "ack", "error", "event" or "revoked"
	Action  string              `json:"action,omitempty"`
	Topic   string              `json:"topic,omitempty"`
	Ref     string              `json:"ref,omitempty"`
	Message string              `json:"message,omitempty"`
	Event   *domain.ChangeEvent `json:"event,omitempty"`
}

// Client is a single WebSocket connection and its topic subscriptions.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	topics map[string]bool
	mu     sync.Mutex
}

// HubOptions tunes the hub. Zero values fall back to defaults.
type HubOptions struct {
	SendBuffer   int
	PingInterval time.Duration
	CheckOrigin  func(r *http.Request) bool
}

// Hub keeps the connected clients and routes change events to the clients
// subscribed to each event's topic.
type Hub struct {
	authorizer Authorizer
	upgrader   websocket.Upgrader
	sendBuffer int
	pingPeriod time.Duration
	pongWait   time.Duration

	clients   map[*Client]bool
	topicSubs map[string]map[*Client]bool
	mu        sync.RWMutex

	unregister chan *Client
	broadcast  chan broadcastMsg
	done       chan struct{}

	ctx context.Context
}

type broadcastMsg struct {
	topic string
	data  []byte
	// After delivery, subscriptions to topic are dropped: every one when
	// revokeAll is set, else those of revokeUser.
	revokeUser string
	revokeAll  bool
}

func NewHub(authorizer Authorizer, opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Hub{
		authorizer: authorizer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		sendBuffer: opts.SendBuffer,
		pingPeriod: opts.PingInterval,
		pongWait:   opts.PingInterval * 2,
		clients:    make(map[*Client]bool),
		topicSubs:  make(map[string]map[*Client]bool),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 256),
		done:       make(chan struct{}),
		ctx:        context.Background(),
	}
}

// Run is the hub's event loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			close(h.done)
			h.mu.Unlock()
			return

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
			if msg.revokeAll || msg.revokeUser != "" {
				h.revoke(msg)
			}
		}
	}
}

// deliver queues msg for each subscriber. Clients whose buffer is full are dropped.
func (h *Hub) deliver(msg broadcastMsg) {
	var slow []*Client
	h.mu.RLock()
	for client := range h.topicSubs[msg.topic] {
		select {
		case client.send <- msg.data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		logger.Warn("Dropping slow realtime client", "userID", client.userID, "topic", msg.topic)
		h.removeLocked(client)
	}
	h.mu.Unlock()
}

// revoke drops the subscriptions named by msg and tells each affected client.
// A revoked client must subscribe again, which re-checks authorization.
func (h *Hub) revoke(msg broadcastMsg) {
	var revoked []*Client
	h.mu.Lock()
	for client := range h.topicSubs[msg.topic] {
		if !msg.revokeAll && client.userID != msg.revokeUser {
			continue
		}
		client.mu.Lock()
		delete(client.topics, msg.topic)
		client.mu.Unlock()
		delete(h.topicSubs[msg.topic], client)
		revoked = append(revoked, client)
	}
	if len(h.topicSubs[msg.topic]) == 0 {
		delete(h.topicSubs, msg.topic)
	}
	h.mu.Unlock()

	for _, client := range revoked {
		logger.Info("Realtime subscription revoked", "userID", client.userID, "topic", msg.topic)
		client.reply(Reply{Type: "revoked", Topic: msg.topic})
	}
}

// removeLocked forgets client and closes its send channel. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.mu.Lock()
	for topic := range client.topics {
		if subs, exists := h.topicSubs[topic]; exists {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.topicSubs, topic)
			}
		}
	}
	client.mu.Unlock()
	close(client.send)
}

// Dispatch routes a change event to the subscribers of its topic. It is the
// broker subscription handler.
func (h *Hub) Dispatch(ev domain.ChangeEvent) {
	data, err := json.Marshal(Reply{Type: "event", Topic: ev.Topic, Event: &ev})
	if err != nil {
		logger.Error("Failed to encode change event", "topic", ev.Topic, "error", err)
		return
	}
	logger.RealtimeEvent("deliver", ev.Topic, ev.Table, string(ev.Kind))
	msg := broadcastMsg{topic: ev.Topic, data: data}
	if ev.Kind == domain.ChangeDelete {
		switch ev.Table {
		case domain.TableMeetupMembers:
			msg.revokeUser = ev.OldID
		case domain.TableMeetups:
			msg.revokeAll = true
		}
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Subscribers reports how many clients follow topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topicSubs[topic])
}

func (h *Hub) subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}

	client.mu.Lock()
	client.topics[topic] = true
	client.mu.Unlock()

	if h.topicSubs[topic] == nil {
		h.topicSubs[topic] = make(map[*Client]bool)
	}
	h.topicSubs[topic][client] = true
}

func (h *Hub) unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.topics, topic)
	client.mu.Unlock()

	if subs, ok := h.topicSubs[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topicSubs, topic)
		}
	}
}

func (h *Hub) context() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctx
}

// reply sends directly on the client's queue. Returns false when the queue is full.
func (c *Client) reply(r Reply) bool {
	data, err := json.Marshal(r)
	if err != nil {
		return false
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) handle(action clientAction) {
	switch action.Action {
	case "subscribe":
		ctx, cancel := context.WithTimeout(c.hub.context(), authorizeWait)
		err := c.hub.authorizer.AuthorizeTopic(ctx, c.userID, action.Topic)
		cancel()
		if err != nil {
			logger.Info("Realtime subscription refused", "userID", c.userID, "topic", action.Topic, "error", err)
			c.reply(Reply{Type: "error", Action: action.Action, Topic: action.Topic, Ref: action.Ref, Message: refusal(err)})
			return
		}
		c.hub.subscribe(c, action.Topic)
		c.reply(Reply{Type: "ack", Action: action.Action, Topic: action.Topic, Ref: action.Ref})
	case "unsubscribe":
		c.hub.unsubscribe(c, action.Topic)
		c.reply(Reply{Type: "ack", Action: action.Action, Topic: action.Topic, Ref: action.Ref})
	default:
		c.reply(Reply{Type: "error", Action: action.Action, Ref: action.Ref, Message: "unknown action"})
	}
}

func refusal(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotFound):
		return "not allowed to subscribe to this topic"
	}
	return "unable to subscribe"
}

// readPump reads subscribe/unsubscribe actions until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Realtime connection closed unexpectedly", "userID", c.userID, "error", err)
			}
			return
		}

		var action clientAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.reply(Reply{Type: "error", Message: "invalid message"})
			continue
		}
		c.handle(action)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades an authenticated request and registers the connection.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, h.sendBuffer),
		topics: make(map[string]bool),
	}
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		conn.Close()
		return
	default:
	}
	h.clients[client] = true
	h.mu.Unlock()
	logger.Debug("Realtime client connected", "userID", userID)

	go client.writePump()
	go client.readPump()
}
