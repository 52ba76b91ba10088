package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Wire-protocol channel names.
const (
	ChannelContent  = "content"  // every rendered document
	ChannelDocument = "document" // one document, selected by documentId
	ChannelSettings = "settings"
	ChannelSystem   = "system"
)

// ClientMessage represents a message sent from a WebSocket client to the server.
type ClientMessage struct {
	Type           string  `json:"type"`
	Channel        string  `json:"channel,omitempty"`
	DocumentID     string  `json:"documentId,omitempty"`
	SubscriptionID string  `json:"subscriptionId,omitempty"`
	Content        *string `json:"content,omitempty"`
	Format         string  `json:"format,omitempty"`
}

// ServerMessage represents a message sent from the server to a WebSocket client.
type ServerMessage struct {
	Type           string `json:"type"`
	Channel        string `json:"channel,omitempty"`
	EventType      string `json:"eventType,omitempty"`
	DocumentID     string `json:"documentId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Data           any    `json:"data,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ParseClientMessage decodes a raw JSON message into a ClientMessage.
func ParseClientMessage(raw json.RawMessage) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("eventbus: invalid client message: %w", err)
	}
	return &msg, nil
}

// WSConn is the interface required for a WebSocket connection.
// It is intentionally minimal to allow easy testing with mocks.
type WSConn interface {
	WriteJSON(v any) error
}

// subscription tracks one client subscription to a channel.
type subscription struct {
	channel    string
	documentID string // non-empty only when channel == ChannelDocument
}

type client struct {
	conn          WSConn
	subscriptions map[string]subscription // subscriptionID -> subscription
}

// Hub manages WebSocket clients and routes EventBus events to them
// based on their channel subscriptions.
type Hub struct {
	mu      sync.RWMutex
	bus     *EventBus
	clients map[string]*client // clientID -> client
	nextID  int
	nextSub int
	unsub   func()
}

// NewHub creates a Hub that subscribes to the given EventBus and
// forwards matching events to connected WebSocket clients.
func NewHub(bus *EventBus) *Hub {
	h := &Hub{
		bus:     bus,
		clients: make(map[string]*client),
	}
	h.unsub = bus.Subscribe(func(e Event) {
		h.broadcast(e)
	})
	return h
}

// RegisterClient adds a WebSocket connection to the hub and returns
// a unique client ID used for subsequent operations.
func (h *Hub) RegisterClient(conn WSConn) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := fmt.Sprintf("client-%d", h.nextID)
	h.clients[id] = &client{
		conn:          conn,
		subscriptions: make(map[string]subscription),
	}
	return id
}

// UnregisterClient removes a client and all its subscriptions.
// It is safe to call with an unknown client ID.
func (h *Hub) UnregisterClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// HandleMessage processes a subscribe, unsubscribe or ping message from a
// client. Other message types are the caller's business and are rejected.
func (h *Hub) HandleMessage(clientID string, raw json.RawMessage) error {
	msg, err := ParseClientMessage(raw)
	if err != nil {
		return err
	}
	return h.Handle(clientID, msg)
}

// Handle is HandleMessage for an already decoded message.
func (h *Hub) Handle(clientID string, msg *ClientMessage) error {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("eventbus: unknown client %q", clientID)
	}

	switch msg.Type {
	case "subscribe":
		return h.handleSubscribe(c, msg)
	case "unsubscribe":
		return h.handleUnsubscribe(c, msg)
	case "ping":
		return c.conn.WriteJSON(&ServerMessage{Type: "pong"})
	default:
		return fmt.Errorf("eventbus: unknown message type %q", msg.Type)
	}
}

// Send writes a message to one client.
func (h *Hub) Send(clientID string, msg *ServerMessage) error {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("eventbus: unknown client %q", clientID)
	}
	return c.conn.WriteJSON(msg)
}

func (h *Hub) handleSubscribe(c *client, msg *ClientMessage) error {
	switch msg.Channel {
	case ChannelContent, ChannelSettings, ChannelSystem:
	case ChannelDocument:
		if msg.DocumentID == "" {
			return fmt.Errorf("eventbus: channel %q requires documentId", msg.Channel)
		}
	default:
		return fmt.Errorf("eventbus: unknown channel %q", msg.Channel)
	}

	h.mu.Lock()
	h.nextSub++
	subID := fmt.Sprintf("sub-%d", h.nextSub)
	c.subscriptions[subID] = subscription{
		channel:    msg.Channel,
		documentID: msg.DocumentID,
	}
	h.mu.Unlock()

	return c.conn.WriteJSON(&ServerMessage{
		Type:           "subscribed",
		Channel:        msg.Channel,
		DocumentID:     msg.DocumentID,
		SubscriptionID: subID,
	})
}

func (h *Hub) handleUnsubscribe(c *client, msg *ClientMessage) error {
	h.mu.Lock()
	delete(c.subscriptions, msg.SubscriptionID)
	h.mu.Unlock()
	return nil
}

// broadcast routes an EventBus event to all clients that have a matching subscription.
func (h *Hub) broadcast(event Event) {
	ch := event.Type.Channel()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if clientWantsEvent(c, ch, event) {
			// Write errors are dropped; the connection's read loop notices
			// the broken socket and unregisters the client.
			_ = c.conn.WriteJSON(&ServerMessage{
				Type:       "event",
				Channel:    ch,
				EventType:  event.Type.WireName(),
				DocumentID: event.DocumentID,
				Data:       event.Data,
			})
		}
	}
}

func clientWantsEvent(c *client, ch string, event Event) bool {
	for _, sub := range c.subscriptions {
		if sub.channel == ChannelDocument {
			if ch == ChannelContent && sub.documentID == event.DocumentID {
				return true
			}
			continue
		}
		if sub.channel == ch {
			return true
		}
	}
	return false
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ConnectedClientIDs returns the IDs of all connected clients.
func (h *Hub) ConnectedClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Close unsubscribes the hub from the EventBus and removes all clients.
func (h *Hub) Close() {
	h.unsub()
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.clients)
}
