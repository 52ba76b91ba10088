package eventbus

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConn implements WSConn for testing.
type mockConn struct {
	mu       sync.Mutex
	messages []any
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, v)
	return nil
}

func (m *mockConn) lastMessage() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *mockConn) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// --- Protocol parsing tests ---

func TestProtocol_ParseSubscribe(t *testing.T) {
	raw := json.RawMessage(`{"type":"subscribe","channel":"content"}`)
	msg, err := ParseClientMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "subscribe", msg.Type)
	assert.Equal(t, "content", msg.Channel)
}

func TestProtocol_ParseSubscribeDocument(t *testing.T) {
	raw := json.RawMessage(`{"type":"subscribe","channel":"document","documentId":"post-42"}`)
	msg, err := ParseClientMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "subscribe", msg.Type)
	assert.Equal(t, "document", msg.Channel)
	assert.Equal(t, "post-42", msg.DocumentID)
}

func TestProtocol_ParseRender(t *testing.T) {
	raw := json.RawMessage(`{"type":"render","documentId":"post-42","content":"# hi","format":"markdown"}`)
	msg, err := ParseClientMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "render", msg.Type)
	require.NotNil(t, msg.Content)
	assert.Equal(t, "# hi", *msg.Content)
	assert.Equal(t, "markdown", msg.Format)

	msg, err = ParseClientMessage(json.RawMessage(`{"type":"render","content":null,"format":"html"}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Content)
}

func TestProtocol_ParseUnsubscribe(t *testing.T) {
	raw := json.RawMessage(`{"type":"unsubscribe","subscriptionId":"sub-1"}`)
	msg, err := ParseClientMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "unsubscribe", msg.Type)
	assert.Equal(t, "sub-1", msg.SubscriptionID)
}

func TestProtocol_ParsePing(t *testing.T) {
	raw := json.RawMessage(`{"type":"ping"}`)
	msg, err := ParseClientMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "ping", msg.Type)
}

func TestProtocol_ParseInvalid(t *testing.T) {
	raw := json.RawMessage(`not valid json`)
	_, err := ParseClientMessage(raw)
	require.Error(t, err)
}

func TestProtocol_MarshalEvent(t *testing.T) {
	msg := ServerMessage{
		Type:      "event",
		Channel:   "content",
		EventType: "rendered",
		Data:      map[string]string{"html": "<p>x</p>"},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "event", decoded["type"])
	assert.Equal(t, "content", decoded["channel"])
	assert.Equal(t, "rendered", decoded["eventType"])
	assert.NotNil(t, decoded["data"])
}

func TestProtocol_MarshalPong(t *testing.T) {
	msg := ServerMessage{Type: "pong"}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pong", decoded["type"])
}

// --- Hub client tracking tests ---

func TestHub_ClientTracking(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	assert.Equal(t, 0, hub.ClientCount())

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)
	assert.NotEmpty(t, clientID)
	assert.Equal(t, 1, hub.ClientCount())

	ids := hub.ConnectedClientIDs()
	assert.Contains(t, ids, clientID)

	hub.UnregisterClient(clientID)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_MultipleClients(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn1 := &mockConn{}
	conn2 := &mockConn{}

	id1 := hub.RegisterClient(conn1)
	id2 := hub.RegisterClient(conn2)

	assert.Equal(t, 2, hub.ClientCount())
	assert.NotEqual(t, id1, id2)

	hub.UnregisterClient(id1)
	assert.Equal(t, 1, hub.ClientCount())

	ids := hub.ConnectedClientIDs()
	assert.NotContains(t, ids, id1)
	assert.Contains(t, ids, id2)
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	id := hub.RegisterClient(conn)

	hub.UnregisterClient(id)
	hub.UnregisterClient(id) // should not panic
	assert.Equal(t, 0, hub.ClientCount())
}

// --- Hub message handling tests ---

func TestHub_HandlePing(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)

	raw := json.RawMessage(`{"type":"ping"}`)
	err := hub.HandleMessage(clientID, raw)
	require.NoError(t, err)

	require.Equal(t, 1, conn.messageCount())
	msg, ok := conn.lastMessage().(*ServerMessage)
	require.True(t, ok)
	assert.Equal(t, "pong", msg.Type)
}

func TestHub_HandleSubscribeAndBroadcast(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)

	// Subscribe to content channel
	raw := json.RawMessage(`{"type":"subscribe","channel":"content"}`)
	err := hub.HandleMessage(clientID, raw)
	require.NoError(t, err)

	// The subscribe response should contain a subscriptionId
	require.GreaterOrEqual(t, conn.messageCount(), 1)

	// Emit a render event on the bus
	bus.Emit(Event{
		Type:       EventContentRendered,
		DocumentID: "doc-1",
		Data:       map[string]string{"html": "<p>x</p>"},
	})

	// Client should receive the event
	require.GreaterOrEqual(t, conn.messageCount(), 2)
}

func TestHub_HandleUnsubscribe(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)

	// Subscribe to content channel
	raw := json.RawMessage(`{"type":"subscribe","channel":"content"}`)
	err := hub.HandleMessage(clientID, raw)
	require.NoError(t, err)

	// Get the subscription ID from the response
	require.GreaterOrEqual(t, conn.messageCount(), 1)
	subResp, ok := conn.messages[0].(*ServerMessage)
	require.True(t, ok)
	subID := subResp.SubscriptionID

	// Unsubscribe
	unsubRaw := json.RawMessage(`{"type":"unsubscribe","subscriptionId":"` + subID + `"}`)
	err = hub.HandleMessage(clientID, unsubRaw)
	require.NoError(t, err)

	countBefore := conn.messageCount()

	// Emit a render event; client should NOT receive it
	bus.Emit(Event{
		Type:       EventContentRendered,
		DocumentID: "doc-1",
		Data:       map[string]string{"html": "<p>x</p>"},
	})

	assert.Equal(t, countBefore, conn.messageCount(), "should not receive events after unsubscribe")
}

func TestHub_DocumentChannelRouting(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)

	raw := json.RawMessage(`{"type":"subscribe","channel":"document","documentId":"post-42"}`)
	err := hub.HandleMessage(clientID, raw)
	require.NoError(t, err)

	bus.Emit(Event{
		Type:       EventContentRendered,
		DocumentID: "post-42",
		Data:       map[string]string{"html": "<p>x</p>"},
	})

	require.Equal(t, 2, conn.messageCount())
	ev, ok := conn.lastMessage().(*ServerMessage)
	require.True(t, ok)
	assert.Equal(t, "event", ev.Type)
	assert.Equal(t, "post-42", ev.DocumentID)

	countBefore := conn.messageCount()
	bus.Emit(Event{
		Type:       EventContentRendered,
		DocumentID: "post-7",
		Data:       map[string]string{"html": "<p>y</p>"},
	})
	bus.Emit(Event{Type: EventSettingsChanged})

	assert.Equal(t, countBefore, conn.messageCount(), "should not receive events for other documents")
}

func TestHub_DocumentRequiresID(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	clientID := hub.RegisterClient(&mockConn{})
	err := hub.HandleMessage(clientID, json.RawMessage(`{"type":"subscribe","channel":"document"}`))
	require.Error(t, err)
}

func TestHub_EventChannelMapping(t *testing.T) {
	tests := []struct {
		eventType EventType
		channel   string
		wire      string
	}{
		{EventContentRendered, "content", "rendered"},
		{EventSettingsChanged, "settings", "changed"},
		{EventConfigReloaded, "system", "config-reloaded"},
		{EventHeartbeat, "system", "heartbeat"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.channel, tt.eventType.Channel())
			assert.Equal(t, tt.wire, tt.eventType.WireName())
		})
	}
}

func TestHub_Send(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	id := hub.RegisterClient(conn)
	require.NoError(t, hub.Send(id, &ServerMessage{Type: "rendered"}))
	assert.Equal(t, 1, conn.messageCount())
	assert.Error(t, hub.Send("missing", &ServerMessage{Type: "rendered"}))
}

func TestHub_HandleMessageUnknownClient(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	raw := json.RawMessage(`{"type":"ping"}`)
	err := hub.HandleMessage("nonexistent", raw)
	require.Error(t, err)
}

func TestHub_HandleMessageUnknownType(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)

	raw := json.RawMessage(`{"type":"invalid"}`)
	err := hub.HandleMessage(clientID, raw)
	require.Error(t, err)
}

func TestHub_HandleSubscribeInvalidChannel(t *testing.T) {
	bus := New()
	hub := NewHub(bus)
	defer hub.Close()

	conn := &mockConn{}
	clientID := hub.RegisterClient(conn)

	raw := json.RawMessage(`{"type":"subscribe","channel":"bogus"}`)
	err := hub.HandleMessage(clientID, raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown channel")
}

func TestHub_Close(t *testing.T) {
	bus := New()
	hub := NewHub(bus)

	conn := &mockConn{}
	hub.RegisterClient(conn)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
}
