// Package eventbus carries render, settings and config notifications from
// the code that produces them (document displays, the settings endpoint,
// the config watcher) to the WebSocket hub. Delivery is synchronous and
// in-process; a subscriber that panics is logged and skipped.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/folio-press/folio/internal/logging"
)

var busLog = logging.ForComponent(logging.CompWeb)

// EventType names a notification. Each type belongs to one wire channel.
type EventType string

const (
	// EventContentRendered carries a render.Rendered payload and the
	// document's ID.
	EventContentRendered EventType = "content.rendered"
	// EventSettingsChanged carries the saved editor settings.
	EventSettingsChanged EventType = "settings.changed"
	EventConfigReloaded  EventType = "config.reloaded"
	EventHeartbeat       EventType = "heartbeat"
)

// Channel returns the wire channel subscribers use to receive t.
func (t EventType) Channel() string {
	switch t {
	case EventContentRendered:
		return ChannelContent
	case EventSettingsChanged:
		return ChannelSettings
	default:
		return ChannelSystem
	}
}

// WireName is the short event name sent to clients, e.g. "rendered".
func (t EventType) WireName() string {
	switch t {
	case EventContentRendered:
		return "rendered"
	case EventSettingsChanged:
		return "changed"
	case EventConfigReloaded:
		return "config-reloaded"
	case EventHeartbeat:
		return "heartbeat"
	default:
		return string(t)
	}
}

// Event is one notification. DocumentID is set for content events only.
type Event struct {
	Type       EventType
	DocumentID string
	Data       any
}

// Handler receives events.
type Handler func(Event)

// EventBus fans events out to subscribers. Safe for concurrent use.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[int]Handler
	nextID      int
}

func New() *EventBus {
	return &EventBus{subscribers: make(map[int]Handler)}
}

// Subscribe adds handler and returns the function that removes it.
func (b *EventBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Emit calls every subscriber registered at the time of the call, in no
// particular order, on the caller's goroutine.
func (b *EventBus) Emit(event Event) {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		deliver(h, event)
	}
}

func deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			busLog.Error("eventbus_handler_panic",
				slog.String("event", string(event.Type)),
				slog.String("document", event.DocumentID),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	h(event)
}

// SubscriberCount returns the number of active subscribers.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
