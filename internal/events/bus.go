package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler is called for every event of a subscribed type. Handlers must not
// block: the bus dispatches synchronously on the emitter's goroutine, so a
// slow handler stalls the caller.
type Handler func(event *Event)

// Bus is a minimal in-process pub/sub bus. Subscriptions are per event type;
// there is no unsubscribe - subscribers live as long as the process, which is
// fine for a single-binary dashboard server.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit builds an event and dispatches it to every subscriber of its type
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := b.handlers[eventType]
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Int("subscribers", len(handlers)).
		Msg("Event emitted")

	for _, handler := range handlers {
		handler(event)
	}
}
