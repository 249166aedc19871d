// Package events provides the in-process notification bus connecting the
// controller and animation engine to whatever front-end is listening.
package events

import (
	"time"

	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(ConnectionStatusEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event publishes by concrete type, so dispatch through a
	// type switch over the closed event set.
	switch e := ev.(type) {
	case ConnectionStatusEvent:
		event.Publish(b.dispatcher, e)
	case CommandStatusEvent:
		event.Publish(b.dispatcher, e)
	case AnimationStateEvent:
		event.Publish(b.dispatcher, e)
	case StatusMessageEvent:
		event.Publish(b.dispatcher, e)
	case FatalErrorEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an
// unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e ConnectionStatusEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ConnectionStatusEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandStatusEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AnimationStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StatusMessageEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FatalErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type gets a no-op unsubscribe.
		return func() {}
	}
}

// Now returns the timestamp format used in event payloads.
func Now() string {
	return time.Now().Format(time.RFC3339)
}
