package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/sirius3/lednode/internal/events"
)

// subscribeAll funnels every bus event type into one channel. Events
// are dropped rather than blocking publishers when the client is slow.
func subscribeAll(bus *events.Bus, ch chan any) func() {
	forward := func(e any) {
		select {
		case ch <- e:
		default:
		}
	}
	unsubs := []func(){
		bus.Subscribe(func(e events.ConnectionStatusEvent) { forward(e) }),
		bus.Subscribe(func(e events.CommandStatusEvent) { forward(e) }),
		bus.Subscribe(func(e events.AnimationStateEvent) { forward(e) }),
		bus.Subscribe(func(e events.StatusMessageEvent) { forward(e) }),
		bus.Subscribe(func(e events.FatalErrorEvent) { forward(e) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// registerEventRoutes streams bus events over SSE so front-ends can
// track connection, command, and choreography changes live.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events/stream",
		Summary:     "Event Stream",
		Description: "Real-time node events via Server-Sent Events",
		Tags:        []string{"events"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, map[string]any{
		"connection": events.ConnectionStatusEvent{},
		"command":    events.CommandStatusEvent{},
		"animation":  events.AnimationStateEvent{},
		"status":     events.StatusMessageEvent{},
		"fatal":      events.FatalErrorEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		ch := make(chan any, 64)
		unsubscribe := subscribeAll(s.options.Bus, ch)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
