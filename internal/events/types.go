package events

// Event type constants for kelindar/event.
const (
	TypeConnectionStatus uint32 = iota + 1
	TypeCommandStatus
	TypeAnimationState
	TypeStatusMessage
	TypeFatalError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ConnectionStatusEvent is published whenever a peripheral's connection
// state changes, including timeouts forcing a disconnect.
type ConnectionStatusEvent struct {
	Device    string `json:"device" example:"LEFT" doc:"Peripheral identifier"`
	Connected bool   `json:"connected" example:"true" doc:"Whether the peripheral is connected"`
	Timestamp string `json:"timestamp" example:"2026-08-24T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConnectionStatusEvent.
func (e ConnectionStatusEvent) Type() uint32 { return TypeConnectionStatus }

// CommandStatusEvent reports the outcome of a single dispatched command.
type CommandStatusEvent struct {
	Device    string `json:"device" example:"LEFT" doc:"Peripheral identifier"`
	Success   bool   `json:"success" example:"true" doc:"Whether the command was written"`
	Message   string `json:"message" example:"sent C:255,0,0" doc:"Human-readable detail"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for CommandStatusEvent.
func (e CommandStatusEvent) Type() uint32 { return TypeCommandStatus }

// AnimationStateEvent state values.
const (
	AnimationStarted = "started"
	AnimationStopped = "stopped"
)

// AnimationStateEvent reports a choreography session transition. Start
// and stop notifications share one event type so subscribers observe
// them in publish order; a stop always precedes the next start.
type AnimationStateEvent struct {
	Animation string `json:"animation" example:"left_turn" doc:"Animation type"`
	State     string `json:"state" example:"started" enum:"started,stopped" doc:"Session transition"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationStateEvent.
func (e AnimationStateEvent) Type() uint32 { return TypeAnimationState }

// StatusMessageEvent carries free-form operational status for the caller.
type StatusMessageEvent struct {
	Message   string `json:"message" doc:"Status text"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for StatusMessageEvent.
func (e StatusMessageEvent) Type() uint32 { return TypeStatusMessage }

// FatalErrorEvent signals an unrecoverable condition observed by a worker.
type FatalErrorEvent struct {
	Message   string `json:"message" doc:"Error description"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for FatalErrorEvent.
func (e FatalErrorEvent) Type() uint32 { return TypeFatalError }
