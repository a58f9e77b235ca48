package realtime

import "encoding/json"

// Outbound events.
const (
	EventConnected               = "connected"
	EventMessageReceived         = "messageReceived"
	EventSubscriptionConfirmed   = "subscriptionConfirmed"
	EventSubscriptionError       = "subscriptionError"
	EventUnsubscriptionConfirmed = "unsubscriptionConfirmed"
	EventUnsubscriptionError     = "unsubscriptionError"
	EventNotification            = "notification"
	EventHeartbeat               = "heartbeat"
)

// Inbound events.
const (
	EventMessage     = "message"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// Payload is the data object of a frame. Dispatch stamps a "timestamp" key on a copy.
type Payload map[string]any

// Message is one outbound frame: {"event": "...", "data": {...}}.
type Message struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// Inbound is one client frame. Data is decoded lazily by the gateway.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conn is a live client connection as seen by the registry.
type Conn interface {
	ID() string
	// Send queues msg without blocking. It returns false when the frame was
	// dropped because the connection is closed or its buffer is full.
	Send(msg Message) bool
}
