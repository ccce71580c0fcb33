package eventbus

import "time"

// Publish outcome event types.
const (
	EventPublishSent   = "publish.sent"
	EventPublishFailed = "publish.failed"
)

// Payload keys used by the publish events.
const (
	KeyID         = "id"
	KeyTopic      = "topic"
	KeyTitle      = "title"
	KeySource     = "source"
	KeyStatusCode = "status_code"
	KeyError      = "error"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)
