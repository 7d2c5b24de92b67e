package event

import (
	"runtime/debug"
	"time"
)

// DeadLetterEvent wraps an event whose handler exhausted every retry. It is
// itself an integration event and travels over the same bus, so operators can
// subscribe to dead letters like any other event type.
type DeadLetterEvent struct {
	Base

	// EventType is the registered wire name of the original event.
	EventType string `json:"event_type"`
	// EventPayload is the original event serialized exactly as it arrived,
	// so it can be replayed once the underlying fault is fixed.
	EventPayload []byte `json:"event_payload"`
	// ErrorMessage is the message of the final attempt's error.
	ErrorMessage string `json:"error_message"`
	// StackTrace is captured at dead-letter time to locate the failing handler.
	StackTrace string `json:"stack_trace"`
	// FailedAt records when the event was given up on.
	FailedAt time.Time `json:"failed_at"`
}

// NewDeadLetterEvent builds a dead letter for the given original event
// payload and terminal error. The stack trace is captured at the call site.
func NewDeadLetterEvent(eventType string, payload []byte, cause error) *DeadLetterEvent {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &DeadLetterEvent{
		Base:         NewBase(),
		EventType:    eventType,
		EventPayload: payload,
		ErrorMessage: msg,
		StackTrace:   string(debug.Stack()),
		FailedAt:     time.Now().UTC(),
	}
}
