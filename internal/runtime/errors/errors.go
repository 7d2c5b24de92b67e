package errors

import sterrors "errors"

var (
	ErrServiceRequired      = sterrors.New("eventflow: event service is required")
	ErrHandlerRequired      = sterrors.New("eventflow: handler function is required")
	ErrEventTypeRequired    = sterrors.New("eventflow: event type is required")
	ErrEventPayloadRequired = sterrors.New("eventflow: event payload is required")
	ErrPublisherRequired    = sterrors.New("eventflow: publisher is required")
	ErrTopicRequired        = sterrors.New("eventflow: topic is required")
	ErrConfigRequired       = sterrors.New("eventflow: config is required")
	ErrLoggerRequired       = sterrors.New("eventflow: logger is required")
	ErrEventPointerRequired = sterrors.New("eventflow: event type must be a pointer to a struct")

	// ErrNotInitialized is returned by publish and subscribe operations that
	// run before the bus connection has been established.
	ErrNotInitialized = sterrors.New("eventflow: event bus is not initialized")

	// ErrRegistryFrozen is returned when a handler registration arrives after
	// the service has started; the registry is read-only from that point on.
	ErrRegistryFrozen = sterrors.New("eventflow: handler registry is frozen after start")

	// ErrDuplicateHandler is returned when two handlers claim the same event
	// type; each event type resolves to at most one handler.
	ErrDuplicateHandler = sterrors.New("eventflow: handler already registered for event type")
)
