package eventflow

import (
	runtimepkg "github.com/luntra/eventflow/internal/runtime"
	configpkg "github.com/luntra/eventflow/internal/runtime/config"
	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	idspkg "github.com/luntra/eventflow/internal/runtime/ids"
	jsoncodec "github.com/luntra/eventflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/luntra/eventflow/internal/runtime/logging"
	metadatapkg "github.com/luntra/eventflow/internal/runtime/metadata"
	metricspkg "github.com/luntra/eventflow/internal/runtime/metrics"
	retrypkg "github.com/luntra/eventflow/internal/runtime/retry"
	transportpkg "github.com/luntra/eventflow/internal/runtime/transport"
	newtransport "github.com/luntra/eventflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	// Events
	Event           = eventpkg.Event
	EventBase       = eventpkg.Base
	EventNamer      = eventpkg.Namer
	DeadLetterEvent = eventpkg.DeadLetterEvent

	// Handlers
	EventHandler[T any] = runtimepkg.EventHandler[T]
	DeadLetterHandler   = runtimepkg.DeadLetterHandler
	HandlerInfo         = runtimepkg.HandlerInfo
	HandlerStats        = runtimepkg.HandlerStats

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Job lifecycle hooks
	JobContext = runtimepkg.JobContext
	JobHooks   = runtimepkg.JobHooks

	// Retry policy
	RetryPolicy    = retrypkg.Policy
	TimeoutError   = retrypkg.TimeoutError
	ExhaustedError = retrypkg.ExhaustedError

	// Terminal job errors
	NoHandlerError          = runtimepkg.NoHandlerError
	JobFailedError          = runtimepkg.JobFailedError
	UnprocessableEventError = runtimepkg.UnprocessableEventError

	// Job metrics
	JobMetrics       = metricspkg.JobMetrics
	EventTypeMetrics = metricspkg.EventTypeMetrics
	MetricsSnapshot  = metricspkg.Snapshot

	// Error classification
	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory

	// Transport capabilities
	Capabilities = transportpkg.Capabilities

	// Modular transport types
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewService     = runtimepkg.NewService
	ValidateConfig = configpkg.ValidateConfig

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Job lifecycle hooks
	JobHooksMiddleware = runtimepkg.JobHooksMiddleware
	LoggingHooks       = runtimepkg.LoggingHooks
	AlertingHooks      = runtimepkg.AlertingHooks

	// Job metrics
	NewJobMetrics = metricspkg.NewJobMetrics

	// Events
	NewEventBase       = eventpkg.NewBase
	EventTypeName      = eventpkg.TypeName
	NewDeadLetterEvent = eventpkg.NewDeadLetterEvent

	// Publishing helpers
	TopicForEvent       = runtimepkg.TopicForEvent
	NewMessageFromEvent = runtimepkg.NewMessageFromEvent
	PublishEvent        = runtimepkg.PublishEvent

	// Retry classification
	IsTimeout   = retrypkg.IsTimeout
	IsExhausted = retrypkg.IsExhausted

	// Transport capabilities
	GetCapabilities = transportpkg.GetCapabilities

	// Modular transport registry. Import individual transports for their
	// side effects: _ "github.com/luntra/eventflow/transport/kafka"
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrEventTypeRequired    = errspkg.ErrEventTypeRequired
	ErrEventPayloadRequired = errspkg.ErrEventPayloadRequired
	ErrEventPointerRequired = errspkg.ErrEventPointerRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrNotInitialized       = errspkg.ErrNotInitialized
	ErrRegistryFrozen       = errspkg.ErrRegistryFrozen
	ErrDuplicateHandler     = errspkg.ErrDuplicateHandler

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewNopLogger         = loggingpkg.NewNopLogger

	NewMetadata = metadatapkg.New

	// NewEventID generates a unique event ID using ULID.
	NewEventID = idspkg.NewID
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyEventType     = metadatapkg.KeyEventType
	MetadataKeyEventID       = metadatapkg.KeyEventID
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyPublishedAt   = metadatapkg.KeyPublishedAt
	MetadataKeyDeadLettered  = metadatapkg.KeyDeadLettered
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone      = runtimepkg.ErrorCategoryNone
	ErrorCategoryDecode    = runtimepkg.ErrorCategoryDecode
	ErrorCategoryTimeout   = runtimepkg.ErrorCategoryTimeout
	ErrorCategoryCancelled = runtimepkg.ErrorCategoryCancelled
	ErrorCategoryHandler   = runtimepkg.ErrorCategoryHandler
	ErrorCategoryOther     = runtimepkg.ErrorCategoryOther
)

// RegisterEventHandler binds handler to the event type derived from T and
// subscribes it on the bus. T must be a pointer to a struct, usually one
// embedding EventBase.
func RegisterEventHandler[T any](svc *Service, handler EventHandler[T]) error {
	return runtimepkg.RegisterEventHandler(svc, handler)
}
