package runtime

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	jsoncodec "github.com/luntra/eventflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/luntra/eventflow/internal/runtime/logging"
	metadatapkg "github.com/luntra/eventflow/internal/runtime/metadata"
)

// routeDeadLetter wraps the original payload in a DeadLetterEvent and
// publishes it to the dead-letter exchange. Routing is fail-open: a broken
// publisher must not wedge the consumer, so publish errors are logged and
// swallowed. The original message is acknowledged either way.
func (s *Service) routeDeadLetter(msg *message.Message, eventType string, cause error) {
	dl := eventpkg.NewDeadLetterEvent(eventType, msg.Payload, cause)

	topic := TopicForEvent(s.Conf.DeadLetterExchange, eventType)
	md := metadatapkg.FromWatermill(msg.Metadata).
		With(metadatapkg.KeyDeadLettered, "true")

	if err := PublishEvent(msg.Context(), s.publisher, topic, dl, md); err != nil {
		s.Logger.Error("Failed to publish dead letter, event is lost", err, loggingpkg.LogFields{
			"event_type":     eventType,
			"message_uuid":   msg.UUID,
			"dead_letter_id": dl.ID,
			"topic":          topic,
		})
		return
	}

	s.metrics.JobDeadLettered(eventType)
	s.Logger.Info("Event routed to dead letter exchange", loggingpkg.LogFields{
		"event_type":     eventType,
		"message_uuid":   msg.UUID,
		"dead_letter_id": dl.ID,
		"topic":          topic,
	})
}

// DeadLetterHandler consumes dead letters for one event type, typically to
// alert or to persist them for later replay.
type DeadLetterHandler func(ctx context.Context, dl *eventpkg.DeadLetterEvent) error

// RegisterDeadLetterHandler subscribes the handler to the dead-letter topic of
// the given event type. Dead-letter handlers get no retries; a returned error
// is logged and the message acknowledged, since dead letters must never
// dead-letter again.
func (s *Service) RegisterDeadLetterHandler(eventType string, handler DeadLetterHandler) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	if eventType == "" {
		return errspkg.ErrEventTypeRequired
	}
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	topic := TopicForEvent(s.Conf.DeadLetterExchange, eventType)
	name := "deadletter-" + eventType

	pipeline := func(msg *message.Message) error {
		var dl eventpkg.DeadLetterEvent
		if err := jsoncodec.Unmarshal(msg.Payload, &dl); err != nil {
			s.Logger.Warn("Dropping undecodable dead letter", loggingpkg.LogFields{
				"event_type":   eventType,
				"message_uuid": msg.UUID,
				"error":        err.Error(),
			})
			return nil
		}
		if err := handler(msg.Context(), &dl); err != nil {
			s.Logger.Error("Dead letter handler failed", err, loggingpkg.LogFields{
				"event_type":     eventType,
				"message_uuid":   msg.UUID,
				"dead_letter_id": dl.ID,
			})
		}
		return nil
	}

	return s.addRouterHandler(name, topic, "", pipeline)
}
