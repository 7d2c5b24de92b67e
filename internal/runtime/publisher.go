package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	idspkg "github.com/luntra/eventflow/internal/runtime/ids"
	jsoncodec "github.com/luntra/eventflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/luntra/eventflow/internal/runtime/metadata"
)

// TopicForEvent returns the bus topic for an event type within an exchange
// namespace. Each event type gets its own fan-out topic so subscribers of
// different types never see each other's messages.
func TopicForEvent(exchange, eventType string) string {
	if exchange == "" {
		return eventType
	}
	return exchange + "." + eventType
}

// NewMessageFromEvent converts an integration event into a Watermill message
// with the standard metadata required by the event pipeline.
func NewMessageFromEvent(evt eventpkg.Event, metadata metadatapkg.Metadata) (*message.Message, error) {
	if evt == nil {
		return nil, errspkg.ErrEventPayloadRequired
	}

	eventType := eventpkg.TypeName(evt)
	if eventType == "" {
		return nil, errspkg.ErrEventTypeRequired
	}

	payload, err := jsoncodec.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(idspkg.NewID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadata)
	msg.Metadata[metadatapkg.KeyEventType] = eventType
	msg.Metadata[metadatapkg.KeyEventID] = evt.EventID()
	msg.Metadata[metadatapkg.KeyPublishedAt] = time.Now().UTC().Format(time.RFC3339Nano)
	return msg, nil
}

// PublishEvent marshals the event and publishes it to the provided topic.
func PublishEvent(ctx context.Context, publisher message.Publisher, topic string, evt eventpkg.Event, metadata metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewMessageFromEvent(evt, metadata)
	if err != nil {
		return err
	}

	if ctx != nil {
		msg.SetContext(ctx)
	}

	return publisher.Publish(topic, msg)
}

// Publish emits the event on the topic derived from its type name. The
// service must have been constructed with a working transport.
func (s *Service) Publish(ctx context.Context, evt eventpkg.Event, metadata metadatapkg.Metadata) error {
	if s == nil || s.publisher == nil {
		return errspkg.ErrNotInitialized
	}

	eventType := eventpkg.TypeName(evt)
	if eventType == "" {
		return errspkg.ErrEventTypeRequired
	}

	topic := TopicForEvent(s.Conf.ExchangeName, eventType)
	if err := PublishEvent(ctx, s.publisher, topic, evt, metadata); err != nil {
		return err
	}

	s.metrics.EventPublished(eventType)
	return nil
}
