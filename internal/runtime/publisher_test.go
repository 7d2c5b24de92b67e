package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	metadatapkg "github.com/luntra/eventflow/internal/runtime/metadata"
)

type publisherTestContextKey struct{}

var testCtxKey = publisherTestContextKey{}

func TestTopicForEvent(t *testing.T) {
	if got := TopicForEvent("integration_events", "orderCreated"); got != "integration_events.orderCreated" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := TopicForEvent("", "orderCreated"); got != "orderCreated" {
		t.Fatalf("expected bare event type when exchange empty, got %s", got)
	}
}

func TestNewMessageFromEvent(t *testing.T) {
	if _, err := NewMessageFromEvent(nil, nil); !errors.Is(err, errspkg.ErrEventPayloadRequired) {
		t.Fatalf("expected payload required error, got %v", err)
	}

	evt := &orderCreated{Base: eventpkg.NewBase(), Reference: "ord-1"}
	metadata := metadatapkg.Metadata{"origin": "unit"}
	msg, err := NewMessageFromEvent(evt, metadata)
	if err != nil {
		t.Fatalf("unexpected error creating message: %v", err)
	}
	if msg.Metadata[metadatapkg.KeyEventType] != "orderCreated" {
		t.Fatalf("expected event type metadata, got %#v", msg.Metadata)
	}
	if msg.Metadata[metadatapkg.KeyEventID] != evt.ID {
		t.Fatal("expected event id metadata to match the event")
	}
	if msg.Metadata[metadatapkg.KeyPublishedAt] == "" {
		t.Fatal("expected published_at metadata to be set")
	}
	if msg.Metadata["origin"] != "unit" {
		t.Fatalf("expected caller metadata to be preserved, got %#v", msg.Metadata)
	}
	if len(msg.Payload) == 0 {
		t.Fatal("expected serialized payload")
	}
}

func TestPublishEventValidations(t *testing.T) {
	evt := &orderCreated{Base: eventpkg.NewBase()}
	if err := PublishEvent(context.Background(), nil, "topic", evt, nil); !errors.Is(err, errspkg.ErrPublisherRequired) {
		t.Fatalf("expected publisher required error, got %v", err)
	}
	if err := PublishEvent(context.Background(), &recordingPublisher{}, "", evt, nil); !errors.Is(err, errspkg.ErrTopicRequired) {
		t.Fatalf("expected topic required error, got %v", err)
	}
}

func TestPublishEventSetsContextAndTopic(t *testing.T) {
	evt := &orderCreated{Base: eventpkg.NewBase()}
	recorder := &recordingPublisher{}
	ctx := context.WithValue(context.Background(), testCtxKey, "ctx")

	if err := PublishEvent(ctx, recorder, "orders", evt, nil); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if len(recorder.topics) != 1 || recorder.topics[0] != "orders" {
		t.Fatalf("expected topic to be recorded, got %#v", recorder.topics)
	}
	if recorder.messages[0].Context().Value(testCtxKey) != "ctx" {
		t.Fatal("expected context to be attached to message")
	}
}

func TestServicePublishValidatesReceiver(t *testing.T) {
	var svc *Service
	evt := &orderCreated{Base: eventpkg.NewBase()}
	if err := svc.Publish(context.Background(), evt, nil); !errors.Is(err, errspkg.ErrNotInitialized) {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestServicePublishDerivesTopic(t *testing.T) {
	svc := newTestService(t)
	recorder := &recordingPublisher{}
	svc.publisher = recorder

	evt := &orderCreated{Base: eventpkg.NewBase(), Reference: "ord-2"}
	if err := svc.Publish(context.Background(), evt, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recorder.topics) != 1 || recorder.topics[0] != "integration_events.orderCreated" {
		t.Fatalf("expected exchange-scoped topic, got %#v", recorder.topics)
	}
	if got := svc.metrics.GetTypeMetrics("orderCreated"); got == nil || got.EventsPublished != 1 {
		t.Fatalf("expected published counter to increment, got %#v", got)
	}
}

type recordingPublisher struct {
	topics   []string
	messages []*message.Message
	err      error
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, messages...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
