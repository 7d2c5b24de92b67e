package runtime

import (
	"errors"
	"testing"

	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	jsoncodec "github.com/luntra/eventflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/luntra/eventflow/internal/runtime/metadata"
)

func TestRouteDeadLetterPublishesWrappedEvent(t *testing.T) {
	svc := newTestService(t)
	recorder := &recordingPublisher{}
	svc.publisher = recorder

	evt := &orderCreated{Base: eventpkg.NewBase(), Reference: "ord-4"}
	msg := newTestMessage(t, evt)

	svc.routeDeadLetter(msg, "orderCreated", errors.New("handler gave up"))

	if len(recorder.topics) != 1 || recorder.topics[0] != "integration_events.dlx.orderCreated" {
		t.Fatalf("unexpected dead letter topics: %#v", recorder.topics)
	}

	dlMsg := recorder.messages[0]
	if dlMsg.Metadata.Get(metadatapkg.KeyDeadLettered) != "true" {
		t.Fatalf("expected dead_lettered marker, got %#v", dlMsg.Metadata)
	}
	if dlMsg.Metadata.Get(metadatapkg.KeyEventType) != "DeadLetterEvent" {
		t.Fatalf("expected dead letter envelope type, got %s", dlMsg.Metadata.Get(metadatapkg.KeyEventType))
	}

	var dl eventpkg.DeadLetterEvent
	if err := jsoncodec.Unmarshal(dlMsg.Payload, &dl); err != nil {
		t.Fatalf("failed to decode dead letter: %v", err)
	}
	if dl.EventType != "orderCreated" {
		t.Fatalf("unexpected original event type: %s", dl.EventType)
	}
	if dl.ErrorMessage != "handler gave up" {
		t.Fatalf("unexpected error message: %s", dl.ErrorMessage)
	}
	if string(dl.EventPayload) != string(msg.Payload) {
		t.Fatal("expected original payload snapshot")
	}

	if m := svc.metrics.GetTypeMetrics("orderCreated"); m == nil || m.JobsDeadLettered != 1 {
		t.Fatalf("expected dead letter counter to increment, got %#v", m)
	}
}

func TestRouteDeadLetterFailOpen(t *testing.T) {
	svc := newTestService(t)
	svc.publisher = &testPublisher{err: errors.New("broker down")}

	evt := &orderCreated{Base: eventpkg.NewBase()}
	msg := newTestMessage(t, evt)

	// Must not panic and must not count a dead letter that never landed.
	svc.routeDeadLetter(msg, "orderCreated", errors.New("boom"))

	if m := svc.metrics.GetTypeMetrics("orderCreated"); m != nil && m.JobsDeadLettered != 0 {
		t.Fatalf("dead letter counter must not move on publish failure: %#v", m)
	}
}

func TestRouteDeadLetterPreservesOriginalMetadata(t *testing.T) {
	svc := newTestService(t)
	recorder := &recordingPublisher{}
	svc.publisher = recorder

	evt := &orderCreated{Base: eventpkg.NewBase()}
	msg := newTestMessage(t, evt)
	msg.Metadata.Set(metadatapkg.KeyCorrelationID, "corr-1")

	svc.routeDeadLetter(msg, "orderCreated", errors.New("boom"))

	dlMsg := recorder.messages[0]
	if dlMsg.Metadata.Get(metadatapkg.KeyCorrelationID) != "corr-1" {
		t.Fatalf("expected correlation id to carry over, got %#v", dlMsg.Metadata)
	}
}
