package runtime

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	registrypkg "github.com/luntra/eventflow/internal/runtime/registry"
)

// EventHandler processes a single decoded integration event.
type EventHandler[T any] func(ctx context.Context, evt T) error

// RegisterEventHandler binds a typed handler to the event type T and
// subscribes it on the bus. T must be a pointer to a struct, usually one
// embedding event.Base. The type name and decode closures are derived once
// here; dispatch never touches reflection.
func RegisterEventHandler[T any](svc *Service, handler EventHandler[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	prototype, elem, err := eventPrototype[T]()
	if err != nil {
		return err
	}

	eventType := eventpkg.TypeName(prototype())
	if eventType == "" {
		return errspkg.ErrEventTypeRequired
	}

	reg := registrypkg.Registration{
		EventType: eventType,
		NewEvent: func() any {
			return reflect.New(elem).Interface()
		},
		Invoke: func(ctx context.Context, evt any) error {
			typed, ok := evt.(T)
			if !ok {
				return fmt.Errorf("event registry returned %T for event type %s", evt, eventType)
			}
			return handler(ctx, typed)
		},
	}

	if err := svc.registry.Register(reg); err != nil {
		return err
	}

	topic := TopicForEvent(svc.Conf.ExchangeName, eventType)
	name := eventType + "-Handler"

	return svc.addRouterHandler(name, topic, eventType, svc.jobPipeline(reg))
}

func eventPrototype[T any]() (func() T, reflect.Type, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, nil, errspkg.ErrEventPointerRequired
	}
	elem := typ.Elem()
	return func() T {
		return reflect.New(elem).Interface().(T)
	}, elem, nil
}

// addRouterHandler attaches a consume-only pipeline to the router, wrapping
// it with per-handler statistics.
func (s *Service) addRouterHandler(name, topic, eventType string, pipeline message.NoPublishHandlerFunc) error {
	if pipeline == nil {
		return errspkg.ErrHandlerRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	stats := newHandlerStats(name, topic, s.getResourceTracker())
	info := &HandlerInfo{
		Name:      name,
		Topic:     topic,
		EventType: eventType,
		Stats:     stats,
	}

	s.handlersMu.Lock()
	s.handlers = append(s.handlers, info)
	s.handlersMu.Unlock()

	wrapped := wrapPipelineWithStats(pipeline, stats, s.getErrorClassifier())

	s.router.AddNoPublisherHandler(
		name,
		topic,
		s.subscriber,
		wrapped,
	)

	return nil
}

func wrapPipelineWithStats(pipeline message.NoPublishHandlerFunc, stats *HandlerStats, classifier ErrorClassifier) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		stats.onMessageStart()
		start := time.Now()
		err := pipeline(msg)
		duration := time.Since(start)

		stats.onMessageFinish(duration, err, classifier)

		return err
	}
}
