package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
	idspkg "github.com/luntra/eventflow/internal/runtime/ids"
	jsoncodec "github.com/luntra/eventflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/luntra/eventflow/internal/runtime/logging"
	metadatapkg "github.com/luntra/eventflow/internal/runtime/metadata"
	registrypkg "github.com/luntra/eventflow/internal/runtime/registry"
	retrypkg "github.com/luntra/eventflow/internal/runtime/retry"
)

// NoHandlerError reports a message whose event type has no registration. This
// is a configuration error, not an event failure: the message is acknowledged
// and never dead-lettered.
type NoHandlerError struct {
	EventType string
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("no handler registered for event type %q", e.EventType)
}

// JobFailedError reports an event whose handler failed every allowed attempt.
// By the time it is surfaced the event has already been dead-lettered.
type JobFailedError struct {
	EventID   string
	EventType string
	Attempts  int
	Cause     error
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job for event %s (%s) failed after %d attempts: %v", e.EventID, e.EventType, e.Attempts, e.Cause)
}

func (e *JobFailedError) Unwrap() error { return e.Cause }

// UnprocessableEventError wraps payloads that failed decoding.
type UnprocessableEventError struct {
	EventType string
	Err       error
}

func (e *UnprocessableEventError) Error() string {
	return fmt.Sprintf("unprocessable %s event: %v", e.EventType, e.Err)
}

func (e *UnprocessableEventError) Unwrap() error { return e.Err }

// ProcessEvent runs the registered handler for eventType against a raw
// payload, outside the router. It applies the same retry and dead-letter
// semantics as the subscribe pipeline but reports the terminal outcome to the
// caller instead of acking it away: NoHandlerError for an unknown type,
// UnprocessableEventError for a payload that does not decode, JobFailedError
// once the attempts are spent.
func (s *Service) ProcessEvent(ctx context.Context, eventType string, payload []byte) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	if eventType == "" {
		return errspkg.ErrEventTypeRequired
	}

	s.metrics.JobStarted(eventType)

	reg, ok := s.registry.Lookup(eventType)
	if !ok {
		s.metrics.JobFailed(eventType)
		return &NoHandlerError{EventType: eventType}
	}

	evt := reg.NewEvent()
	if err := jsoncodec.Unmarshal(payload, evt); err != nil {
		s.metrics.JobDropped(eventType)
		return &UnprocessableEventError{EventType: eventType, Err: err}
	}

	start := time.Now()
	policy := s.retryPolicy
	policy.OnRetry = func(attempt int, delay time.Duration, attemptErr error) {
		s.metrics.JobRetried(eventType)
		s.Logger.Warn("Job attempt failed, retrying", loggingpkg.LogFields{
			"event_type": eventType,
			"attempt":    attempt,
			"retry_in":   delay.String(),
			"error":      attemptErr.Error(),
		})
	}

	err := policy.Execute(ctx, func(ctx context.Context) error {
		return invokeHandler(ctx, reg, evt)
	})
	if err == nil {
		s.metrics.JobCompleted(eventType, time.Since(start))
		return nil
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return err
	}

	var exhausted *retrypkg.ExhaustedError
	if !errors.As(err, &exhausted) {
		exhausted = &retrypkg.ExhaustedError{Attempts: 1, LastErr: err}
	}

	s.metrics.JobFailed(eventType)

	msg := message.NewMessage(idspkg.NewID(), payload)
	msg.Metadata.Set(metadatapkg.KeyEventType, eventType)
	msg.SetContext(ctx)
	s.routeDeadLetter(msg, eventType, exhausted.LastErr)

	return &JobFailedError{
		EventType: eventType,
		Attempts:  exhausted.Attempts,
		Cause:     exhausted.LastErr,
	}
}

// jobPipeline turns a registration into the message handler executed by the
// router. The pipeline owns retries and dead-letter routing, so it always
// acknowledges. The only error it returns is context cancellation during
// shutdown, which leaves the message for redelivery.
func (s *Service) jobPipeline(reg registrypkg.Registration) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		eventType := msg.Metadata.Get(metadatapkg.KeyEventType)
		if eventType == "" {
			eventType = reg.EventType
		}

		s.metrics.JobStarted(eventType)

		active := reg
		if eventType != reg.EventType {
			lookup, ok := s.registry.Lookup(eventType)
			if !ok {
				return s.handleMissingRegistration(msg, eventType)
			}
			active = lookup
		}

		jobCtx := newJobContext(msg, eventType)
		if s.hooks.OnJobStart != nil {
			s.hooks.OnJobStart(jobCtx)
		}

		evt := active.NewEvent()
		if err := jsoncodec.Unmarshal(msg.Payload, evt); err != nil {
			// Undecodable payloads would fail identically on every redelivery.
			s.Logger.Warn("Dropping undecodable event payload", loggingpkg.LogFields{
				"event_type":   eventType,
				"message_uuid": msg.UUID,
				"error":        err.Error(),
			})
			s.metrics.JobDropped(eventType)
			return nil
		}

		start := time.Now()
		policy := s.retryPolicy
		policy.OnRetry = func(attempt int, delay time.Duration, attemptErr error) {
			s.metrics.JobRetried(eventType)
			s.Logger.Warn("Job attempt failed, retrying", loggingpkg.LogFields{
				"event_type":   eventType,
				"message_uuid": msg.UUID,
				"attempt":      attempt,
				"retry_in":     delay.String(),
				"error":        attemptErr.Error(),
			})
		}

		err := policy.Execute(msg.Context(), func(ctx context.Context) error {
			return invokeHandler(ctx, active, evt)
		})
		duration := time.Since(start)
		jobCtx.Duration = duration

		if err == nil {
			s.metrics.JobCompleted(eventType, duration)
			if s.hooks.OnJobDone != nil {
				s.hooks.OnJobDone(jobCtx)
			}
			return nil
		}

		// Shutdown is not a job failure. Leave the message unacked so the
		// broker redelivers it once the service is back.
		if errors.Is(err, context.Canceled) || msg.Context().Err() != nil {
			return err
		}

		var exhausted *retrypkg.ExhaustedError
		if !errors.As(err, &exhausted) {
			exhausted = &retrypkg.ExhaustedError{Attempts: 1, LastErr: err}
		}

		s.metrics.JobFailed(eventType)

		failure := &JobFailedError{
			EventID:   msg.Metadata.Get(metadatapkg.KeyEventID),
			EventType: eventType,
			Attempts:  exhausted.Attempts,
			Cause:     exhausted.LastErr,
		}
		if s.hooks.OnJobError != nil {
			s.hooks.OnJobError(jobCtx, failure)
		}

		s.routeDeadLetter(msg, eventType, exhausted.LastErr)

		s.Logger.Error("Job exhausted all attempts", failure, loggingpkg.LogFields{
			"event_type":   eventType,
			"message_uuid": msg.UUID,
			"attempts":     exhausted.Attempts,
			"duration":     duration.String(),
		})
		return nil
	}
}

// invokeHandler runs one handler attempt. A panic becomes the attempt's
// error, so panicking handlers ride the retry and dead-letter path instead of
// surfacing to the broker as a nacked message.
func invokeHandler(ctx context.Context, reg registrypkg.Registration, evt any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return reg.Invoke(ctx, evt)
}

func (s *Service) handleMissingRegistration(msg *message.Message, eventType string) error {
	err := &NoHandlerError{EventType: eventType}
	s.metrics.JobFailed(eventType)
	s.Logger.Error("No handler registered for event", err, loggingpkg.LogFields{
		"event_type":   eventType,
		"message_uuid": msg.UUID,
	})
	return nil
}

func newJobContext(msg *message.Message, eventType string) JobContext {
	return JobContext{
		EventType:   eventType,
		EventID:     msg.Metadata.Get(metadatapkg.KeyEventID),
		MessageUUID: msg.UUID,
		Metadata:    msg.Metadata,
		Context:     msg.Context(),
		StartedAt:   time.Now(),
	}
}
