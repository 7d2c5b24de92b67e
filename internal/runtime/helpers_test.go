package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/luntra/eventflow/internal/runtime/config"
	eventpkg "github.com/luntra/eventflow/internal/runtime/event"
	loggingpkg "github.com/luntra/eventflow/internal/runtime/logging"
	metricspkg "github.com/luntra/eventflow/internal/runtime/metrics"
	registrypkg "github.com/luntra/eventflow/internal/runtime/registry"
	retrypkg "github.com/luntra/eventflow/internal/runtime/retry"
)

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

type testPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, topic)
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]string, len(p.published))
	copy(clone, p.published)
	return clone
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

// orderCreated is the event type used throughout the package tests.
type orderCreated struct {
	eventpkg.Base

	Reference string `json:"reference"`
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := newTestLogger()
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		t.Fatalf("router init failed: %v", err)
	}
	conf := &configpkg.Config{
		ExchangeName:       configpkg.DefaultExchangeName,
		DeadLetterExchange: configpkg.DefaultDeadLetterExchange,
	}
	return &Service{
		Conf:            conf,
		Logger:          log,
		router:          router,
		publisher:       &testPublisher{},
		subscriber:      &testSubscriber{},
		registry:        registrypkg.New(),
		metrics:         metricspkg.NewJobMetrics(prometheus.NewRegistry()),
		errorClassifier: defaultErrorClassifier,
		resourceTracker: newResourceTracker(),
		retryPolicy: retrypkg.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
		},
	}
}
