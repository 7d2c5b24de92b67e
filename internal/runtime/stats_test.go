package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	idspkg "github.com/luntra/eventflow/internal/runtime/ids"
	retrypkg "github.com/luntra/eventflow/internal/runtime/retry"
)

func TestHandlerStatsRecordsProcessing(t *testing.T) {
	stats := newHandlerStats("orderCreated-Handler", "integration_events.orderCreated", nil)

	stats.onMessageStart()
	if stats.InFlight != 1 {
		t.Fatalf("expected one in-flight message, got %d", stats.InFlight)
	}
	stats.onMessageFinish(10*time.Millisecond, nil, nil)

	stats.onMessageStart()
	stats.onMessageFinish(20*time.Millisecond, errors.New("boom"), nil)

	if stats.InFlight != 0 {
		t.Fatalf("expected no in-flight messages, got %d", stats.InFlight)
	}
	if stats.MessagesProcessed != 2 {
		t.Fatalf("expected 2 processed messages, got %d", stats.MessagesProcessed)
	}
	if stats.MessagesFailed != 1 {
		t.Fatalf("expected 1 failed message, got %d", stats.MessagesFailed)
	}
	if stats.TotalProcessingTime != int64(30*time.Millisecond) {
		t.Fatalf("unexpected total processing time: %d", stats.TotalProcessingTime)
	}
	if stats.LastProcessedAt.IsZero() {
		t.Fatal("expected last processed timestamp")
	}
	if stats.Latency.LastNs != int64(20*time.Millisecond) {
		t.Fatalf("unexpected last latency: %d", stats.Latency.LastNs)
	}
	if stats.Throughput.TotalMessages != 2 {
		t.Fatalf("unexpected throughput total: %d", stats.Throughput.TotalMessages)
	}
	if stats.Errors.Other != 1 || stats.Errors.LastError != "boom" {
		t.Fatalf("unexpected error breakdown: %#v", stats.Errors)
	}
}

func TestDefaultErrorClassifier(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrorCategoryNone},
		{"timeout", &retrypkg.TimeoutError{Attempt: 1, Timeout: time.Second}, ErrorCategoryTimeout},
		{"cancelled", context.Canceled, ErrorCategoryCancelled},
		{"job failed", &JobFailedError{Cause: errors.New("boom")}, ErrorCategoryHandler},
		{"exhausted", &retrypkg.ExhaustedError{Attempts: 3, LastErr: errors.New("boom")}, ErrorCategoryHandler},
		{"other", errors.New("boom"), ErrorCategoryOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := defaultErrorClassifier(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestWrapPipelineWithStats(t *testing.T) {
	stats := newHandlerStats("orderCreated-Handler", "integration_events.orderCreated", nil)

	boom := errors.New("boom")
	calls := 0
	wrapped := wrapPipelineWithStats(func(msg *message.Message) error {
		calls++
		if calls == 1 {
			return nil
		}
		return boom
	}, stats, defaultErrorClassifier)

	msg := message.NewMessage(idspkg.NewID(), nil)
	if err := wrapped(msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := wrapped(msg); !errors.Is(err, boom) {
		t.Fatalf("expected pipeline error to propagate, got %v", err)
	}

	if stats.MessagesProcessed != 2 || stats.MessagesFailed != 1 {
		t.Fatalf("unexpected stats: processed=%d failed=%d", stats.MessagesProcessed, stats.MessagesFailed)
	}
	if stats.Errors.Other != 1 {
		t.Fatalf("unexpected error breakdown: %#v", stats.Errors)
	}
}

func TestLatencyWindowPercentiles(t *testing.T) {
	lw := newLatencyWindow(8)
	for i := 1; i <= 8; i++ {
		lw.Add(time.Duration(i) * time.Millisecond)
	}

	snapshot := lw.Snapshot()
	if snapshot.SampleSize != 8 {
		t.Fatalf("unexpected sample size: %d", snapshot.SampleSize)
	}
	if snapshot.P50Ns <= 0 || snapshot.P95Ns < snapshot.P50Ns || snapshot.P99Ns < snapshot.P95Ns {
		t.Fatalf("unexpected percentile ordering: %#v", snapshot)
	}
	if snapshot.LastNs != int64(8*time.Millisecond) {
		t.Fatalf("unexpected last latency: %d", snapshot.LastNs)
	}
	if want := int64(4500 * time.Microsecond); snapshot.AverageNs != want {
		t.Fatalf("unexpected average latency: %d, want %d", snapshot.AverageNs, want)
	}
}

func TestPercentileBounds(t *testing.T) {
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("expected zero for empty samples, got %d", got)
	}
	samples := []int64{10, 20, 30, 40}
	if got := percentile(samples, 0); got != 10 {
		t.Fatalf("unexpected 0th percentile: %d", got)
	}
	if got := percentile(samples, 1); got != 40 {
		t.Fatalf("unexpected 100th percentile: %d", got)
	}
}
