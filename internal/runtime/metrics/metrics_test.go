package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestJobLifecycleCounters(t *testing.T) {
	m := NewJobMetrics(prometheus.NewRegistry())

	m.JobStarted("OrderPlaced")
	m.JobStarted("OrderPlaced")
	m.JobCompleted("OrderPlaced", 40*time.Millisecond)
	m.JobRetried("OrderPlaced")
	m.JobFailed("OrderPlaced")
	m.JobDeadLettered("OrderPlaced")

	tm := m.GetTypeMetrics("OrderPlaced")
	if tm == nil {
		t.Fatal("expected metrics for OrderPlaced")
	}
	if tm.JobsStarted != 2 {
		t.Errorf("JobsStarted = %d, want 2", tm.JobsStarted)
	}
	if tm.JobsCompleted != 1 {
		t.Errorf("JobsCompleted = %d, want 1", tm.JobsCompleted)
	}
	if tm.Retries != 1 {
		t.Errorf("Retries = %d, want 1", tm.Retries)
	}
	if tm.JobsFailed != 1 {
		t.Errorf("JobsFailed = %d, want 1", tm.JobsFailed)
	}
	if tm.JobsDeadLettered != 1 {
		t.Errorf("JobsDeadLettered = %d, want 1", tm.JobsDeadLettered)
	}
	if tm.AvgDurationMs != 40 {
		t.Errorf("AvgDurationMs = %v, want 40", tm.AvgDurationMs)
	}
}

func TestGetTypeMetricsUnknownType(t *testing.T) {
	m := NewJobMetrics(prometheus.NewRegistry())
	if got := m.GetTypeMetrics("Nope"); got != nil {
		t.Fatalf("expected nil for unknown type, got %+v", got)
	}
}

func TestGetTypeMetricsReturnsCopy(t *testing.T) {
	m := NewJobMetrics(prometheus.NewRegistry())
	m.JobStarted("OrderPlaced")

	tm := m.GetTypeMetrics("OrderPlaced")
	tm.JobsStarted = 99

	if again := m.GetTypeMetrics("OrderPlaced"); again.JobsStarted != 1 {
		t.Fatalf("internal state mutated through returned copy: %d", again.JobsStarted)
	}
}

func TestSnapshotTotals(t *testing.T) {
	m := NewJobMetrics(prometheus.NewRegistry())

	m.JobStarted("A")
	m.JobCompleted("A", time.Millisecond)
	m.JobStarted("B")
	m.JobRetried("B")
	m.JobFailed("B")
	m.JobDeadLettered("B")
	m.JobDropped("B")
	m.EventPublished("A")

	snap := m.GetSnapshot()
	if snap.TotalStarted != 2 {
		t.Errorf("TotalStarted = %d, want 2", snap.TotalStarted)
	}
	if snap.TotalCompleted != 1 {
		t.Errorf("TotalCompleted = %d, want 1", snap.TotalCompleted)
	}
	if snap.TotalFailed != 1 {
		t.Errorf("TotalFailed = %d, want 1", snap.TotalFailed)
	}
	if snap.TotalDeadLettered != 1 {
		t.Errorf("TotalDeadLettered = %d, want 1", snap.TotalDeadLettered)
	}
	if snap.TotalRetries != 1 {
		t.Errorf("TotalRetries = %d, want 1", snap.TotalRetries)
	}
	if len(snap.TypeMetrics) != 2 {
		t.Errorf("TypeMetrics size = %d, want 2", len(snap.TypeMetrics))
	}
	if snap.TypeMetrics["B"].JobsDropped != 1 {
		t.Errorf("JobsDropped = %d, want 1", snap.TypeMetrics["B"].JobsDropped)
	}
	if snap.TypeMetrics["A"].EventsPublished != 1 {
		t.Errorf("EventsPublished = %d, want 1", snap.TypeMetrics["A"].EventsPublished)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	if err := m.Register(); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if err := m.Register(); err != nil {
		t.Fatalf("second Register() = %v", err)
	}
}

func TestReset(t *testing.T) {
	m := NewJobMetrics(prometheus.NewRegistry())
	m.JobStarted("OrderPlaced")

	m.Reset()

	if got := m.GetTypeMetrics("OrderPlaced"); got != nil {
		t.Fatalf("expected empty metrics after reset, got %+v", got)
	}
}
