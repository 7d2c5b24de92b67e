package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics tracks job processing statistics per event type.
type JobMetrics struct {
	mu sync.RWMutex

	// Per-event-type counts
	typeCounts map[string]*EventTypeMetrics

	// Prometheus collectors
	startedTotal      *prometheus.CounterVec
	completedTotal    *prometheus.CounterVec
	failedTotal       *prometheus.CounterVec
	deadLetteredTotal *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	droppedTotal      *prometheus.CounterVec
	publishedTotal    *prometheus.CounterVec
	durationHist      *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

// EventTypeMetrics holds the counters for a single event type.
type EventTypeMetrics struct {
	JobsStarted      uint64    `json:"jobs_started"`
	JobsCompleted    uint64    `json:"jobs_completed"`
	JobsFailed       uint64    `json:"jobs_failed"`
	JobsDeadLettered uint64    `json:"jobs_dead_lettered"`
	JobsDropped      uint64    `json:"jobs_dropped"`
	Retries          uint64    `json:"retries"`
	EventsPublished  uint64    `json:"events_published"`
	AvgDurationMs    float64   `json:"avg_duration_ms"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
}

// Snapshot provides a point-in-time view of job metrics.
type Snapshot struct {
	TotalStarted      uint64                       `json:"total_started"`
	TotalCompleted    uint64                       `json:"total_completed"`
	TotalFailed       uint64                       `json:"total_failed"`
	TotalDeadLettered uint64                       `json:"total_dead_lettered"`
	TotalRetries      uint64                       `json:"total_retries"`
	TypeMetrics       map[string]*EventTypeMetrics `json:"type_metrics"`
	CollectedAt       time.Time                    `json:"collected_at"`
}

// newJobCounterVec creates a new counter vec with standard eventflow/jobs namespace.
func newJobCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventflow",
			Subsystem: "jobs",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// newJobHistogramVec creates a new histogram vec with standard eventflow/jobs namespace.
func newJobHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventflow",
			Subsystem: "jobs",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// NewJobMetrics creates a new job metrics collector.
func NewJobMetrics(registerer prometheus.Registerer) *JobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &JobMetrics{
		typeCounts:        make(map[string]*EventTypeMetrics),
		registerer:        registerer,
		startedTotal:      newJobCounterVec("started_total", "Total number of jobs started", []string{"event_type"}),
		completedTotal:    newJobCounterVec("completed_total", "Total number of jobs completed successfully", []string{"event_type"}),
		failedTotal:       newJobCounterVec("failed_total", "Total number of jobs that ended in failure", []string{"event_type"}),
		deadLetteredTotal: newJobCounterVec("dead_lettered_total", "Total number of jobs routed to the dead letter exchange", []string{"event_type"}),
		retriesTotal:      newJobCounterVec("retries_total", "Total number of retry attempts", []string{"event_type"}),
		droppedTotal:      newJobCounterVec("dropped_total", "Total number of undecodable messages dropped", []string{"event_type"}),
		publishedTotal:    newJobCounterVec("events_published_total", "Total number of events published to the bus", []string{"event_type"}),
		durationHist:      newJobHistogramVec("duration_seconds", "Time spent processing a job, including retries", []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}, []string{"event_type"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *JobMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.startedTotal,
		m.completedTotal,
		m.failedTotal,
		m.deadLetteredTotal,
		m.retriesTotal,
		m.droppedTotal,
		m.publishedTotal,
		m.durationHist,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			// Check if it's already registered (not an error)
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// JobStarted records a job beginning to process an event.
func (m *JobMetrics) JobStarted(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.JobsStarted++
	tm.LastUpdatedAt = time.Now()

	m.startedTotal.WithLabelValues(eventType).Inc()
}

// JobCompleted records a successful job together with its total duration.
func (m *JobMetrics) JobCompleted(eventType string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.JobsCompleted++
	tm.LastUpdatedAt = time.Now()

	// Rolling average over completed jobs.
	total := tm.JobsCompleted
	tm.AvgDurationMs = ((tm.AvgDurationMs * float64(total-1)) + float64(duration.Milliseconds())) / float64(total)

	m.completedTotal.WithLabelValues(eventType).Inc()
	m.durationHist.WithLabelValues(eventType).Observe(duration.Seconds())
}

// JobFailed records a job ending in failure after all attempts.
func (m *JobMetrics) JobFailed(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.JobsFailed++
	tm.LastUpdatedAt = time.Now()

	m.failedTotal.WithLabelValues(eventType).Inc()
}

// JobDeadLettered records a job whose event was routed to the dead letter
// exchange.
func (m *JobMetrics) JobDeadLettered(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.JobsDeadLettered++
	tm.LastUpdatedAt = time.Now()

	m.deadLetteredTotal.WithLabelValues(eventType).Inc()
}

// JobRetried records one failed attempt that will be retried.
func (m *JobMetrics) JobRetried(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.Retries++
	tm.LastUpdatedAt = time.Now()

	m.retriesTotal.WithLabelValues(eventType).Inc()
}

// JobDropped records a message discarded before processing, for example
// because its payload could not be decoded.
func (m *JobMetrics) JobDropped(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.JobsDropped++
	tm.LastUpdatedAt = time.Now()

	m.droppedTotal.WithLabelValues(eventType).Inc()
}

// EventPublished records an event handed to the bus.
func (m *JobMetrics) EventPublished(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.getOrCreateTypeMetrics(eventType)
	tm.EventsPublished++
	tm.LastUpdatedAt = time.Now()

	m.publishedTotal.WithLabelValues(eventType).Inc()
}

// GetSnapshot returns a point-in-time snapshot of all job metrics.
func (m *JobMetrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := Snapshot{
		TypeMetrics: make(map[string]*EventTypeMetrics),
		CollectedAt: time.Now(),
	}

	for eventType, tm := range m.typeCounts {
		copied := *tm
		snapshot.TypeMetrics[eventType] = &copied
		snapshot.TotalStarted += tm.JobsStarted
		snapshot.TotalCompleted += tm.JobsCompleted
		snapshot.TotalFailed += tm.JobsFailed
		snapshot.TotalDeadLettered += tm.JobsDeadLettered
		snapshot.TotalRetries += tm.Retries
	}

	return snapshot
}

// GetTypeMetrics returns a copy of the counters for one event type, or nil
// when the type has never been seen.
func (m *JobMetrics) GetTypeMetrics(eventType string) *EventTypeMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tm, ok := m.typeCounts[eventType]; ok {
		copied := *tm
		return &copied
	}
	return nil
}

func (m *JobMetrics) getOrCreateTypeMetrics(eventType string) *EventTypeMetrics {
	if tm, ok := m.typeCounts[eventType]; ok {
		return tm
	}
	tm := &EventTypeMetrics{}
	m.typeCounts[eventType] = tm
	return tm
}

// Reset resets all metrics (useful for testing).
func (m *JobMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.typeCounts = make(map[string]*EventTypeMetrics)
	m.startedTotal.Reset()
	m.completedTotal.Reset()
	m.failedTotal.Reset()
	m.deadLetteredTotal.Reset()
	m.retriesTotal.Reset()
	m.droppedTotal.Reset()
	m.publishedTotal.Reset()
	m.durationHist.Reset()
}
