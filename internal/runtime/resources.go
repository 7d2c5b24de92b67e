package runtime

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

// Snapshots are served from cache for this long. Handler stats refresh on
// every finished message, and reading runtime metrics that often would cost
// more than the numbers are worth.
const resourceSampleInterval = time.Second

const (
	metricCPUSeconds = "/cpu/classes/user:cpu-seconds"
	metricHeapBytes  = "/memory/classes/heap/objects:bytes"
	metricGoroutines = "/sched/goroutines:goroutines"
	metricGCCycles   = "/gc/cycles/total:gc-cycles"
)

// resourceTracker reports process-level usage for handler stats snapshots.
// All registered handlers share one tracker, so the usage reflects the whole
// service rather than a single event type.
type resourceTracker struct {
	mu         sync.Mutex
	samples    []metrics.Sample
	lastCPU    float64
	lastSample time.Time
	cached     ResourceUsage
	numCPU     float64
}

func newResourceTracker() *resourceTracker {
	return &resourceTracker{
		samples: []metrics.Sample{
			{Name: metricCPUSeconds},
			{Name: metricHeapBytes},
			{Name: metricGoroutines},
			{Name: metricGCCycles},
		},
		numCPU: float64(runtime.NumCPU()),
	}
}

func (r *resourceTracker) Snapshot() ResourceUsage {
	if r == nil {
		return ResourceUsage{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if !r.lastSample.IsZero() && now.Sub(r.lastSample) < resourceSampleInterval {
		return r.cached
	}

	metrics.Read(r.samples)

	usage := ResourceUsage{SampledAt: now.UTC()}
	var cpuSeconds float64
	var haveCPU bool
	for _, sample := range r.samples {
		switch sample.Name {
		case metricCPUSeconds:
			if sample.Value.Kind() == metrics.KindFloat64 {
				cpuSeconds = sample.Value.Float64()
				haveCPU = true
			}
		case metricHeapBytes:
			if sample.Value.Kind() == metrics.KindUint64 {
				usage.HeapAllocBytes = sample.Value.Uint64()
			}
		case metricGoroutines:
			if sample.Value.Kind() == metrics.KindUint64 {
				usage.Goroutines = int(sample.Value.Uint64())
			}
		case metricGCCycles:
			if sample.Value.Kind() == metrics.KindUint64 {
				usage.GCCycles = sample.Value.Uint64()
			}
		}
	}

	if haveCPU && !r.lastSample.IsZero() && r.numCPU > 0 {
		deltaWall := now.Sub(r.lastSample).Seconds()
		if deltaWall > 0 {
			usage.CPUPercent = (cpuSeconds - r.lastCPU) / deltaWall / r.numCPU * 100
		}
	}
	if haveCPU {
		r.lastCPU = cpuSeconds
	}
	r.lastSample = now
	r.cached = usage

	return usage
}
