package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker stores recent duration samples per pipeline stage and
// computes percentiles. It is safe for concurrent batch runs.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples map[string][]time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker storing up to maxSize samples per stage.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{samples: make(map[string][]time.Duration), maxSize: maxSize}
}

// Observe records a new duration for stage.
func (l *LatencyTracker) Observe(stage string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	samples := append(l.samples[stage], d)
	if len(samples) > l.maxSize {
		// Drop oldest sample to bound memory.
		copy(samples[0:], samples[1:])
		samples = samples[:l.maxSize]
	}
	l.samples[stage] = samples
}

// Time runs fn and records its duration under stage.
func (l *LatencyTracker) Time(stage string, fn func()) {
	start := time.Now()
	fn()
	l.Observe(stage, time.Since(start))
}

// Percentile returns the percentile (0-100) duration for stage. Returns zero
// if no samples.
func (l *LatencyTracker) Percentile(stage string, p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	samples := l.samples[stage]
	if len(samples) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := int((p / 100.0) * float64(len(sorted)-1))
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// Count returns number of samples recorded for stage.
func (l *LatencyTracker) Count(stage string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples[stage])
}

// Stages lists stages with at least one sample, sorted by name.
func (l *LatencyTracker) Stages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stages := make([]string, 0, len(l.samples))
	for stage := range l.samples {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}
