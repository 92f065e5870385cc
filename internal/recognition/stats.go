// internal/recognition/stats.go
package recognition

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/metrics"
)

// StatsSink receives observability events from the orchestrator. Sinks
// must be safe for concurrent use; the orchestrator calls them from
// arbitrarily many request goroutines. Counters feed dashboards only
// and never influence recognition decisions.
type StatsSink interface {
	RecordAttempt()
	RecordAcceptance(tier Tier)
	RecordFallback()
	RecordTierDuration(tier Tier, d time.Duration)
}

// MemorySink counts events with atomics. Each test can own an isolated
// instance instead of sharing process-wide state.
type MemorySink struct {
	attempts  atomic.Int64
	fallbacks atomic.Int64

	mu       sync.Mutex
	accepted map[Tier]int64
}

func NewMemorySink() *MemorySink {
	return &MemorySink{accepted: make(map[Tier]int64)}
}

func (s *MemorySink) RecordAttempt()  { s.attempts.Add(1) }
func (s *MemorySink) RecordFallback() { s.fallbacks.Add(1) }

func (s *MemorySink) RecordAcceptance(tier Tier) {
	s.mu.Lock()
	s.accepted[tier]++
	s.mu.Unlock()
}

func (s *MemorySink) RecordTierDuration(Tier, time.Duration) {}

// Snapshot returns current counts; the acceptance map is a copy.
func (s *MemorySink) Snapshot() (attempts, fallbacks int64, accepted map[Tier]int64) {
	s.mu.Lock()
	accepted = make(map[Tier]int64, len(s.accepted))
	for k, v := range s.accepted {
		accepted[k] = v
	}
	s.mu.Unlock()
	return s.attempts.Load(), s.fallbacks.Load(), accepted
}

// PrometheusSink forwards events to the process-wide Prometheus
// collectors.
type PrometheusSink struct{}

func NewPrometheusSink() *PrometheusSink { return &PrometheusSink{} }

func (PrometheusSink) RecordAttempt() { metrics.RecognitionAttempts.Inc() }

func (PrometheusSink) RecordAcceptance(tier Tier) {
	metrics.RecognitionAccepted.WithLabelValues(string(tier)).Inc()
}

func (PrometheusSink) RecordFallback() { metrics.RecognitionFallbacks.Inc() }

func (PrometheusSink) RecordTierDuration(tier Tier, d time.Duration) {
	metrics.RecognitionTierDuration.WithLabelValues(string(tier)).Observe(d.Seconds())
}
