package health

import (
	"sync"
	"time"
)

const (
	// A provider is marked unhealthy after this many consecutive failures.
	maxConsecutiveFailures = 3

	// Smoothed success-rate rule: hard-set on success, decayed on failure.
	initialSuccessRate   = 0.95
	successRateOnSuccess = 0.98
	successRateDecay     = 0.9
)

// Snapshot is an immutable copy of one provider's health record.
type Snapshot struct {
	Name                string    `json:"name"`
	Healthy             bool      `json:"healthy"`
	LatencyMs           float64   `json:"latency_ms"`
	SuccessCount        uint64    `json:"success_count"`
	ErrorCount          uint64    `json:"error_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	SuccessRate         float64   `json:"success_rate"`
	LastCheckedAt       time.Time `json:"last_checked_at"`
	LastError           string    `json:"last_error,omitempty"`
}

// record is the mutable health state for one provider. Each record has its
// own lock; no operation spans multiple providers under a single lock.
type record struct {
	mu                  sync.Mutex
	name                string
	healthy             bool
	latency             time.Duration
	successCount        uint64
	errorCount          uint64
	consecutiveFailures int
	successRate         float64
	lastCheckedAt       time.Time
	lastErr             error
}

// State is a fixed arena of health records, one per provider, created at
// startup in registry order. Writers are the checker and the router's
// post-attempt hook; readers take copy-on-read snapshots.
type State struct {
	records          []*record
	byName           map[string]*record
	unhealthyLatency time.Duration
}

// NewState creates records for the given provider names (registry order).
// Providers start healthy with the initial smoothed success rate.
func NewState(names []string, unhealthyLatency time.Duration) *State {
	s := &State{
		records:          make([]*record, 0, len(names)),
		byName:           make(map[string]*record, len(names)),
		unhealthyLatency: unhealthyLatency,
	}
	for _, name := range names {
		rec := &record{
			name:        name,
			healthy:     true,
			successRate: initialSuccessRate,
		}
		s.records = append(s.records, rec)
		s.byName[name] = rec
	}
	return s
}

// RecordProbeSuccess applies a successful probe: the healthy flag follows
// the latency threshold and consecutive failures reset.
func (s *State) RecordProbeSuccess(name string, latency time.Duration) {
	rec, ok := s.byName[name]
	if !ok {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.healthy = latency < s.unhealthyLatency
	rec.latency = latency
	rec.successCount++
	rec.consecutiveFailures = 0
	rec.successRate = successRateOnSuccess
	rec.lastCheckedAt = time.Now()
	rec.lastErr = nil
}

// RecordProbeFailure applies a failed probe. The provider turns unhealthy
// only once failures reach the consecutive threshold.
func (s *State) RecordProbeFailure(name string, err error) {
	rec, ok := s.byName[name]
	if !ok {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.errorCount++
	rec.consecutiveFailures++
	if rec.consecutiveFailures >= maxConsecutiveFailures {
		rec.healthy = false
	}
	rec.successRate = clampRate(rec.successRate * successRateDecay)
	rec.lastCheckedAt = time.Now()
	rec.lastErr = err
}

// RecordUseSuccess applies a successful request-path attempt. It strengthens
// the health signal (counters, latency, success rate) but leaves the healthy
// flag to the probe cycle.
func (s *State) RecordUseSuccess(name string, latency time.Duration) {
	rec, ok := s.byName[name]
	if !ok {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.latency = latency
	rec.successCount++
	rec.consecutiveFailures = 0
	rec.successRate = successRateOnSuccess
	rec.lastCheckedAt = time.Now()
	rec.lastErr = nil
}

// RecordUseFailure applies a failed request-path attempt. Same degradation
// rule as probe failures.
func (s *State) RecordUseFailure(name string, err error) {
	s.RecordProbeFailure(name, err)
}

// Get returns a snapshot of one provider's record
func (s *State) Get(name string) (Snapshot, bool) {
	rec, ok := s.byName[name]
	if !ok {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// Snapshot returns an immutable copy of every record, safe for concurrent
// reads; each record is locked briefly, never the whole state.
func (s *State) Snapshot() map[string]Snapshot {
	out := make(map[string]Snapshot, len(s.records))
	for _, rec := range s.records {
		out[rec.name] = rec.snapshot()
	}
	return out
}

// HealthyCount returns the number of providers currently marked healthy
func (s *State) HealthyCount() int {
	n := 0
	for _, rec := range s.records {
		rec.mu.Lock()
		if rec.healthy {
			n++
		}
		rec.mu.Unlock()
	}
	return n
}

// Count returns the number of tracked providers
func (s *State) Count() int {
	return len(s.records)
}

func (r *record) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Name:                r.name,
		Healthy:             r.healthy,
		LatencyMs:           float64(r.latency.Nanoseconds()) / 1e6,
		SuccessCount:        r.successCount,
		ErrorCount:          r.errorCount,
		ConsecutiveFailures: r.consecutiveFailures,
		SuccessRate:         r.successRate,
		LastCheckedAt:       r.lastCheckedAt,
	}
	if r.lastErr != nil {
		snap.LastError = r.lastErr.Error()
	}
	return snap
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
