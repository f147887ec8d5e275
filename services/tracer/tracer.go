// Package tracer measures pipeline-stage timings with bounded rolling
// windows and on-demand percentile statistics.
package tracer

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples is the rolling window size per stage.
const DefaultMaxSamples = 10000

// Stats are the aggregate latency statistics for one stage, in microseconds.
type Stats struct {
	MinUs    float64 `json:"min_us"`
	MaxUs    float64 `json:"max_us"`
	MeanUs   float64 `json:"mean_us"`
	MedianUs float64 `json:"median_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
	Samples  int     `json:"samples"`
}

// StageStats pairs a stage name with its statistics.
type StageStats struct {
	Stage string `json:"stage"`
	Stats Stats  `json:"stats"`
}

// Summary is the contribution-ranked view across all stages: stages sorted
// by mean latency descending, with the summed means compared to a target.
type Summary struct {
	Stages      []StageStats `json:"stages"`
	TotalMeanUs float64      `json:"total_mean_us"`
	TargetUs    float64      `json:"target_us"`
	Pass        bool         `json:"pass"`
}

// window is a fixed-capacity FIFO ring of microsecond samples.
type window struct {
	samples []float64
	next    int
	full    bool
}

func (w *window) add(v float64, max int) {
	if !w.full && len(w.samples) < max {
		w.samples = append(w.samples, v)
		if len(w.samples) == max {
			w.full = true
		}
		return
	}
	w.samples[w.next] = v
	w.next = (w.next + 1) % len(w.samples)
}

// Tracer records elapsed time per named stage. Windows are created lazily
// on first sample and live for the process lifetime.
type Tracer struct {
	mu         sync.Mutex
	windows    map[string]*window
	maxSamples int
}

// New creates a tracer; maxSamples <= 0 selects DefaultMaxSamples.
func New(maxSamples int) *Tracer {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Tracer{
		windows:    make(map[string]*window),
		maxSamples: maxSamples,
	}
}

// Trace starts a timing for the stage and returns the function that stops
// it. Deferred at the top of an operation it records unconditionally, on
// the failure path too:
//
//	defer t.Trace("gas_estimation")()
func (t *Tracer) Trace(stage string) func() {
	start := time.Now()
	return func() {
		t.Record(stage, time.Since(start))
	}
}

// Record appends one sample to the stage's rolling window
func (t *Tracer) Record(stage string, d time.Duration) {
	us := float64(d.Nanoseconds()) / 1000

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[stage]
	if !ok {
		w = &window{}
		t.windows[stage] = w
	}
	w.add(us, t.maxSamples)
}

// Stats computes statistics over the stage's current window. The second
// return is false when the stage has no data.
func (t *Tracer) Stats(stage string) (Stats, bool) {
	t.mu.Lock()
	w, ok := t.windows[stage]
	if !ok || len(w.samples) == 0 {
		t.mu.Unlock()
		return Stats{}, false
	}
	samples := make([]float64, len(w.samples))
	copy(samples, w.samples)
	t.mu.Unlock()

	return computeStats(samples), true
}

// AllStats returns statistics for every stage with data
func (t *Tracer) AllStats() map[string]Stats {
	t.mu.Lock()
	copies := make(map[string][]float64, len(t.windows))
	for stage, w := range t.windows {
		if len(w.samples) == 0 {
			continue
		}
		s := make([]float64, len(w.samples))
		copy(s, w.samples)
		copies[stage] = s
	}
	t.mu.Unlock()

	out := make(map[string]Stats, len(copies))
	for stage, samples := range copies {
		out[stage] = computeStats(samples)
	}
	return out
}

// Summary aggregates all stages sorted by mean latency descending and sums
// the means into an end-to-end total compared against targetUs.
func (t *Tracer) Summary(targetUs float64) Summary {
	all := t.AllStats()

	stages := make([]StageStats, 0, len(all))
	total := 0.0
	for stage, stats := range all {
		stages = append(stages, StageStats{Stage: stage, Stats: stats})
		total += stats.MeanUs
	}

	sort.Slice(stages, func(i, j int) bool {
		if stages[i].Stats.MeanUs != stages[j].Stats.MeanUs {
			return stages[i].Stats.MeanUs > stages[j].Stats.MeanUs
		}
		return stages[i].Stage < stages[j].Stage
	})

	return Summary{
		Stages:      stages,
		TotalMeanUs: total,
		TargetUs:    targetUs,
		Pass:        total < targetUs,
	}
}

func computeStats(samples []float64) Stats {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	n := len(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	stats := Stats{
		MinUs:    sorted[0],
		MaxUs:    sorted[n-1],
		MeanUs:   sum / float64(n),
		MedianUs: median,
		Samples:  n,
	}

	// Quantile estimates are meaningless on sparse windows; degrade to max.
	stats.P95Us = sorted[n-1]
	if n >= 20 {
		stats.P95Us = sorted[quantileIndex(n, 95)]
	}
	stats.P99Us = sorted[n-1]
	if n >= 100 {
		stats.P99Us = sorted[quantileIndex(n, 99)]
	}

	return stats
}

func quantileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}
