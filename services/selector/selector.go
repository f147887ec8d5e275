// Package selector ranks candidate providers for a request. Both policies
// are pure functions of the registry entries and a health snapshot, so they
// carry no hidden state and are independently testable.
package selector

import (
	"math/bits"
	"sort"

	"github.com/nodegate/nodegate/services/health"
	"github.com/nodegate/nodegate/services/registry"
)

// Policy names a ranking strategy
type Policy string

const (
	// PolicyLatency ranks healthy providers by last observed latency.
	PolicyLatency Policy = "latency"

	// PolicyCost ranks operational providers by health-adjusted fee cost.
	PolicyCost Policy = "cost"
)

// RankLatency returns candidates best-first: healthy providers sorted by
// last observed latency ascending, ties broken by registration order. When
// no provider is healthy it falls back to the full set in registration
// order. A degraded candidate is still better than refusing the call.
func RankLatency(entries []*registry.Entry, snap map[string]health.Snapshot) []*registry.Entry {
	ranked := filterHealthy(entries, snap)
	if len(ranked) == 0 {
		ranked = append(ranked, entries...)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return snap[ranked[i].Name].LatencyMs < snap[ranked[j].Name].LatencyMs
	})
	return ranked
}

// RankCost returns candidates best-first by adjusted cost: the raw fee for
// the request, divided by the provider's smoothed success rate. Ties are
// broken by registration order. Falls back to the full set when no provider
// is operational.
func RankCost(entries []*registry.Entry, snap map[string]health.Snapshot, requestCost uint64) []*registry.Entry {
	ranked := filterHealthy(entries, snap)
	if len(ranked) == 0 {
		ranked = append(ranked, entries...)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ci := AdjustedCost(requestCost, ranked[i].FeeBps, snap[ranked[i].Name].SuccessRate)
		cj := AdjustedCost(requestCost, ranked[j].FeeBps, snap[ranked[j].Name].SuccessRate)
		return ci < cj
	})
	return ranked
}

// Rank dispatches to the named policy
func Rank(policy Policy, entries []*registry.Entry, snap map[string]health.Snapshot, requestCost uint64) []*registry.Entry {
	if policy == PolicyCost {
		return RankCost(entries, snap, requestCost)
	}
	return RankLatency(entries, snap)
}

// FeeWei computes the integer fee amount for a request, requestCost *
// feeBps / 10000, through a 128-bit intermediate so wei-denominated cost
// bases cannot wrap. feeBps never exceeds 10000, which keeps the high word
// below the divisor as bits.Div64 requires.
func FeeWei(requestCost uint64, feeBps int) uint64 {
	hi, lo := bits.Mul64(requestCost, uint64(feeBps))
	quo, _ := bits.Div64(hi, lo, 10000)
	return quo
}

// AdjustedCost computes the health-weighted fee for a request: the integer
// fee amount divided by the success rate, so an unreliable provider prices
// itself out.
func AdjustedCost(requestCost uint64, feeBps int, successRate float64) float64 {
	if successRate <= 0 {
		successRate = 0.01
	}
	return float64(FeeWei(requestCost, feeBps)) / successRate
}

func filterHealthy(entries []*registry.Entry, snap map[string]health.Snapshot) []*registry.Entry {
	out := make([]*registry.Entry, 0, len(entries))
	for _, e := range entries {
		if snap[e.Name].Healthy {
			out = append(out, e)
		}
	}
	return out
}
