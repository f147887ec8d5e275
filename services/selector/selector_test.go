package selector_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodegate/nodegate/services/health"
	"github.com/nodegate/nodegate/services/providers"
	"github.com/nodegate/nodegate/services/registry"
	"github.com/nodegate/nodegate/services/selector"
)

func entry(name string, ordinal int, feeBps int) *registry.Entry {
	return &registry.Entry{
		Provider: registry.Provider{
			Name:         name,
			Endpoint:     "https://example.com/rpc",
			FeeBps:       feeBps,
			Capabilities: []providers.Capability{providers.CapabilityRPC},
		},
		Ordinal: ordinal,
	}
}

func TestRankLatency(t *testing.T) {
	t.Run("skips unhealthy and orders by latency ascending", func(t *testing.T) {
		entries := []*registry.Entry{
			entry("alchemy", 0, 0),
			entry("infura", 1, 0),
			entry("ankr", 2, 0),
		}
		snap := map[string]health.Snapshot{
			"alchemy": {Healthy: false, LatencyMs: 10},
			"infura":  {Healthy: true, LatencyMs: 100},
			"ankr":    {Healthy: true, LatencyMs: 50},
		}

		ranked := selector.RankLatency(entries, snap)

		require.Len(t, ranked, 2)
		assert.Equal(t, "ankr", ranked[0].Name)
		assert.Equal(t, "infura", ranked[1].Name)
	})

	t.Run("falls back to full set when nothing is healthy", func(t *testing.T) {
		entries := []*registry.Entry{
			entry("alchemy", 0, 0),
			entry("infura", 1, 0),
		}
		snap := map[string]health.Snapshot{
			"alchemy": {Healthy: false, LatencyMs: 20},
			"infura":  {Healthy: false, LatencyMs: 20},
		}

		ranked := selector.RankLatency(entries, snap)

		require.Len(t, ranked, 2)
		assert.Equal(t, "alchemy", ranked[0].Name)
		assert.Equal(t, "infura", ranked[1].Name)
	})

	t.Run("breaks latency ties by registration order", func(t *testing.T) {
		entries := []*registry.Entry{
			entry("alchemy", 0, 0),
			entry("infura", 1, 0),
			entry("ankr", 2, 0),
		}
		snap := map[string]health.Snapshot{
			"alchemy": {Healthy: true, LatencyMs: 50},
			"infura":  {Healthy: true, LatencyMs: 50},
			"ankr":    {Healthy: true, LatencyMs: 50},
		}

		ranked := selector.RankLatency(entries, snap)

		require.Len(t, ranked, 3)
		assert.Equal(t, "alchemy", ranked[0].Name)
		assert.Equal(t, "infura", ranked[1].Name)
		assert.Equal(t, "ankr", ranked[2].Name)
	})

	t.Run("does not mutate the input slice", func(t *testing.T) {
		entries := []*registry.Entry{
			entry("alchemy", 0, 0),
			entry("infura", 1, 0),
		}
		snap := map[string]health.Snapshot{
			"alchemy": {Healthy: true, LatencyMs: 200},
			"infura":  {Healthy: true, LatencyMs: 10},
		}

		selector.RankLatency(entries, snap)

		assert.Equal(t, "alchemy", entries[0].Name)
		assert.Equal(t, "infura", entries[1].Name)
	})
}

func TestRankCost(t *testing.T) {
	t.Run("reliability beats a lower raw fee", func(t *testing.T) {
		// 1,000,000 wei: pimlico at 110 bps and 0.95 reliability prices at
		// ~11578.9 adjusted, gelato at 105 bps and 0.98 at ~10714.3.
		entries := []*registry.Entry{
			entry("pimlico", 0, 110),
			entry("gelato", 1, 105),
		}
		snap := map[string]health.Snapshot{
			"pimlico": {Healthy: true, SuccessRate: 0.95},
			"gelato":  {Healthy: true, SuccessRate: 0.98},
		}

		ranked := selector.RankCost(entries, snap, 1_000_000)

		require.Len(t, ranked, 2)
		assert.Equal(t, "gelato", ranked[0].Name)
		assert.Equal(t, "pimlico", ranked[1].Name)
	})

	t.Run("low success rate prices a cheap fee out", func(t *testing.T) {
		entries := []*registry.Entry{
			entry("gelato", 0, 105),
			entry("candide", 1, 115),
		}
		snap := map[string]health.Snapshot{
			"gelato":  {Healthy: true, SuccessRate: 0.5},
			"candide": {Healthy: true, SuccessRate: 0.98},
		}

		ranked := selector.RankCost(entries, snap, 1_000_000)

		assert.Equal(t, "candide", ranked[0].Name)
	})

	t.Run("falls back to full set when nothing is healthy", func(t *testing.T) {
		entries := []*registry.Entry{
			entry("pimlico", 0, 110),
			entry("gelato", 1, 105),
		}
		snap := map[string]health.Snapshot{
			"pimlico": {Healthy: false, SuccessRate: 0.95},
			"gelato":  {Healthy: false, SuccessRate: 0.98},
		}

		ranked := selector.RankCost(entries, snap, 1_000_000)

		require.Len(t, ranked, 2)
	})

	t.Run("ether-scale cost bases keep the cheaper fee first", func(t *testing.T) {
		// 1 ETH in wei would wrap a 64-bit fee product; the cheaper fee must
		// still rank first at equal reliability.
		entries := []*registry.Entry{
			entry("candide", 0, 120),
			entry("pimlico", 1, 110),
		}
		snap := map[string]health.Snapshot{
			"candide": {Healthy: true, SuccessRate: 0.98},
			"pimlico": {Healthy: true, SuccessRate: 0.98},
		}

		ranked := selector.RankCost(entries, snap, 1_000_000_000_000_000_000)

		require.Len(t, ranked, 2)
		assert.Equal(t, "pimlico", ranked[0].Name)
		assert.Equal(t, "candide", ranked[1].Name)
	})
}

func TestRank(t *testing.T) {
	entries := []*registry.Entry{
		entry("pimlico", 0, 110),
		entry("gelato", 1, 105),
	}
	snap := map[string]health.Snapshot{
		"pimlico": {Healthy: true, LatencyMs: 10, SuccessRate: 0.95},
		"gelato":  {Healthy: true, LatencyMs: 20, SuccessRate: 0.98},
	}

	byLatency := selector.Rank(selector.PolicyLatency, entries, snap, 1_000_000)
	assert.Equal(t, "pimlico", byLatency[0].Name)

	byCost := selector.Rank(selector.PolicyCost, entries, snap, 1_000_000)
	assert.Equal(t, "gelato", byCost[0].Name)
}

func TestAdjustedCost(t *testing.T) {
	t.Run("matches the fee and reliability formula", func(t *testing.T) {
		// fee = 1,000,000 * 110 / 10000 = 11,000; adjusted = 11,000 / 0.95
		assert.InDelta(t, 11578.947, selector.AdjustedCost(1_000_000, 110, 0.95), 0.001)
		assert.InDelta(t, 10714.285, selector.AdjustedCost(1_000_000, 105, 0.98), 0.001)
	})

	t.Run("truncates the fee before dividing", func(t *testing.T) {
		// 999 * 110 / 10000 truncates to 10.
		assert.InDelta(t, 10.0/0.98, selector.AdjustedCost(999, 110, 0.98), 1e-9)
	})

	t.Run("guards a zero success rate", func(t *testing.T) {
		assert.InDelta(t, 11000/0.01, selector.AdjustedCost(1_000_000, 110, 0), 1e-6)
	})

	t.Run("holds at ether-scale cost bases", func(t *testing.T) {
		// 1 ETH at 110 bps is 0.011 ETH, well past where a 64-bit product wraps.
		assert.InEpsilon(t, 1.1e16, selector.AdjustedCost(1_000_000_000_000_000_000, 110, 1.0), 1e-12)
	})
}

func TestFeeWei(t *testing.T) {
	assert.Equal(t, uint64(11_000), selector.FeeWei(1_000_000, 110))
	assert.Equal(t, uint64(10), selector.FeeWei(999, 110))
	assert.Equal(t, uint64(11_000_000_000_000_000), selector.FeeWei(1_000_000_000_000_000_000, 110))
	assert.Equal(t, uint64(math.MaxUint64), selector.FeeWei(math.MaxUint64, 10_000))
	assert.Zero(t, selector.FeeWei(1_000_000, 0))
}
