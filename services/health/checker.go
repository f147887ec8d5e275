package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nodegate/nodegate/services/metrics"
	"github.com/nodegate/nodegate/services/registry"
)

// CheckerConfig holds the probe loop settings
type CheckerConfig struct {
	// Interval between probe cycles
	Interval time.Duration

	// ProbeTimeout bounds each individual probe
	ProbeTimeout time.Duration
}

// Checker keeps provider health current without blocking the request path.
// It probes every registered provider concurrently on a fixed interval;
// probe errors are swallowed into health state and never surface to callers.
type Checker struct {
	registry *registry.Registry
	state    *State
	cfg      CheckerConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewChecker creates a health checker over the given registry and state
func NewChecker(cfg CheckerConfig, reg *registry.Registry, state *State, m *metrics.Metrics, logger *zap.Logger) *Checker {
	return &Checker{
		registry: reg,
		state:    state,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Start runs the probe loop until the context is cancelled. An initial
// cycle runs immediately so selection has health data at startup.
func (c *Checker) Start(ctx context.Context) {
	go func() {
		c.CheckAll(ctx)

		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("health checker stopped")
				return
			case <-ticker.C:
				c.CheckAll(ctx)
			}
		}
	}()
}

// CheckAll probes every provider concurrently and waits for the cycle to
// finish. Exported so callers (and tests) can force a cycle.
func (c *Checker) CheckAll(ctx context.Context) {
	entries := c.registry.List()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *registry.Entry) {
			defer wg.Done()
			c.probe(ctx, e)
		}(e)
	}
	wg.Wait()

	c.metrics.SetHealthyProviders(c.state.HealthyCount())
}

func (c *Checker) probe(ctx context.Context, e *registry.Entry) {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	latency, err := e.Adapter.Probe(probeCtx)
	if err != nil {
		c.state.RecordProbeFailure(e.Name, err)
		c.metrics.RecordProbe(e.Name, false)
		c.logger.Warn("provider probe failed",
			zap.String("provider", e.Name),
			zap.Error(err))
		return
	}

	c.state.RecordProbeSuccess(e.Name, latency)
	c.metrics.RecordProbe(e.Name, true)
	c.logger.Debug("provider probe ok",
		zap.String("provider", e.Name),
		zap.Duration("latency", latency))
}
