// Package router orchestrates logical calls: rank candidates, attempt with
// a bounded timeout, fail over to the next candidate with exponential
// backoff, and report every outcome to health state and the tracer.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nodegate/nodegate/services"
	"github.com/nodegate/nodegate/services/health"
	"github.com/nodegate/nodegate/services/metrics"
	"github.com/nodegate/nodegate/services/providers"
	"github.com/nodegate/nodegate/services/registry"
	"github.com/nodegate/nodegate/services/selector"
	"github.com/nodegate/nodegate/services/tracer"
)

// Config holds the executor settings
type Config struct {
	// MaxRetries bounds the number of distinct providers tried per call
	MaxRetries int

	// FailoverTimeout bounds each individual attempt
	FailoverTimeout time.Duration

	// BackoffBase is the initial inter-attempt delay; it doubles per attempt
	BackoffBase time.Duration

	// BackoffMax caps the inter-attempt delay
	BackoffMax time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries:      5,
		FailoverTimeout: 5 * time.Second,
		BackoffBase:     100 * time.Millisecond,
		BackoffMax:      2 * time.Second,
	}
}

// Request is one logical call
type Request struct {
	// Stage names the pipeline stage this call is timed under
	Stage string

	// Kind selects which providers are eligible and which policy ranks them
	Kind providers.Capability

	// Payload is the request body handed to the provider adapter
	Payload []byte

	// CostWei is the cost basis for the cost policy (estimated gas cost)
	CostWei uint64
}

// Attempt records the outcome of one provider attempt
type Attempt struct {
	Provider  string  `json:"provider"`
	Outcome   string  `json:"outcome"`
	LatencyUs float64 `json:"latency_us"`
}

// Result is a successful logical call
type Result struct {
	RequestID string          `json:"request_id"`
	Provider  string          `json:"provider"`
	Response  json.RawMessage `json:"response"`
	Latency   float64         `json:"latency_ms"`
	Attempts  []Attempt       `json:"attempts"`
}

// CostReport summarizes paymaster fee accounting since startup
type CostReport struct {
	TotalRequests        uint64  `json:"total_requests"`
	TotalFeesWei         uint64  `json:"total_fees_wei"`
	TotalFeesSavedWei    uint64  `json:"total_fees_saved_wei"`
	AvgSavingsPerRequest float64 `json:"avg_savings_per_request_wei"`
}

// Router executes logical calls with provider selection and failover. It is
// constructed once and injected; it holds no per-call state beyond the fee
// accounting counters.
type Router struct {
	cfg      Config
	registry *registry.Registry
	state    *health.State
	tracer   *tracer.Tracer
	metrics  *metrics.Metrics
	logger   *zap.Logger

	// paymaster fee accounting
	mu            sync.Mutex
	relayRequests uint64
	totalFeesWei  uint64
	feesSavedWei  uint64
	worstFeeBps   int
}

// New creates a router over the given registry and health state
func New(cfg Config, reg *registry.Registry, state *health.State, tr *tracer.Tracer, m *metrics.Metrics, logger *zap.Logger) *Router {
	worst := 0
	for _, e := range reg.List() {
		if e.Supports(providers.CapabilityUserOp) || e.Supports(providers.CapabilityBundle) {
			if e.FeeBps > worst {
				worst = e.FeeBps
			}
		}
	}
	return &Router{
		cfg:         cfg,
		registry:    reg,
		state:       state,
		tracer:      tr,
		metrics:     m,
		logger:      logger,
		worstFeeBps: worst,
	}
}

// PolicyFor maps a request kind to its ranking policy: relay kinds are
// cost-ranked, everything else latency-ranked.
func PolicyFor(kind providers.Capability) selector.Policy {
	if kind == providers.CapabilityUserOp || kind == providers.CapabilityBundle {
		return selector.PolicyCost
	}
	return selector.PolicyLatency
}

// Execute performs one logical call: select, attempt, fail over, report.
// Callers receive either the first successful result or a single terminal
// error; per-attempt churn stays internal.
func (r *Router) Execute(ctx context.Context, req Request) (*Result, error) {
	defer r.trace(req.Stage)()

	requestID := uuid.NewString()

	eligible := r.registry.ListByCapability(req.Kind)
	if len(eligible) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeUpstream, "no provider available for request kind", nil).
			WithDetail("request_id", requestID).
			WithDetail("kind", string(req.Kind))
	}

	snap := r.state.Snapshot()
	ranked := selector.Rank(PolicyFor(req.Kind), eligible, snap, req.CostWei)

	maxAttempts := r.cfg.MaxRetries
	if len(ranked) < maxAttempts {
		maxAttempts = len(ranked)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.BackoffBase
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = r.cfg.BackoffMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	started := time.Now()
	attempts := make([]Attempt, 0, maxAttempts)
	var lastErr error

	for i := 0; i < maxAttempts; i++ {
		// Backoff applies only between retries, never before the first attempt.
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, r.deadlineError(requestID, attempts, ctx.Err())
			case <-time.After(bo.NextBackOff()):
			}
		}

		entry := ranked[i]
		resp, latency, err := r.attempt(ctx, entry, req.Payload)

		if err == nil {
			attempts = append(attempts, Attempt{
				Provider:  entry.Name,
				Outcome:   metrics.OutcomeSuccess,
				LatencyUs: float64(latency.Microseconds()),
			})
			r.state.RecordUseSuccess(entry.Name, latency)
			r.metrics.RecordAttempt(entry.Name, metrics.OutcomeSuccess)
			r.recordFees(req, entry)

			r.logger.Debug("upstream call succeeded",
				zap.String("request_id", requestID),
				zap.String("provider", entry.Name),
				zap.Int("attempt", i+1),
				zap.Duration("latency", latency))

			return &Result{
				RequestID: requestID,
				Provider:  entry.Name,
				Response:  resp,
				Latency:   float64(time.Since(started).Nanoseconds()) / 1e6,
				Attempts:  attempts,
			}, nil
		}

		outcome := metrics.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		attempts = append(attempts, Attempt{
			Provider:  entry.Name,
			Outcome:   outcome,
			LatencyUs: float64(latency.Microseconds()),
		})
		r.state.RecordUseFailure(entry.Name, err)
		r.metrics.RecordAttempt(entry.Name, outcome)
		lastErr = err

		r.logger.Warn("upstream attempt failed",
			zap.String("request_id", requestID),
			zap.String("provider", entry.Name),
			zap.String("outcome", outcome),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		// The caller's deadline aborts the call; remaining retries are skipped.
		if ctx.Err() != nil {
			return nil, r.deadlineError(requestID, attempts, ctx.Err())
		}
	}

	r.metrics.RecordExhausted()
	r.logger.Error("upstream providers exhausted",
		zap.String("request_id", requestID),
		zap.Int("attempts", len(attempts)),
		zap.Error(lastErr))

	return nil, services.NewDomainError(services.ErrorTypeExhausted, "all upstream providers exhausted", lastErr).
		WithDetail("request_id", requestID).
		WithDetail("attempts", len(attempts)).
		WithDetail("providers_tried", providerNames(attempts))
}

// attempt issues one bounded call against a single provider
func (r *Router) attempt(ctx context.Context, entry *registry.Entry, payload []byte) ([]byte, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.FailoverTimeout)
	defer cancel()

	start := time.Now()
	resp, err := entry.Adapter.Call(attemptCtx, payload)
	return resp, time.Since(start), err
}

// RelayCostReport returns the paymaster fee accounting
func (r *Router) RelayCostReport() CostReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := CostReport{
		TotalRequests:     r.relayRequests,
		TotalFeesWei:      r.totalFeesWei,
		TotalFeesSavedWei: r.feesSavedWei,
	}
	if r.relayRequests > 0 {
		report.AvgSavingsPerRequest = float64(r.feesSavedWei) / float64(r.relayRequests)
	}
	return report
}

func (r *Router) recordFees(req Request, entry *registry.Entry) {
	if PolicyFor(req.Kind) != selector.PolicyCost || req.CostWei == 0 {
		return
	}

	actual := selector.FeeWei(req.CostWei, entry.FeeBps)
	baseline := selector.FeeWei(req.CostWei, r.worstFeeBps)

	r.mu.Lock()
	r.relayRequests++
	r.totalFeesWei += actual
	if baseline > actual {
		r.feesSavedWei += baseline - actual
	}
	r.mu.Unlock()
}

func (r *Router) deadlineError(requestID string, attempts []Attempt, cause error) error {
	return services.NewDomainError(services.ErrorTypeTimeout, "call deadline exceeded", cause).
		WithDetail("request_id", requestID).
		WithDetail("attempts", len(attempts)).
		WithDetail("providers_tried", providerNames(attempts))
}

// trace starts the stage timing and mirrors it into the prometheus
// histogram when the timing stops.
func (r *Router) trace(stage string) func() {
	stop := r.tracer.Trace(stage)
	start := time.Now()
	return func() {
		stop()
		r.metrics.ObserveStage(stage, time.Since(start))
	}
}

func providerNames(attempts []Attempt) []string {
	names := make([]string, len(attempts))
	for i, a := range attempts {
		names[i] = a.Provider
	}
	return names
}
