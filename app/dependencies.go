package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nodegate/nodegate/config"
	"github.com/nodegate/nodegate/services/health"
	"github.com/nodegate/nodegate/services/metrics"
	"github.com/nodegate/nodegate/services/monitor"
	"github.com/nodegate/nodegate/services/providers"
	"github.com/nodegate/nodegate/services/providers/ethrpc"
	"github.com/nodegate/nodegate/services/providers/relay"
	"github.com/nodegate/nodegate/services/registry"
	"github.com/nodegate/nodegate/services/router"
	"github.com/nodegate/nodegate/services/tracer"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection: the router,
// checker and monitor are explicit instances owned here, never globals.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Metrics  *metrics.Metrics
	Registry *registry.Registry
	Health   *health.State
	Checker  *health.Checker
	Tracer   *tracer.Tracer
	Router   *router.Router
	Monitor  *monitor.Monitor

	closers []func()
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Tracer:  tracer.New(cfg.Latency.MaxSamplesPerStage),
	}

	if err := deps.initRegistry(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize provider registry: %w", err)
	}

	deps.Health = health.NewState(deps.Registry.Names(), cfg.Router.UnhealthyLatencyThreshold)

	deps.Checker = health.NewChecker(health.CheckerConfig{
		Interval:     cfg.Router.HealthCheckInterval,
		ProbeTimeout: cfg.Router.FailoverTimeout,
	}, deps.Registry, deps.Health, deps.Metrics, logger)

	deps.Router = router.New(router.Config{
		MaxRetries:      cfg.Router.MaxRetries,
		FailoverTimeout: cfg.Router.FailoverTimeout,
		BackoffBase:     cfg.Router.BackoffBase,
		BackoffMax:      cfg.Router.BackoffMax,
	}, deps.Registry, deps.Health, deps.Tracer, deps.Metrics, logger)

	deps.Monitor = monitor.New(monitor.Config{
		Interval:          cfg.Monitor.Interval,
		WarningThreshold:  cfg.Monitor.WarningThreshold,
		CriticalThreshold: cfg.Monitor.CriticalThreshold,
	}, deps.Health, deps.Metrics, nil, logger)

	logger.Info("all dependencies initialized",
		zap.Int("providers", deps.Registry.Count()))
	return deps, nil
}

// initRegistry builds the provider registry from the configured roster
func (d *Dependencies) initRegistry(cfg *config.Config) error {
	reg := registry.NewRegistry(d.Logger)

	for _, p := range cfg.Providers.RPC {
		adapter, err := ethrpc.New(p.Name, p.Endpoint, d.Logger)
		if err != nil {
			return fmt.Errorf("rpc provider %q: %w", p.Name, err)
		}
		d.closers = append(d.closers, adapter.Close)

		err = reg.Register(registry.Provider{
			Name:         p.Name,
			Endpoint:     p.Endpoint,
			Priority:     p.Priority,
			RateLimit:    p.RateLimit,
			Capabilities: []providers.Capability{providers.CapabilityRPC},
		}, adapter)
		if err != nil {
			return err
		}
	}

	for _, p := range cfg.Providers.Relays {
		adapter := relay.New(p.Name, p.Endpoint, p.APIKey, cfg.Router.FailoverTimeout, d.Logger)

		caps := []providers.Capability{providers.CapabilityUserOp}
		if p.SupportsBundle {
			caps = append(caps, providers.CapabilityBundle)
		}

		err := reg.Register(registry.Provider{
			Name:         p.Name,
			Endpoint:     p.Endpoint,
			Priority:     p.Priority,
			RateLimit:    p.RateLimit,
			FeeBps:       p.FeeBps,
			Capabilities: caps,
		}, adapter)
		if err != nil {
			return err
		}
	}

	if reg.Count() == 0 {
		return fmt.Errorf("no upstream providers configured")
	}

	d.Registry = reg
	return nil
}

// Start launches the background loops (health checker, monitor). They stop
// when the context is cancelled.
func (d *Dependencies) Start(ctx context.Context) {
	d.Checker.Start(ctx)
	d.Monitor.Start(ctx)
	d.Logger.Info("background loops started",
		zap.Duration("health_check_interval", d.Config.Router.HealthCheckInterval),
		zap.Duration("monitor_interval", d.Config.Monitor.Interval))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close() {
	d.Logger.Info("shutting down dependencies")

	for _, closeFn := range d.closers {
		closeFn()
	}

	_ = d.Logger.Sync()
}
