// Package monitor watches aggregate provider health and raises leveled
// alerts when upstream redundancy drops below its thresholds.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nodegate/nodegate/services/health"
	"github.com/nodegate/nodegate/services/metrics"
)

// Level is the alert severity
type Level string

const (
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// AlertFunc receives alerts raised by the monitor
type AlertFunc func(level Level, message string, data map[string]interface{})

// Config holds the monitor settings
type Config struct {
	// Interval between health evaluations
	Interval time.Duration

	// WarningThreshold raises a warning when healthy providers drop below it
	WarningThreshold int

	// CriticalThreshold raises a critical alert when healthy providers drop below it
	CriticalThreshold int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Interval:          time.Minute,
		WarningThreshold:  3,
		CriticalThreshold: 2,
	}
}

// Monitor periodically inspects the shared health state. It runs on its own
// schedule, independent of the checker and the request path.
type Monitor struct {
	cfg     Config
	state   *health.State
	metrics *metrics.Metrics
	alert   AlertFunc
	logger  *zap.Logger
}

// New creates a monitor; a nil alert function falls back to log-only alerts.
func New(cfg Config, state *health.State, m *metrics.Metrics, alert AlertFunc, logger *zap.Logger) *Monitor {
	mon := &Monitor{
		cfg:     cfg,
		state:   state,
		metrics: m,
		alert:   alert,
		logger:  logger,
	}
	if mon.alert == nil {
		mon.alert = mon.logAlert
	}
	return mon
}

// Start runs the evaluation loop until the context is cancelled
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("monitor stopped")
				return
			case <-ticker.C:
				m.Evaluate()
			}
		}
	}()
}

// Evaluate inspects the current health snapshot once and raises at most one
// alert, at the highest applicable level.
func (m *Monitor) Evaluate() {
	snap := m.state.Snapshot()

	healthy := 0
	var unhealthy []string
	for name, s := range snap {
		if s.Healthy {
			healthy++
		} else {
			unhealthy = append(unhealthy, name)
		}
	}

	m.metrics.SetHealthyProviders(healthy)

	data := map[string]interface{}{
		"healthy_count":       healthy,
		"provider_count":      len(snap),
		"unhealthy_providers": unhealthy,
	}

	switch {
	case healthy < m.cfg.CriticalThreshold:
		m.alert(LevelCritical, "upstream redundancy critically low", data)
	case healthy < m.cfg.WarningThreshold:
		m.alert(LevelWarning, "upstream redundancy degraded", data)
	}
}

func (m *Monitor) logAlert(level Level, message string, data map[string]interface{}) {
	fields := []zap.Field{
		zap.String("level", string(level)),
		zap.Any("data", data),
	}
	if level == LevelCritical {
		m.logger.Error(message, fields...)
		return
	}
	m.logger.Warn(message, fields...)
}
