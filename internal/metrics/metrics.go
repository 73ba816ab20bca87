// Package metrics exports pool transition counters and latencies.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"microAMM/internal/model"
)

// Metrics holds the Prometheus collectors of one dispatcher process.
type Metrics struct {
	registry *prometheus.Registry

	Transitions       *prometheus.CounterVec
	TransitionLatency *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "transitions_total",
				Help:      "Pool transitions by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		TransitionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "transition_duration_seconds",
				Help:      "Time spent in one pool transition, storage included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// ObserveTransition records one completed transition.
func (m *Metrics) ObserveTransition(kind model.InstructionKind, err error, elapsed time.Duration) {
	m.Transitions.WithLabelValues(string(kind), model.Reason(err)).Inc()
	m.TransitionLatency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes all metrics in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
