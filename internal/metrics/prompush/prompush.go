// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Migration runs are short-lived, so instead of exposing a scrape endpoint
// the collected series are pushed to a Pushgateway on Flush. The "job" label
// becomes the Pushgateway grouping key; the remaining labels map onto the
// collectors below.
package prompush

import (
	"fmt"

	"ddlsim/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter      *prometheus.CounterVec   // migrate_step_total{step,status}
	stepDuration     *prometheus.HistogramVec // migrate_step_duration_seconds{step,status}
	statementCounter *prometheus.CounterVec   // migrate_statements_total{kind}
	fileCounter      prometheus.Counter       // migrate_files_total
}

// NewBackend constructs a Pushgateway backend. An empty jobName defaults to
// "migrate".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "migrate"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Migration step executions by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metrics.StepDuration,
			Help:    "Duration of migration steps in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"step", "status"},
	)
	statementCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StatementsTotal,
			Help: "DDL statements by kind (replayed, generated, executed).",
		},
		[]string{"kind"},
	)
	fileCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metrics.FilesTotal,
			Help: "Migration files applied to the database.",
		},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, statementCounter, fileCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:       gatewayURL,
		jobName:          jobName,
		reg:              reg,
		stepCounter:      stepCounter,
		stepDuration:     stepDuration,
		statementCounter: statementCounter,
		fileCounter:      fileCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.StatementsTotal:
		if b.statementCounter == nil {
			return
		}
		b.statementCounter.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.FilesTotal:
		if b.fileCounter == nil {
			return
		}
		b.fileCounter.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
