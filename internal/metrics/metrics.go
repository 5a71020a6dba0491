// Package metrics records operational metrics for migration runs behind a
// small pluggable Backend.
//
// The default backend is a no-op, so instrumented code can always call the
// Record helpers whether or not a metrics system was configured. Concrete
// systems live in subpackages (prompush, datadog) and are installed with
// SetBackend, the same way storage backends are plugged in by kind.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal       = "migrate_step_total"
	StepDuration    = "migrate_step_duration_seconds"
	StatementsTotal = "migrate_statements_total"
	FilesTotal      = "migrate_files_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a migration step (load, replay,
// generate, apply) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordStatements counts DDL statements by kind. Kinds in use:
//   - "replayed": statements fed to the simulator
//   - "generated": statements written to a new migration
//   - "executed": statements run against a database
func RecordStatements(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(StatementsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordMigrations counts migration files applied to a database.
func RecordMigrations(job string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(FilesTotal, float64(delta), Labels{
		"job": job,
	})
}
