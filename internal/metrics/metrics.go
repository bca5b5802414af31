// Package metrics exports ingestion run metrics in the Prometheus text
// format. climatevalue is a batch job, so metrics are written to a textfile
// for the node exporter rather than served.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/climatevalue/internal/model"
)

const namespace = "climatevalue"

// Recorder collects metrics for one process on a private registry.
// It implements ingest.Observer.
type Recorder struct {
	registry *prometheus.Registry

	inserted    *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	aggregates  *prometheus.CounterVec
	lastRun     *prometheus.GaugeVec
	runDuration *prometheus.GaugeVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	entityLabels := []string{"domain", "entity"}
	return &Recorder{
		registry: reg,
		inserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "Records newly persisted.",
		}, entityLabels),
		duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_duplicate_total",
			Help:      "Candidates already present in the store.",
		}, entityLabels),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Malformed candidates skipped.",
		}, entityLabels),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_failures_total",
			Help:      "Entities that failed during a run, from a fetch or a store error.",
		}, entityLabels),
		aggregates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregates_recomputed_total",
			Help:      "Aggregate rows rewritten.",
		}, []string{"domain"}),
		lastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}, []string{"domain"}),
		runDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}, []string{"domain"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// EntityDone records one entity's result.
func (r *Recorder) EntityDone(domain string, res model.EntityResult) {
	r.inserted.WithLabelValues(domain, res.Key).Add(float64(res.Inserted))
	r.duplicates.WithLabelValues(domain, res.Key).Add(float64(res.Duplicates))
	r.skipped.WithLabelValues(domain, res.Key).Add(float64(res.Skipped))
	if res.Status == model.StatusFailed {
		r.failures.WithLabelValues(domain, res.Key).Inc()
	}
	if res.Aggregated {
		r.aggregates.WithLabelValues(domain).Inc()
	}
}

// RunDone records run-level gauges.
func (r *Recorder) RunDone(s model.RunSummary, elapsed time.Duration) {
	r.lastRun.WithLabelValues(s.Domain).Set(float64(s.FinishedAt.Unix()))
	r.runDuration.WithLabelValues(s.Domain).Set(elapsed.Seconds())
}

// AggregatesRecomputed counts a batch recompute outside of a run.
func (r *Recorder) AggregatesRecomputed(domain string, n int) {
	r.aggregates.WithLabelValues(domain).Add(float64(n))
}

// WriteTextfile writes every metric to path atomically. An empty path is a
// no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
