package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the campaign counters. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	builds          *prometheus.CounterVec
	runs            prometheus.Counter
	runDuration     prometheus.Histogram
	crashesFound    prometheus.Counter
	reports         *prometheus.CounterVec
	configSyncFails prometheus.Counter
	poolSize        prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuzzbot_builds_total",
			Help: "Build attempts by result status",
		}, []string{"status"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzbot_runs_total",
			Help: "Fuzzing sessions started",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuzzbot_run_duration_seconds",
			Help:    "Wall time of fuzzing sessions",
			Buckets: prometheus.ExponentialBuckets(60, 2, 8),
		}),
		crashesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzbot_crashes_found_total",
			Help: "Non-empty crash artifacts collected after a session",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuzzbot_reports_total",
			Help: "Crash reports by outcome",
		}, []string{"outcome"}),
		configSyncFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzbot_config_sync_failures_total",
			Help: "Failed session config syncs",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuzzbot_project_pool_size",
			Help: "Number of projects this bot rotates through",
		}),
	}

	c.registry.MustRegister(
		c.builds,
		c.runs,
		c.runDuration,
		c.crashesFound,
		c.reports,
		c.configSyncFails,
		c.poolSize,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordBuild(status string) {
	if c == nil {
		return
	}
	c.builds.WithLabelValues(status).Inc()
}

func (c *Collector) RecordRun(seconds float64, crashes int) {
	if c == nil {
		return
	}
	c.runs.Inc()
	c.runDuration.Observe(seconds)
	c.crashesFound.Add(float64(crashes))
}

func (c *Collector) RecordReport(outcome string) {
	if c == nil {
		return
	}
	c.reports.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordConfigSyncFailure() {
	if c == nil {
		return
	}
	c.configSyncFails.Inc()
}

func (c *Collector) SetPoolSize(n int) {
	if c == nil {
		return
	}
	c.poolSize.Set(float64(n))
}
