// Package metrics tracks dump progress with Prometheus metrics.
//
// A Collector owns its metrics and registers them on the registry it is given,
// so tests and the CLI each get an isolated set. The CLI writes the registry
// to a file in the Prometheus text format when the run ends (WriteFile), which
// suits node_exporter's textfile collector on hosts that dump on a schedule.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector(reg, "oracle")
//
//	collector.ObjectWritten("TABLE", 4096)
//	collector.ShardFinished("TABLE", metrics.StatusSuccess, time.Since(start))
//
//	_ = metrics.WriteFile(reg, "/var/lib/node_exporter/schemagit.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Shard outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector records the metrics of one run.
type Collector struct {
	objectsWritten *prometheus.CounterVec   // files written
	bytesWritten   *prometheus.CounterVec   // normalized bytes written
	shardsTotal    *prometheus.CounterVec   // shards finished by status
	shardDuration  *prometheus.HistogramVec // wall time of one shard
	phaseDuration  *prometheus.HistogramVec // wall time of one object type
	activeWorkers  prometheus.Gauge         // shards currently running
	sessions       prometheus.Gauge         // pooled sessions open
}

// NewCollector creates a collector registered on reg. A nil reg uses a fresh
// private registry.
func NewCollector(reg prometheus.Registerer, dialect string) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	labels := prometheus.Labels{"dialect": dialect}

	return &Collector{
		objectsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "schemagit_objects_written_total",
			Help:        "Number of object definitions written",
			ConstLabels: labels,
		}, []string{"object_type"}),
		bytesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "schemagit_bytes_written_total",
			Help:        "Bytes of normalized DDL written",
			ConstLabels: labels,
		}, []string{"object_type"}),
		shardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "schemagit_shards_total",
			Help:        "Number of shards finished",
			ConstLabels: labels,
		}, []string{"object_type", "status"}),
		shardDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "schemagit_shard_duration_seconds",
			Help:        "Time taken to dump one shard",
			ConstLabels: labels,
			Buckets: []float64{
				0.1, // dictionary cache hit
				0.5,
				1,
				5,
				15,
				60,  // large package bodies
				300, // whole-schema tables on a busy instance
			},
		}, []string{"object_type"}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "schemagit_phase_duration_seconds",
			Help:        "Time taken to dump every shard of one object type",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"object_type"}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "schemagit_active_workers",
			Help:        "Number of shard workers currently running",
			ConstLabels: labels,
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "schemagit_pool_sessions",
			Help:        "Number of pooled database sessions",
			ConstLabels: labels,
		}),
	}
}

// ObjectWritten records one definition file of n bytes.
func (c *Collector) ObjectWritten(objectType string, n int64) {
	if c == nil {
		return
	}
	c.objectsWritten.WithLabelValues(objectType).Inc()
	c.bytesWritten.WithLabelValues(objectType).Add(float64(n))
}

// WorkerStarted marks a shard worker as running.
func (c *Collector) WorkerStarted() {
	if c == nil {
		return
	}
	c.activeWorkers.Inc()
}

// ShardFinished records a finished shard and marks its worker as stopped.
func (c *Collector) ShardFinished(objectType, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.activeWorkers.Dec()
	c.shardsTotal.WithLabelValues(objectType, status).Inc()
	c.shardDuration.WithLabelValues(objectType).Observe(d.Seconds())
}

// PhaseFinished records the duration of one object type.
func (c *Collector) PhaseFinished(objectType string, d time.Duration) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(objectType).Observe(d.Seconds())
}

// PoolOpened records the number of pooled sessions.
func (c *Collector) PoolOpened(size int) {
	if c == nil {
		return
	}
	c.sessions.Set(float64(size))
}

// WriteFile writes every metric gathered by g to path in the Prometheus text
// format. The file is replaced atomically.
func WriteFile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
