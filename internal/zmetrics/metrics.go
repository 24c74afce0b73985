// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package zmetrics defines the Prometheus instrumentation for the storage
// engine, in the same shape as this corpus's storage/disk/metrics.go:
// a handful of histograms/counters registered once against a Registerer.
package zmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter/histogram the engine emits.
type Metrics struct {
	IngestRows           prometheus.Histogram
	PublishSeconds       prometheus.Histogram
	AsofProbeSeconds     prometheus.Histogram
	AsofSidecarFallbacks prometheus.Counter
	AsofNullResults      prometheus.Counter
	OpenPartitions       prometheus.Gauge
}

// New constructs a Metrics struct with unregistered collectors.
func New() *Metrics {
	return &Metrics{
		IngestRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zola_ingest_rows_per_write",
			Help:    "Number of rows supplied to a single write call.",
			Buckets: prometheus.ExponentialBuckets(1, 8, 8),
		}),
		PublishSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zola_partition_publish_seconds",
			Help:    "Wall time to publish one partition directory, including fsyncs.",
			Buckets: prometheus.DefBuckets,
		}),
		AsofProbeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zola_asof_batch_seconds",
			Help:    "Wall time to resolve one batched as-of probe set.",
			Buckets: prometheus.DefBuckets,
		}),
		AsofSidecarFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zola_asof_sidecar_fallbacks_total",
			Help: "Number of probes that fell through to the one-hop sidecar fallback, whether or not it found an entry.",
		}),
		AsofNullResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zola_asof_null_results_total",
			Help: "Number of probes that resolved to a null result.",
		}),
		OpenPartitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zola_open_partitions",
			Help: "Number of memory-mapped partition views currently held by the catalog.",
		}),
	}
}

// Register adds every collector to reg, matching storage/disk's
// initPrometheus pattern of registering a fixed list in one place.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.IngestRows,
		m.PublishSeconds,
		m.AsofProbeSeconds,
		m.AsofSidecarFallbacks,
		m.AsofNullResults,
		m.OpenPartitions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
