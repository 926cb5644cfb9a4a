// Package prometheus records pipeline metrics with the Prometheus client
// and writes them in the text exposition format, suitable for the node
// exporter's textfile collector.
package prometheus

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

const namespace = "ragingest"

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder collects unit and archive metrics in a private registry.
type Recorder struct {
	path     string
	registry *prometheus.Registry

	units          *prometheus.CounterVec
	unitDuration   *prometheus.HistogramVec
	archiveRecords prometheus.Gauge
	archiveDims    prometheus.Gauge
	lastFlush      prometheus.Gauge
}

// NewRecorder creates a recorder that writes to path on Flush.
// An empty path collects metrics without writing them.
func NewRecorder(path string) *Recorder {
	r := &Recorder{
		path:     path,
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Units of work processed, by stage and outcome.",
		}, []string{"stage", "outcome"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time spent on one unit of work.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		archiveRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_records",
			Help:      "Records in the last archive written.",
		}),
		archiveDims: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_dimensions",
			Help:      "Vector dimensions of the last archive written.",
		}),
		lastFlush: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_flush_timestamp_seconds",
			Help:      "Unix time the metrics were last written.",
		}),
	}

	r.registry.MustRegister(r.units, r.unitDuration, r.archiveRecords, r.archiveDims, r.lastFlush)
	return r
}

// ObserveUnit records the outcome and duration of one unit of work.
func (r *Recorder) ObserveUnit(stage domain.Stage, ok bool, duration time.Duration) {
	outcome := "failed"
	if ok {
		outcome = "succeeded"
	}
	r.units.WithLabelValues(stage.String(), outcome).Inc()
	r.unitDuration.WithLabelValues(stage.String()).Observe(duration.Seconds())
}

// ObserveArchive records the size of the archive just written.
func (r *Recorder) ObserveArchive(records, dimensions int) {
	r.archiveRecords.Set(float64(records))
	r.archiveDims.Set(float64(dimensions))
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Flush writes the collected metrics to the configured file.
func (r *Recorder) Flush() error {
	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}

	r.lastFlush.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(r.path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
