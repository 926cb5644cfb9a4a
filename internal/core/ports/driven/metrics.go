package driven

import (
	"time"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// MetricsRecorder records pipeline measurements.
type MetricsRecorder interface {
	// ObserveUnit records the outcome and duration of one unit of work.
	ObserveUnit(stage domain.Stage, ok bool, duration time.Duration)

	// ObserveArchive records the number of records written to an archive.
	ObserveArchive(records, dimensions int)

	// Flush persists the collected metrics.
	Flush() error
}
