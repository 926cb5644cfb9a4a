package domain

import "time"

// Stage identifies one step of the ingestion pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageExtract Stage = "extract"
	StageChunk   Stage = "chunk"
	StageEmbed   Stage = "embed"
)

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	switch s {
	case StageExtract, StageChunk, StageEmbed:
		return true
	default:
		return false
	}
}

// UnitResult is the outcome of processing one unit of work
// (one document for Extractor, one text file for Chunker, one batch for Embedder).
type UnitResult struct {
	// Stage is the stage that processed the unit.
	Stage Stage

	// Input is the name of the input the unit was built from.
	Input string

	// Artifacts lists the files written for the unit.
	Artifacts []string

	// Err is the reason the unit failed, nil on success.
	Err error

	// Duration is how long the unit took.
	Duration time.Duration
}

// OK returns true if the unit succeeded.
func (r UnitResult) OK() bool {
	return r.Err == nil
}

// StageSummary aggregates the unit results of one stage run.
type StageSummary struct {
	Stage    Stage
	Results  []UnitResult
	Started  time.Time
	Finished time.Time

	// Archive is the archive written by an embed stage, empty otherwise.
	Archive string

	// Records is the number of records in Archive.
	Records int
}

// Total returns the number of units processed.
func (s *StageSummary) Total() int {
	return len(s.Results)
}

// Succeeded returns the number of units that succeeded.
func (s *StageSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failed units in input order.
func (s *StageSummary) Failed() []UnitResult {
	var failed []UnitResult
	for _, r := range s.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Artifacts returns every artifact written by the stage in input order.
func (s *StageSummary) Artifacts() []string {
	var out []string
	for _, r := range s.Results {
		out = append(out, r.Artifacts...)
	}
	return out
}

// Elapsed returns the wall-clock time of the stage.
func (s *StageSummary) Elapsed() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// RunSummary aggregates the stage summaries of one pipeline run.
type RunSummary struct {
	// RunID uniquely identifies the run.
	RunID string

	// Stages holds the summaries of the stages that ran, in order.
	Stages []StageSummary
}

// Stage returns the summary for the given stage, or nil if it did not run.
func (r *RunSummary) Stage(stage Stage) *StageSummary {
	for i := range r.Stages {
		if r.Stages[i].Stage == stage {
			return &r.Stages[i]
		}
	}
	return nil
}

// HasFailures returns true if any unit of any stage failed.
func (r *RunSummary) HasFailures() bool {
	for i := range r.Stages {
		if len(r.Stages[i].Failed()) > 0 {
			return true
		}
	}
	return false
}
