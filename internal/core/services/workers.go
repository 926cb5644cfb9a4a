package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// unitFunc processes the unit at index i and reports its outcome.
type unitFunc func(ctx context.Context, i int) domain.UnitResult

// runUnits processes n units with at most limit of them in flight.
// Results are stored by index so output order matches input order.
// Unit failures are carried in the results; the group never sees an error,
// so a failing unit never cancels the others.
func runUnits(ctx context.Context, limit, n int, fn unitFunc) []domain.UnitResult {
	results := make([]domain.UnitResult, n)

	var g errgroup.Group
	g.SetLimit(max(limit, 1))

	for i := 0; i < n; i++ {
		g.Go(func() error {
			start := time.Now()
			result := fn(ctx, i)
			if result.Duration == 0 {
				result.Duration = time.Since(start)
			}
			results[i] = result
			return nil
		})
	}

	_ = g.Wait() // unit functions never return errors
	return results
}

// listInputs returns the regular files in dir whose names end in suffix,
// ignoring case, sorted by name. Hidden files are skipped.
func listInputs(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, dir)
		}
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	// os.ReadDir returns entries sorted by filename
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !domain.HasSuffixFold(name, suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// ensureDir creates an output directory if it does not exist.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// nopMetrics discards measurements when no recorder is configured.
type nopMetrics struct{}

func (nopMetrics) ObserveUnit(domain.Stage, bool, time.Duration) {}
func (nopMetrics) ObserveArchive(int, int)                       {}
func (nopMetrics) Flush() error                                  { return nil }

func metricsOrNop(m driven.MetricsRecorder) driven.MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// logSummary reports the outcome of a stage run. Partial runs are logged
// as warnings so they are never mistaken for full success.
func logSummary(summary *domain.StageSummary) {
	failed := summary.Failed()
	if len(failed) > 0 {
		logger.Warn("%s: %d of %d failed", summary.Stage, len(failed), summary.Total())
		return
	}
	logger.Info("%s complete: %d processed in %s", summary.Stage, summary.Total(), summary.Elapsed().Round(time.Millisecond))
}

// logFailure reports a skipped unit with its reason.
func logFailure(r domain.UnitResult) {
	logger.Warn("%s: %s failed: %v", r.Stage, r.Input, r.Err)
}
