package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// summaryStyles colours the run summary on terminals.
type summaryStyles struct {
	color   bool
	title   lipgloss.Style
	stage   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func newSummaryStyles(color bool) summaryStyles {
	return summaryStyles{
		color:   color,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		stage:   lipgloss.NewStyle().Bold(true),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}

func (s summaryStyles) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printRunSummary writes one line per stage and one line per failed unit.
func printRunSummary(w io.Writer, summary *domain.RunSummary) {
	st := newSummaryStyles(isTerminal(w))

	fmt.Fprintln(w, st.render(st.title, "Run "+summary.RunID))
	for i := range summary.Stages {
		stage := &summary.Stages[i]
		failed := stage.Failed()

		counts := fmt.Sprintf("%d succeeded", stage.Succeeded())
		line := st.render(st.stage, fmt.Sprintf("%-8s", stage.Stage)) + " " + st.render(st.success, counts)
		if len(failed) > 0 {
			line += ", " + st.render(st.failure, fmt.Sprintf("%d failed", len(failed)))
		}
		line += " " + st.render(st.muted, "("+stage.Elapsed().Round(time.Millisecond).String()+")")
		fmt.Fprintln(w, line)

		if stage.Archive != "" {
			fmt.Fprintf(w, "         %d records -> %s\n", stage.Records, stage.Archive)
		}
		for _, r := range failed {
			fmt.Fprintf(w, "         %s %s: %v\n", st.render(st.failure, "x"), r.Input, r.Err)
		}
	}
}
