package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/corpusidx/internal/index"
)

// StyledRenderer draws the banner and report as lipgloss panels.
type StyledRenderer struct {
	mu             sync.Mutex
	out            io.Writer
	styles         Styles
	showPartitions bool
	done           int
}

// NewStyledRenderer creates a styled renderer.
func NewStyledRenderer(cfg Config) *StyledRenderer {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &StyledRenderer{
		out:            out,
		styles:         GetStyles(cfg.NoColor),
		showPartitions: cfg.ShowPartitions,
	}
}

// Start implements Renderer.
func (r *StyledRenderer) Start(_ context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := []row{
		{"input", s.Input},
		{"index", s.Index},
		{"collection", s.Collection},
		{"generator", s.Generator},
		{"threads", fmt.Sprintf("%d", s.Threads)},
	}
	if s.Shard != "" {
		rows = append(rows, row{"shard", s.Shard})
	}
	rows = append(rows, row{"run", s.RunID})

	_, _ = fmt.Fprintln(r.out, r.panel("corpusidx", rows))
	return nil
}

// PartitionDone implements index.PartitionObserver.
func (r *StyledRenderer) PartitionDone(rep index.PartitionReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if !r.showPartitions {
		return
	}
	n := r.styles.Dim.Render(fmt.Sprintf("%5d", r.done))
	if rep.Failed {
		_, _ = fmt.Fprintf(r.out, "%s %s %s %v\n", n, r.styles.Error.Render("✗"), rep.Path, rep.Err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %s %s %s\n", n, r.styles.Success.Render("✓"), rep.Path,
		r.styles.Label.Render(fmt.Sprintf("%d indexed", rep.Indexed)))
}

// AddError implements Renderer.
func (r *StyledRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	style, prefix := r.styles.Error, "error"
	if event.IsWarn {
		style, prefix = r.styles.Warning, "warning"
	}
	msg := fmt.Sprintf("%s: %v", prefix, event.Err)
	if event.Partition != "" {
		msg = fmt.Sprintf("%s: %s: %v", prefix, event.Partition, event.Err)
	}
	_, _ = fmt.Fprintln(r.out, style.Render(msg))
}

// Complete implements Renderer.
func (r *StyledRenderer) Complete(res *index.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.out, r.panel(headline(res), reportRows(res)))
	if res.CountMismatch {
		_, _ = fmt.Fprintln(r.out, r.styles.Warning.Render("warning: "+mismatchWarning(res)))
	}
	for _, p := range res.FailedPartitions {
		_, _ = fmt.Fprintln(r.out, r.styles.Warning.Render("warning: partition failed: "+p))
	}
}

// Stop implements Renderer.
func (r *StyledRenderer) Stop() error {
	return nil
}

func (r *StyledRenderer) panel(title string, rows []row) string {
	width := 0
	for _, rw := range rows {
		width = max(width, len(rw.label))
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, r.styles.Header.Render(title))
	for _, rw := range rows {
		label := r.styles.Label.Render(fmt.Sprintf("%-*s", width, rw.label))
		lines = append(lines, label+"  "+r.styles.Value.Render(rw.value))
	}
	return r.styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n")))
}
