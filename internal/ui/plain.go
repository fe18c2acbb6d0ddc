package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per event, for CI and pipes.
type PlainRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	every int
}

// NewPlainRenderer creates a plain text renderer. Progress lines are
// throttled to every 100th file plus the last one.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, every: 100}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case event.Total > 0:
		if event.Current%r.every != 0 && event.Current != event.Total && event.Current != 1 {
			return
		}
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage.Icon(), event.Current, event.Total, event.CurrentFile)
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.out, summaryLine(stats))
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// summaryLine is the one-line build summary shared by both renderers.
func summaryLine(s CompletionStats) string {
	switch s.Status {
	case "locked":
		return fmt.Sprintf("Scope %s is being indexed by another process; nothing done.", s.Scope)
	case "cancelled":
		return fmt.Sprintf("Cancelled after %d of %d files (%d indexed, %d skipped).",
			s.Indexed+s.Skipped, s.Total, s.Indexed, s.Skipped)
	}
	line := fmt.Sprintf("Complete: %d indexed, %d skipped, %d files in %s",
		s.Indexed, s.Skipped, s.Total, s.Duration.Round(100*time.Millisecond))
	if s.Failed > 0 || s.Warnings > 0 {
		line += fmt.Sprintf(" (%d without text, %d warnings)", s.Failed, s.Warnings)
	}
	return line
}
