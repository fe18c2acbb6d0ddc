package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Names(t *testing.T) {
	assert.Equal(t, "Listing", StageListing.String())
	assert.Equal(t, "INDEX", StageIndexing.Icon())
	assert.Equal(t, "DONE", StageComplete.Icon())
	assert.Equal(t, "Unknown", Stage(99).String())
}

func TestNewRenderer_PlainForNonTTY(t *testing.T) {
	// Given: a buffer, which is never a terminal
	buf := &bytes.Buffer{}

	// When: creating a renderer
	r := NewRenderer(NewConfig(buf, WithScope("/docs")))

	// Then: plain output is chosen
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
	assert.False(t, IsTTY(buf))
}

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	r, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))

	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestPlainRenderer_ProgressThrottled(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: reporting 250 files
	for i := 1; i <= 250; i++ {
		r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: i, Total: 250, CurrentFile: "/docs/f.txt"})
	}

	// Then: the first, every 100th and the last are printed
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[INDEX] 1/250 /docs/f.txt", lines[0])
	assert.Equal(t, "[INDEX] 250/250 /docs/f.txt", lines[3])
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_MessageAndWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))
	require.NoError(t, r.Start(context.Background()))

	r.UpdateProgress(ProgressEvent{Stage: StageListing, Message: "walking folders"})
	r.AddError(ErrorEvent{File: "/docs/x.pdf", Err: errors.New("timeout"), IsWarn: true})
	r.AddError(ErrorEvent{Err: errors.New("boom")})

	assert.Equal(t, "[LIST] walking folders\nWARN: /docs/x.pdf: timeout\nERROR: boom\n", buf.String())
	assert.NoError(t, r.Stop())
}

func TestSummaryLine(t *testing.T) {
	tests := []struct {
		name  string
		stats CompletionStats
		want  string
	}{
		{"completed", CompletionStats{Status: "completed", Indexed: 2, Skipped: 1, Total: 3, Duration: 1234 * time.Millisecond},
			"Complete: 2 indexed, 1 skipped, 3 files in 1.2s"},
		{"with failures", CompletionStats{Status: "completed", Indexed: 2, Failed: 1, Warnings: 2, Total: 4},
			"Complete: 2 indexed, 0 skipped, 4 files in 0s (1 without text, 2 warnings)"},
		{"locked", CompletionStats{Status: "locked", Scope: "/docs"},
			"Scope /docs is being indexed by another process; nothing done."},
		{"cancelled", CompletionStats{Status: "cancelled", Indexed: 1, Skipped: 1, Total: 9},
			"Cancelled after 2 of 9 files (1 indexed, 1 skipped)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summaryLine(tt.stats))
		})
	}
}

// recorder is a Renderer that keeps every event.
type recorder struct {
	progress []ProgressEvent
	errs     []ErrorEvent
}

func (r *recorder) Start(context.Context) error    { return nil }
func (r *recorder) UpdateProgress(e ProgressEvent) { r.progress = append(r.progress, e) }
func (r *recorder) AddError(e ErrorEvent)          { r.errs = append(r.errs, e) }
func (r *recorder) Complete(CompletionStats)       {}
func (r *recorder) Stop() error                    { return nil }

func TestReporter_BridgesBuilderCallbacks(t *testing.T) {
	// Given: a reporter over a recording renderer
	rec := &recorder{}
	rep := NewReporter(rec)

	// When: the builder reports progress and a skipped folder
	rep.Progress(1, 2, "/docs/a.txt")
	rep.Warn("/docs/locked", errors.New("permission denied"))

	// Then: listing, then indexing events, plus one warning
	require.Len(t, rec.progress, 2)
	assert.Equal(t, StageListing, rec.progress[0].Stage)
	assert.Equal(t, ProgressEvent{Stage: StageIndexing, Current: 1, Total: 2, CurrentFile: "/docs/a.txt"}, rec.progress[1])
	require.Len(t, rec.errs, 1)
	assert.True(t, rec.errs[0].IsWarn)
	assert.Equal(t, 1, rep.Warnings())
}
