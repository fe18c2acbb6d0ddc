package ui

import "sync/atomic"

// Reporter adapts a Renderer to the builder's progress and warning
// callbacks. Its methods have the same signatures as index.ProgressFunc and
// index.WarnFunc.
type Reporter struct {
	r        Renderer
	warnings atomic.Int64
}

// NewReporter wraps r and announces the listing stage.
func NewReporter(r Renderer) *Reporter {
	r.UpdateProgress(ProgressEvent{Stage: StageListing, Message: "walking folders"})
	return &Reporter{r: r}
}

// Progress reports one processed file.
func (p *Reporter) Progress(completed, total int, path string) {
	p.r.UpdateProgress(ProgressEvent{
		Stage:       StageIndexing,
		Current:     completed,
		Total:       total,
		CurrentFile: path,
	})
}

// Warn reports a skipped file or folder.
func (p *Reporter) Warn(path string, err error) {
	p.warnings.Add(1)
	p.r.AddError(ErrorEvent{File: path, Err: err, IsWarn: true})
}

// Warnings returns how many warnings were reported.
func (p *Reporter) Warnings() int {
	return int(p.warnings.Load())
}
