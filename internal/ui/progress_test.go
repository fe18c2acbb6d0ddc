package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestProgressTracker_StatsAndETA(t *testing.T) {
	// Given: a tracker with a controlled clock
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := newProgressTracker(clock.now)
	p.SetStage(StageIndexing, 100)

	// When: a quarter is done after 10s
	clock.t = clock.t.Add(10 * time.Second)
	p.Update(25, 100, "/docs/a.txt")
	s := p.Stats()

	// Then: progress, rate and a 30s ETA
	assert.Equal(t, StageIndexing, s.Stage)
	assert.InDelta(t, 0.25, s.Progress, 1e-9)
	assert.InDelta(t, 2.5, s.Rate, 1e-9)
	assert.InDelta(t, float64(30*time.Second), float64(s.ETA), float64(time.Millisecond))
	assert.Equal(t, "/docs/a.txt", s.CurrentFile)

	// When: the next estimate is 10s, it is smoothed toward the previous one
	clock.t = clock.t.Add(10 * time.Second)
	p.Update(50, 0, "")
	s = p.Stats()

	// Then: 0.3*20s + 0.7*30s
	assert.InDelta(t, float64(27*time.Second), float64(s.ETA), float64(time.Millisecond))
	assert.Equal(t, "/docs/a.txt", s.CurrentFile)
}

func TestProgressTracker_NoETAWhenDoneOrEmpty(t *testing.T) {
	p := NewProgressTracker()
	assert.Zero(t, p.Stats().ETA)

	p.SetStage(StageIndexing, 2)
	p.Update(2, 2, "")
	assert.Zero(t, p.Stats().ETA)
	assert.Equal(t, 1.0, p.Stats().Progress)
}

func TestProgressTracker_CountsWarnings(t *testing.T) {
	p := NewProgressTracker()

	p.AddError(ErrorEvent{File: "a", IsWarn: true})
	p.AddError(ErrorEvent{File: "b"})

	s := p.Stats()
	assert.Equal(t, 1, s.WarnCount)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Len(t, p.Warnings(), 1)
}
