package workout

import (
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(min int) time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestElapsed(t *testing.T) {
	intervals := []models.Interval{
		{From: at(0), To: ptrTime(at(10))},
		{From: at(15), To: ptrTime(at(20))},
		{From: at(30)},
	}

	first := Elapsed(intervals, at(40))
	assert.Equal(t, 25*time.Minute, first)
	assert.Equal(t, first, Elapsed(intervals, at(40)), "recomputation must not change the result")

	closed := intervals[:2]
	assert.Equal(t, 15*time.Minute, Elapsed(closed, at(100)), "closed intervals ignore now")
}

func TestPauseResume_ZeroLengthGap(t *testing.T) {
	s := &models.Session{Kind: models.KindWorkout, Intervals: []models.Interval{{From: at(0)}}}

	pauseStopwatch(s, at(10))
	resumeStopwatch(s, at(10))
	pauseStopwatch(s, at(20))

	assert.Equal(t, 20*time.Minute, Elapsed(s.Intervals, at(60)))
	assert.True(t, s.Paused())
}

func TestPauseResume_Idempotent(t *testing.T) {
	s := &models.Session{Kind: models.KindWorkout, Intervals: []models.Interval{{From: at(0)}}}

	resumeStopwatch(s, at(5))
	require.Len(t, s.Intervals, 1, "resume while running must not open a second interval")

	pauseStopwatch(s, at(10))
	pauseStopwatch(s, at(12))
	require.Len(t, s.Intervals, 1)
	assert.Equal(t, at(10), *s.Intervals[0].To, "second pause must not move the close time")

	resumeStopwatch(s, at(15))
	require.Len(t, s.Intervals, 2)
	assert.False(t, s.Paused())
}

func TestClosedIntervals(t *testing.T) {
	got := closedIntervals([]models.Interval{
		{From: at(0), To: ptrTime(at(10))},
		{From: at(15)},
	}, at(25))

	require.Len(t, got, 2)
	assert.Equal(t, at(10), got[0].To)
	assert.Equal(t, at(25), got[1].To)
}
