package workout

import (
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Elapsed sums every interval, counting an open interval up to now.
// It reads only the interval list, so it gives the same answer however
// often it is called and survives a reload unchanged.
func Elapsed(intervals []models.Interval, now time.Time) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		to := now
		if iv.To != nil {
			to = *iv.To
		}
		if to.After(iv.From) {
			total += to.Sub(iv.From)
		}
	}
	return total
}

// pauseStopwatch closes the open interval. It is a no-op when already paused.
func pauseStopwatch(s *models.Session, now time.Time) {
	if n := len(s.Intervals); n > 0 && s.Intervals[n-1].Open() {
		s.Intervals[n-1].To = &now
	}
}

// resumeStopwatch opens a new interval. It is a no-op when already running,
// which keeps at most one interval open.
func resumeStopwatch(s *models.Session, now time.Time) {
	if !s.Paused() {
		return
	}
	s.Intervals = append(s.Intervals, models.Interval{From: now})
}

// closedIntervals returns the intervals with any open one closed at now.
func closedIntervals(intervals []models.Interval, now time.Time) []models.CommitDuration {
	out := make([]models.CommitDuration, 0, len(intervals))
	for _, iv := range intervals {
		to := now
		if iv.To != nil {
			to = *iv.To
		}
		out = append(out, models.CommitDuration{From: iv.From, To: to})
	}
	return out
}
