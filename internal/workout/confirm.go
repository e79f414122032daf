package workout

import (
	"time"

	"github.com/claude/liftlog/internal/models"
)

// CanConfirm reports whether stat carries every field lot requires.
// Eligibility is always derived from the current data, never stored.
func CanConfirm(lot models.ExerciseLot, stat models.Statistic) bool {
	switch lot {
	case models.ExerciseLotReps:
		return stat.Reps != nil
	case models.ExerciseLotDuration:
		return stat.Duration != nil
	case models.ExerciseLotRepsAndDuration:
		return stat.Reps != nil && stat.Duration != nil
	case models.ExerciseLotDistanceAndDuration:
		return stat.Distance != nil && stat.Duration != nil
	case models.ExerciseLotRepsAndWeight:
		return stat.Reps != nil && stat.Weight != nil
	case models.ExerciseLotRepsAndDurationAndDistance:
		return stat.Reps != nil && stat.Duration != nil && stat.Distance != nil
	default:
		return true
	}
}

// confirmSet moves the set at (exIdx, setIdx) to Confirmed. prior holds the
// lifetime statistics of the exercise; nil means history was unavailable and
// no personal bests are computed.
func confirmSet(s *models.Session, exIdx, setIdx int, prior []models.Statistic, now time.Time) error {
	ex := &s.Exercises[exIdx]
	set := &ex.Sets[setIdx]
	if set.Confirmed() {
		return nil
	}
	if !CanConfirm(ex.Lot, set.Statistic) {
		return invalid("statistic", "missing fields required by "+string(ex.Lot))
	}

	if prior != nil {
		all := append(append([]models.Statistic{}, prior...), confirmedInSession(s, ex.ExerciseID)...)
		set.PersonalBests = PersonalBests(ex.Lot, set.Statistic, all)
	}
	set.Statistic = set.Statistic.WithDerived()
	set.ConfirmedAt = &now

	if set.RestTimer != nil && !set.RestTimer.HasElapsed {
		set.DisplayRestTimeTrigger = true
	}
	if s.Kind == models.KindWorkout && s.Paused() {
		resumeStopwatch(s, now)
	}
	return nil
}

// confirmedInSession collects statistics already confirmed in this session
// for exerciseID, so a second set in the same workout is compared against
// the first.
func confirmedInSession(s *models.Session, exerciseID string) []models.Statistic {
	var out []models.Statistic
	for _, ex := range s.Exercises {
		if ex.ExerciseID != exerciseID {
			continue
		}
		for _, set := range ex.Sets {
			if set.Confirmed() {
				out = append(out, set.Statistic)
			}
		}
	}
	return out
}

// PersonalBests returns the metrics in which stat beats every prior value.
// A metric with no prior value counts as a personal best.
func PersonalBests(lot models.ExerciseLot, stat models.Statistic, prior []models.Statistic) []models.PersonalBestKind {
	var out []models.PersonalBestKind
	for _, kind := range lot.PersonalBests() {
		v, ok := stat.Value(kind)
		if !ok || v <= 0 {
			continue
		}
		best := true
		for _, p := range prior {
			if pv, ok := p.Value(kind); ok && pv >= v {
				best = false
				break
			}
		}
		if best {
			out = append(out, kind)
		}
	}
	return out
}

// GlobalSetIndex locates set setIdx of exercise exIdx among all sets of the
// same catalog exercise in the session: the set counts of earlier
// occurrences plus setIdx. History is correlated through this index.
func GlobalSetIndex(s *models.Session, exIdx, setIdx int) int {
	id := s.Exercises[exIdx].ExerciseID
	idx := 0
	for i := 0; i < exIdx; i++ {
		if s.Exercises[i].ExerciseID == id {
			idx += len(s.Exercises[i].Sets)
		}
	}
	return idx + setIdx
}

// previousStatistic returns the historical set at the global index of the
// given set, flattening history newest workout first.
func previousStatistic(history []models.HistoryEntry, globalIdx int) (models.Statistic, bool) {
	n := 0
	for _, h := range history {
		if globalIdx < n+len(h.SetsPlayed) {
			return h.SetsPlayed[globalIdx-n].Statistic.Clone(), true
		}
		n += len(h.SetsPlayed)
	}
	return models.Statistic{}, false
}

// historyStatistics flattens history into a statistic list.
func historyStatistics(history []models.HistoryEntry) []models.Statistic {
	out := []models.Statistic{}
	for _, h := range history {
		for _, set := range h.SetsPlayed {
			out = append(out, set.Statistic)
		}
	}
	return out
}

// Progress describes how far an exercise has been worked through.
type Progress string

const (
	ProgressNotStarted Progress = "not-started"
	ProgressInProgress Progress = "in-progress"
	ProgressComplete   Progress = "complete"
)

// ExerciseProgress reports the progress of ex.
func ExerciseProgress(ex models.ExerciseEntry) Progress {
	confirmed := 0
	for _, set := range ex.Sets {
		if set.Confirmed() {
			confirmed++
		}
	}
	switch {
	case confirmed > 0 && confirmed == len(ex.Sets):
		return ProgressComplete
	case confirmed > 0:
		return ProgressInProgress
	default:
		return ProgressNotStarted
	}
}

// Position addresses a set by indexes.
type Position struct {
	ExerciseIdx int `json:"exerciseIdx"`
	SetIdx      int `json:"setIdx"`
}

// NextSet finds where the user should go after the set at (exIdx, setIdx).
// Within a superset the next member with unconfirmed sets wins; otherwise a
// finished exercise hands over to the next incomplete one. ok is false when
// the workout has nothing left.
func NextSet(s *models.Session, exIdx, setIdx int) (Position, bool) {
	ex := s.Exercises[exIdx]
	if g, ok := supersetOf(s, exIdx); ok {
		for _, member := range g.ExerciseIndexes {
			if member == exIdx {
				continue
			}
			for i, set := range s.Exercises[member].Sets {
				if !set.Confirmed() {
					return Position{ExerciseIdx: member, SetIdx: i}, true
				}
			}
		}
	}
	if ExerciseProgress(ex) == ProgressComplete {
		for i := exIdx + 1; i < len(s.Exercises); i++ {
			if ExerciseProgress(s.Exercises[i]) != ProgressComplete {
				return Position{ExerciseIdx: i}, true
			}
		}
		return Position{}, false
	}
	if exIdx == len(s.Exercises)-1 && setIdx == len(ex.Sets)-1 {
		return Position{}, false
	}
	if setIdx+1 < len(ex.Sets) {
		return Position{ExerciseIdx: exIdx, SetIdx: setIdx + 1}, true
	}
	for i, set := range ex.Sets {
		if !set.Confirmed() {
			return Position{ExerciseIdx: exIdx, SetIdx: i}, true
		}
	}
	return Position{}, false
}
