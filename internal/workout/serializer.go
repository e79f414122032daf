package workout

import (
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// BuildCommitPayload converts a session into the remote create-or-update
// payload. Workouts keep only confirmed sets; templates keep every set that
// has any statistic entered. Exercises left without sets are dropped and
// superset indexes are recomputed against the exercises that remain.
// Ephemeral fields such as DisplayRestTimeTrigger have no wire form.
func BuildCommitPayload(s *models.Session, now time.Time) models.CommitPayload {
	p := models.CommitPayload{
		Name:            strings.TrimSpace(s.Name),
		Comment:         s.Comment,
		StartTime:       s.StartTime,
		EndTime:         now,
		RepeatedFrom:    s.RepeatedFromID,
		TemplateID:      s.TemplateID,
		UpdateWorkoutID: s.UpdateWorkoutID,
		Assets:          s.Assets.Clone(),
		Exercises:       []models.CommitExercise{},
	}
	if s.Kind == models.KindWorkout {
		p.Durations = closedIntervals(s.Intervals, now)
	}

	// payloadIdx maps a session exercise index to its payload index.
	payloadIdx := make(map[int]int, len(s.Exercises))
	for i, ex := range s.Exercises {
		sets := commitSets(s.Kind, ex.Sets)
		if len(sets) == 0 {
			continue
		}
		notes := []string{}
		for _, n := range ex.Notes {
			if strings.TrimSpace(n) != "" {
				notes = append(notes, n)
			}
		}
		payloadIdx[i] = len(p.Exercises)
		p.Exercises = append(p.Exercises, models.CommitExercise{
			ExerciseID:   ex.ExerciseID,
			Notes:        notes,
			Sets:         sets,
			Assets:       ex.Assets.Clone(),
			SupersetWith: []int{},
		})
	}

	for _, g := range s.Supersets {
		var members []int
		for _, idx := range g.ExerciseIndexes {
			if n, ok := payloadIdx[idx]; ok {
				members = append(members, n)
			}
		}
		if len(members) < 2 {
			continue
		}
		p.Supersets = append(p.Supersets, models.CommitSuperset{Color: g.Color, Exercises: members})
		for _, m := range members {
			for _, other := range members {
				if other != m {
					p.Exercises[m].SupersetWith = append(p.Exercises[m].SupersetWith, other)
				}
			}
		}
	}
	return p
}

func commitSets(kind models.SessionKind, sets []models.SetRecord) []models.CommitSet {
	out := []models.CommitSet{}
	for _, set := range sets {
		if set.Statistic.Empty() {
			continue
		}
		if kind == models.KindWorkout && !set.Confirmed() {
			continue
		}
		cs := models.CommitSet{
			Lot:         set.Lot,
			Statistic:   set.Statistic.Clone(),
			ConfirmedAt: nil,
			RPE:         set.RPE,
		}
		if kind == models.KindWorkout {
			t := *set.ConfirmedAt
			cs.ConfirmedAt = &t
		}
		if set.Note != nil {
			cs.Note = strings.TrimSpace(*set.Note)
		}
		if set.RestTimer != nil {
			d := set.RestTimer.Duration
			cs.RestTime = &d
		}
		out = append(out, cs)
	}
	return out
}
