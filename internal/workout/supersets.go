package workout

import (
	"slices"

	"github.com/claude/liftlog/internal/models"
)

// SupersetColors is the palette new supersets draw from, in order.
var SupersetColors = []string{
	"red", "pink", "grape", "violet", "indigo", "blue",
	"cyan", "teal", "green", "lime", "yellow", "orange",
}

// remapSupersets rewrites every group's indexes through remap. Members for
// which remap reports false are dropped, and groups left with fewer than two
// members are deleted. Every structural change to Session.Exercises goes
// through here.
func remapSupersets(s *models.Session, remap func(old int) (int, bool)) {
	groups := s.Supersets[:0]
	for _, g := range s.Supersets {
		var idxs []int
		for _, old := range g.ExerciseIndexes {
			if n, ok := remap(old); ok {
				idxs = append(idxs, n)
			}
		}
		if len(idxs) < 2 {
			continue
		}
		slices.Sort(idxs)
		g.ExerciseIndexes = idxs
		groups = append(groups, g)
	}
	s.Supersets = groups
}

// removeExercise deletes the exercise at idx and renumbers supersets.
func removeExercise(s *models.Session, idx int) {
	s.Exercises = slices.Delete(s.Exercises, idx, idx+1)
	remapSupersets(s, func(old int) (int, bool) {
		switch {
		case old == idx:
			return 0, false
		case old > idx:
			return old - 1, true
		default:
			return old, true
		}
	})
}

// reorderExercises rewrites Session.Exercises into the order of ids, which
// must be a permutation of the current identifiers.
func reorderExercises(s *models.Session, ids []string) error {
	if len(ids) != len(s.Exercises) {
		return invalid("order", "must list every exercise exactly once")
	}
	oldIdx := make(map[string]int, len(s.Exercises))
	for i, ex := range s.Exercises {
		oldIdx[ex.Identifier] = i
	}
	newIdx := make(map[int]int, len(ids))
	reordered := make([]models.ExerciseEntry, 0, len(ids))
	for n, id := range ids {
		o, ok := oldIdx[id]
		if !ok {
			return invalid("order", "unknown exercise "+id)
		}
		if _, dup := newIdx[o]; dup {
			return invalid("order", "duplicate exercise "+id)
		}
		newIdx[o] = n
		reordered = append(reordered, s.Exercises[o])
	}
	s.Exercises = reordered
	remapSupersets(s, func(old int) (int, bool) {
		n, ok := newIdx[old]
		return n, ok
	})
	return nil
}

// supersetOf returns the group containing the exercise at idx.
func supersetOf(s *models.Session, idx int) (models.SupersetGroup, bool) {
	for _, g := range s.Supersets {
		if g.Contains(idx) {
			return g, true
		}
	}
	return models.SupersetGroup{}, false
}

func supersetIndex(s *models.Session, id string) int {
	return slices.IndexFunc(s.Supersets, func(g models.SupersetGroup) bool { return g.Identifier == id })
}

// nextSupersetColor picks the first palette color not used by another group.
func nextSupersetColor(s *models.Session) string {
	for _, c := range SupersetColors {
		if !slices.ContainsFunc(s.Supersets, func(g models.SupersetGroup) bool { return g.Color == c }) {
			return c
		}
	}
	return SupersetColors[len(s.Supersets)%len(SupersetColors)]
}

// supersetMembers resolves exercise identifiers to indexes and checks that
// none of them already belongs to a group other than except.
func supersetMembers(s *models.Session, ids []string, except string) ([]int, error) {
	if len(ids) < 2 {
		return nil, invalid("superset", "needs at least two exercises")
	}
	idxs := make([]int, 0, len(ids))
	for _, id := range ids {
		i := exerciseIndex(s, id)
		if i < 0 {
			return nil, ErrExerciseNotFound
		}
		if slices.Contains(idxs, i) {
			return nil, invalid("superset", "duplicate exercise "+id)
		}
		if g, ok := supersetOf(s, i); ok && g.Identifier != except {
			return nil, invalid("superset", "exercise "+id+" is already in a superset")
		}
		idxs = append(idxs, i)
	}
	slices.Sort(idxs)
	return idxs, nil
}
