package workout

import (
	"testing"

	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeExercises() *models.Session {
	r := models.Statistic{Reps: models.Float(1)}
	s := sessionWith(models.KindWorkout,
		exercise("A", "a", models.ExerciseLotReps, r),
		exercise("B", "b", models.ExerciseLotReps, r),
		exercise("C", "c", models.ExerciseLotReps, r),
	)
	s.Supersets = []models.SupersetGroup{{Identifier: "g", Color: "red", ExerciseIndexes: []int{0, 2}}}
	return s
}

func TestReorderExercises_RemapsSupersets(t *testing.T) {
	s := threeExercises()

	require.NoError(t, reorderExercises(s, []string{"C", "A", "B"}))

	require.Len(t, s.Supersets, 1)
	assert.Equal(t, []int{0, 1}, s.Supersets[0].ExerciseIndexes)
	var members []string
	for _, i := range s.Supersets[0].ExerciseIndexes {
		members = append(members, s.Exercises[i].Identifier)
	}
	assert.ElementsMatch(t, []string{"A", "C"}, members)
}

func TestReorderExercises_RejectsNonPermutation(t *testing.T) {
	for name, ids := range map[string][]string{
		"short":     {"A", "B"},
		"unknown":   {"A", "B", "X"},
		"duplicate": {"A", "A", "B"},
	} {
		t.Run(name, func(t *testing.T) {
			s := threeExercises()
			err := reorderExercises(s, ids)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestRemoveExercise_ShiftsSupersets(t *testing.T) {
	s := threeExercises()
	s.Supersets[0].ExerciseIndexes = []int{1, 2}

	removeExercise(s, 0)

	require.Len(t, s.Supersets, 1)
	assert.Equal(t, []int{0, 1}, s.Supersets[0].ExerciseIndexes)
}

func TestRemoveExercise_DissolvesSingleMemberSuperset(t *testing.T) {
	s := threeExercises()

	removeExercise(s, 2)

	assert.Empty(t, s.Supersets)
	assert.Len(t, s.Exercises, 2)
}

func TestSupersetMembers(t *testing.T) {
	s := threeExercises()

	_, err := supersetMembers(s, []string{"A"}, "")
	assert.True(t, IsValidation(err))

	_, err = supersetMembers(s, []string{"A", "B"}, "")
	assert.True(t, IsValidation(err), "A already belongs to g")

	idxs, err := supersetMembers(s, []string{"B", "A"}, "g")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idxs)

	_, err = supersetMembers(s, []string{"B", "Z"}, "g")
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestNextSupersetColor(t *testing.T) {
	s := threeExercises()
	assert.Equal(t, "pink", nextSupersetColor(s))
}
