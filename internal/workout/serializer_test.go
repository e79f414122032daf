package workout

import (
	"testing"

	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommitPayload_Workout(t *testing.T) {
	f := models.Float
	s := sessionWith(models.KindWorkout,
		exercise("A", "squat", models.ExerciseLotReps, models.Statistic{Reps: f(5)}, models.Statistic{Reps: f(5)}),
		exercise("B", "bench", models.ExerciseLotReps, models.Statistic{Reps: f(5)}),
		exercise("C", "row", models.ExerciseLotReps, models.Statistic{Reps: f(8)}),
	)
	s.Name = "  Leg day "
	s.Intervals = []models.Interval{{From: at(0), To: ptrTime(at(10))}, {From: at(12)}}
	s.Exercises[0].Sets[0].ConfirmedAt = ptrTime(at(3))
	note := " heavy "
	s.Exercises[0].Sets[0].Note = &note
	s.Exercises[0].Sets[0].RestTimer = &models.SetRestTimer{Duration: 90, HasElapsed: true}
	s.Exercises[0].Sets[0].DisplayRestTimeTrigger = true
	s.Exercises[2].Sets[0].ConfirmedAt = ptrTime(at(20))
	s.Exercises[0].Notes = []string{"keep back straight", "  "}
	s.Supersets = []models.SupersetGroup{{Identifier: "g", Color: "red", ExerciseIndexes: []int{0, 1, 2}}}

	p := BuildCommitPayload(s, at(30))

	assert.Equal(t, "Leg day", p.Name)
	require.Len(t, p.Durations, 2)
	assert.Equal(t, at(30), p.Durations[1].To)

	require.Len(t, p.Exercises, 2, "B has no confirmed sets")
	assert.Equal(t, "squat", p.Exercises[0].ExerciseID)
	assert.Equal(t, "row", p.Exercises[1].ExerciseID)
	assert.Equal(t, []string{"keep back straight"}, p.Exercises[0].Notes)

	require.Len(t, p.Exercises[0].Sets, 1)
	set := p.Exercises[0].Sets[0]
	assert.Equal(t, at(3), *set.ConfirmedAt)
	assert.Equal(t, "heavy", set.Note)
	require.NotNil(t, set.RestTime)
	assert.Equal(t, 90, *set.RestTime)

	require.Len(t, p.Supersets, 1)
	assert.Equal(t, []int{0, 1}, p.Supersets[0].Exercises)
	assert.Equal(t, []int{1}, p.Exercises[0].SupersetWith)
	assert.Equal(t, []int{0}, p.Exercises[1].SupersetWith)
}

func TestBuildCommitPayload_Template(t *testing.T) {
	f := models.Float
	s := sessionWith(models.KindTemplate,
		exercise("A", "squat", models.ExerciseLotRepsAndWeight,
			models.Statistic{Reps: f(5)},
			models.Statistic{},
			models.Statistic{Weight: f(100)},
		),
	)

	p := BuildCommitPayload(s, at(30))

	assert.Empty(t, p.Durations)
	require.Len(t, p.Exercises, 1)
	require.Len(t, p.Exercises[0].Sets, 2, "only the empty set is dropped")
	for _, set := range p.Exercises[0].Sets {
		assert.Nil(t, set.ConfirmedAt)
	}
}

func TestBuildCommitPayload_SupersetBelowTwoDropped(t *testing.T) {
	f := models.Float
	s := sessionWith(models.KindWorkout,
		exercise("A", "squat", models.ExerciseLotReps, models.Statistic{Reps: f(5)}),
		exercise("B", "bench", models.ExerciseLotReps, models.Statistic{Reps: f(5)}),
	)
	s.Exercises[0].Sets[0].ConfirmedAt = ptrTime(at(1))
	s.Supersets = []models.SupersetGroup{{Identifier: "g", Color: "red", ExerciseIndexes: []int{0, 1}}}

	p := BuildCommitPayload(s, at(2))

	assert.Empty(t, p.Supersets)
	assert.Empty(t, p.Exercises[0].SupersetWith)
}
