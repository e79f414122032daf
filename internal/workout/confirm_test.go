package workout

import (
	"testing"

	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanConfirm(t *testing.T) {
	f := models.Float
	tests := []struct {
		lot      models.ExerciseLot
		required models.Statistic
		missing  []models.Statistic
	}{
		{
			lot:      models.ExerciseLotReps,
			required: models.Statistic{Reps: f(10)},
			missing:  []models.Statistic{{}, {Weight: f(20)}},
		},
		{
			lot:      models.ExerciseLotDuration,
			required: models.Statistic{Duration: f(60)},
			missing:  []models.Statistic{{}, {Reps: f(5)}},
		},
		{
			lot:      models.ExerciseLotRepsAndDuration,
			required: models.Statistic{Reps: f(10), Duration: f(30)},
			missing:  []models.Statistic{{Reps: f(10)}, {Duration: f(30)}},
		},
		{
			lot:      models.ExerciseLotDistanceAndDuration,
			required: models.Statistic{Distance: f(5), Duration: f(1800)},
			missing:  []models.Statistic{{Distance: f(5)}, {Duration: f(1800)}},
		},
		{
			lot:      models.ExerciseLotRepsAndWeight,
			required: models.Statistic{Reps: f(8), Weight: f(60)},
			missing:  []models.Statistic{{Reps: f(8)}, {Weight: f(60)}},
		},
		{
			lot:      models.ExerciseLotRepsAndDurationAndDistance,
			required: models.Statistic{Reps: f(1), Duration: f(60), Distance: f(0.4)},
			missing: []models.Statistic{
				{Reps: f(1), Duration: f(60)},
				{Reps: f(1), Distance: f(0.4)},
				{Duration: f(60), Distance: f(0.4)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.lot), func(t *testing.T) {
			assert.True(t, CanConfirm(tt.lot, tt.required), "exactly the required fields")
			for _, m := range tt.missing {
				assert.False(t, CanConfirm(tt.lot, m), "missing a required field: %+v", m)
			}
		})
	}
	assert.True(t, CanConfirm(models.ExerciseLot("something_else"), models.Statistic{}))
}

func TestConfirmSet(t *testing.T) {
	now := at(30)
	s := sessionWith(models.KindWorkout,
		exercise("a", "bench", models.ExerciseLotRepsAndWeight,
			models.Statistic{Reps: models.Float(5), Weight: models.Float(100)},
			models.Statistic{Reps: models.Float(5)},
		),
	)
	s.Exercises[0].Sets[0].RestTimer = &models.SetRestTimer{Duration: 90}
	s.Intervals = []models.Interval{{From: at(0), To: ptrTime(at(20))}}

	require.NoError(t, confirmSet(s, 0, 0, []models.Statistic{{Reps: models.Float(5), Weight: models.Float(90)}}, now))

	set := s.Exercises[0].Sets[0]
	require.NotNil(t, set.ConfirmedAt)
	assert.Equal(t, now, *set.ConfirmedAt)
	assert.True(t, set.DisplayRestTimeTrigger)
	require.NotNil(t, set.Statistic.Volume)
	assert.InDelta(t, 500, *set.Statistic.Volume, 1e-9)
	assert.ElementsMatch(t, []models.PersonalBestKind{
		models.PersonalBestOneRM, models.PersonalBestWeight, models.PersonalBestVolume,
	}, set.PersonalBests)
	assert.False(t, s.Paused(), "confirming resumes a paused workout")

	err := confirmSet(s, 0, 1, nil, now)
	assert.True(t, IsValidation(err))
	assert.Nil(t, s.Exercises[0].Sets[1].ConfirmedAt)
}

func TestConfirmSet_AlreadyConfirmedIsNoop(t *testing.T) {
	s := sessionWith(models.KindWorkout, exercise("a", "pushup", models.ExerciseLotReps, models.Statistic{Reps: models.Float(10)}))
	require.NoError(t, confirmSet(s, 0, 0, nil, at(1)))
	require.NoError(t, confirmSet(s, 0, 0, nil, at(5)))
	assert.Equal(t, at(1), *s.Exercises[0].Sets[0].ConfirmedAt)
}

func TestPersonalBests_ComparesWithinSession(t *testing.T) {
	s := sessionWith(models.KindWorkout,
		exercise("a", "pushup", models.ExerciseLotReps, models.Statistic{Reps: models.Float(20)}),
		exercise("b", "pushup", models.ExerciseLotReps, models.Statistic{Reps: models.Float(15)}),
	)
	require.NoError(t, confirmSet(s, 0, 0, []models.Statistic{}, at(1)))
	require.NoError(t, confirmSet(s, 1, 0, []models.Statistic{}, at(2)))

	assert.Equal(t, []models.PersonalBestKind{models.PersonalBestReps}, s.Exercises[0].Sets[0].PersonalBests)
	assert.Empty(t, s.Exercises[1].Sets[0].PersonalBests)
}

func TestGlobalSetIndex(t *testing.T) {
	r := models.Statistic{Reps: models.Float(1)}
	s := sessionWith(models.KindWorkout,
		exercise("a", "squat", models.ExerciseLotReps, r, r, r),
		exercise("b", "bench", models.ExerciseLotReps, r, r),
		exercise("c", "squat", models.ExerciseLotReps, r, r),
	)

	assert.Equal(t, 1, GlobalSetIndex(s, 0, 1))
	assert.Equal(t, 1, GlobalSetIndex(s, 1, 1), "other exercises do not count")
	assert.Equal(t, 4, GlobalSetIndex(s, 2, 1))
	assert.Equal(t, GlobalSetIndex(s, 2, 1), GlobalSetIndex(s, 2, 1))
}

func TestPreviousStatistic(t *testing.T) {
	history := []models.HistoryEntry{
		{WorkoutID: "w2", SetsPlayed: []models.HistorySet{
			{Statistic: models.Statistic{Reps: models.Float(12)}},
		}},
		{WorkoutID: "w1", SetsPlayed: []models.HistorySet{
			{Statistic: models.Statistic{Reps: models.Float(10)}},
			{Statistic: models.Statistic{Reps: models.Float(8)}},
		}},
	}

	got, ok := previousStatistic(history, 0)
	require.True(t, ok)
	assert.Equal(t, 12.0, *got.Reps)

	got, ok = previousStatistic(history, 2)
	require.True(t, ok)
	assert.Equal(t, 8.0, *got.Reps)

	_, ok = previousStatistic(history, 3)
	assert.False(t, ok)
}

func TestNextSet(t *testing.T) {
	r := models.Statistic{Reps: models.Float(1)}
	s := sessionWith(models.KindWorkout,
		exercise("a", "pull", models.ExerciseLotReps, r, r),
		exercise("b", "push", models.ExerciseLotReps, r, r),
		exercise("c", "curl", models.ExerciseLotReps, r),
	)

	pos, ok := NextSet(s, 0, 0)
	require.True(t, ok)
	assert.Equal(t, Position{ExerciseIdx: 0, SetIdx: 1}, pos)

	s.Supersets = []models.SupersetGroup{{Identifier: "g", ExerciseIndexes: []int{0, 1}}}
	pos, ok = NextSet(s, 0, 0)
	require.True(t, ok)
	assert.Equal(t, Position{ExerciseIdx: 1, SetIdx: 0}, pos, "superset hands over to the partner")

	s.Supersets = nil
	for i := range s.Exercises[0].Sets {
		s.Exercises[0].Sets[i].ConfirmedAt = ptrTime(at(1))
	}
	pos, ok = NextSet(s, 0, 1)
	require.True(t, ok)
	assert.Equal(t, Position{ExerciseIdx: 1}, pos)

	_, ok = NextSet(s, 2, 0)
	assert.False(t, ok)
}

func TestExerciseProgress(t *testing.T) {
	r := models.Statistic{Reps: models.Float(1)}
	ex := exercise("a", "pull", models.ExerciseLotReps, r, r)
	assert.Equal(t, ProgressNotStarted, ExerciseProgress(ex))
	ex.Sets[0].ConfirmedAt = ptrTime(at(1))
	assert.Equal(t, ProgressInProgress, ExerciseProgress(ex))
	ex.Sets[1].ConfirmedAt = ptrTime(at(2))
	assert.Equal(t, ProgressComplete, ExerciseProgress(ex))
}
