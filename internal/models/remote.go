package models

import "time"

// ExerciseDetails is catalog metadata for an exercise.
type ExerciseDetails struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Lot       ExerciseLot `json:"lot"`
	Equipment string      `json:"equipment,omitempty"`
	Muscles   []string    `json:"muscles,omitempty"`
	Images    []string    `json:"images,omitempty"`
}

// HistorySet is one set from a previously committed workout.
type HistorySet struct {
	Lot       SetLot    `json:"lot"`
	Statistic Statistic `json:"statistic"`
}

// HistoryEntry is one past workout in which an exercise was performed,
// newest first in the slices returned by the remote API.
type HistoryEntry struct {
	WorkoutID  string       `json:"workoutId"`
	Index      int          `json:"idx"`
	SetsPlayed []HistorySet `json:"setsPlayed"`
}

// WorkoutInformation is the stored shape of a past workout or template,
// used to start a new session from it.
type WorkoutInformation struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Comment   string                `json:"comment,omitempty"`
	Exercises []WorkoutInfoExercise `json:"exercises"`
}

// WorkoutInfoExercise is one exercise of a stored workout.
type WorkoutInfoExercise struct {
	ExerciseID   string       `json:"exerciseId"`
	Lot          ExerciseLot  `json:"lot"`
	Notes        []string     `json:"notes,omitempty"`
	Sets         []HistorySet `json:"sets"`
	SupersetWith []int        `json:"supersetWith,omitempty"`
}

// CommitPayload is the body of the create-or-update workout/template call.
type CommitPayload struct {
	Name            string           `json:"name"`
	Comment         string           `json:"comment,omitempty"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         time.Time        `json:"endTime"`
	Durations       []CommitDuration `json:"durations,omitempty"`
	RepeatedFrom    string           `json:"repeatedFrom,omitempty"`
	TemplateID      string           `json:"templateId,omitempty"`
	UpdateWorkoutID string           `json:"updateWorkoutId,omitempty"`
	Assets          Assets           `json:"assets"`
	Exercises       []CommitExercise `json:"exercises"`
	Supersets       []CommitSuperset `json:"supersets,omitempty"`
}

// CommitDuration is a closed stopwatch interval.
type CommitDuration struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CommitExercise is one exercise in a commit payload.
type CommitExercise struct {
	ExerciseID   string      `json:"exerciseId"`
	Notes        []string    `json:"notes"`
	Sets         []CommitSet `json:"sets"`
	Assets       Assets      `json:"assets"`
	SupersetWith []int       `json:"supersetWith"`
}

// CommitSet is one set in a commit payload.
type CommitSet struct {
	Lot         SetLot     `json:"lot"`
	Statistic   Statistic  `json:"statistic"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
	Note        string     `json:"note,omitempty"`
	RPE         *float64   `json:"rpe,omitempty"`
	RestTime    *int       `json:"restTime,omitempty"`
}

// CommitSuperset is a superset expressed against payload exercise indexes.
type CommitSuperset struct {
	Color     string `json:"color"`
	Exercises []int  `json:"exercises"`
}

// CommitResult is returned by the remote API on success.
type CommitResult struct {
	ID string `json:"id"`
}
