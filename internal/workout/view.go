package workout

import (
	"github.com/claude/liftlog/internal/models"
)

// SetView carries what a client needs to render one set beyond its record.
type SetView struct {
	Identifier  string `json:"identifier"`
	GlobalIndex int    `json:"globalIndex"`
	CanConfirm  bool   `json:"canConfirm"`
	Confirmed   bool   `json:"confirmed"`
}

// ExerciseView summarizes one exercise.
type ExerciseView struct {
	Identifier    string    `json:"identifier"`
	ExerciseID    string    `json:"exerciseId"`
	Progress      Progress  `json:"progress"`
	SupersetID    string    `json:"supersetId,omitempty"`
	SupersetColor string    `json:"supersetColor,omitempty"`
	Sets          []SetView `json:"sets"`
}

// SessionView is a consistent snapshot of the session together with its
// derived state.
type SessionView struct {
	Session        *models.Session         `json:"session"`
	ElapsedSeconds int64                   `json:"elapsedSeconds"`
	Paused         bool                    `json:"paused"`
	RestTimer      *models.RestTimerSignal `json:"restTimer"`
	Exercises      []ExerciseView          `json:"exercises"`
	Committing     bool                    `json:"committing"`
	PersistError   string                  `json:"persistError,omitempty"`
}

// View returns the session and its derived state as of now.
func (e *Engine) View() (*SessionView, error) {
	e.mu.Lock()
	sess := e.store.Read()
	sig := e.signalSnapshotLocked()
	committing := e.committing
	e.mu.Unlock()
	if sess == nil {
		return nil, ErrNoActiveSession
	}

	v := &SessionView{
		Session:        sess,
		ElapsedSeconds: int64(Elapsed(sess.Intervals, e.now()).Seconds()),
		Paused:         sess.Kind == models.KindWorkout && sess.Paused(),
		RestTimer:      sig,
		Exercises:      make([]ExerciseView, 0, len(sess.Exercises)),
		Committing:     committing,
	}
	if err := e.store.LastPersistError(); err != nil {
		v.PersistError = err.Error()
	}
	for i, ex := range sess.Exercises {
		ev := ExerciseView{
			Identifier: ex.Identifier,
			ExerciseID: ex.ExerciseID,
			Progress:   ExerciseProgress(ex),
			Sets:       make([]SetView, 0, len(ex.Sets)),
		}
		if g, ok := supersetOf(sess, i); ok {
			ev.SupersetID = g.Identifier
			ev.SupersetColor = g.Color
		}
		for j, set := range ex.Sets {
			ev.Sets = append(ev.Sets, SetView{
				Identifier:  set.Identifier,
				GlobalIndex: GlobalSetIndex(sess, i, j),
				CanConfirm:  CanConfirm(ex.Lot, set.Statistic),
				Confirmed:   set.Confirmed(),
			})
		}
		v.Exercises = append(v.Exercises, ev)
	}
	return v, nil
}
