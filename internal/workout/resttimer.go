package workout

import (
	"errors"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// remainingSeconds derives the countdown from the wall clock so that missed
// ticks never make the timer drift.
func remainingSeconds(total int, startedAt, now time.Time) int {
	return total - int(now.Sub(startedAt)/time.Second)
}

// RestTimer returns the running countdown, or nil.
func (e *Engine) RestTimer() *models.RestTimerSignal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signalSnapshotLocked()
}

func (e *Engine) signalSnapshotLocked() *models.RestTimerSignal {
	if e.signal == nil {
		return nil
	}
	sig := *e.signal
	sig.RemainingSeconds = max(0, remainingSeconds(sig.TotalSeconds, sig.StartedAt, e.now()))
	return &sig
}

// StartRestTimer starts the countdown of a set's rest timer, replacing any
// countdown already running. The set it replaces keeps its own state. A set
// without a timer gets the default for its lot.
func (e *Engine) StartRestTimer(exerciseID, setID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.kind != models.KindWorkout {
		return invalid("rest timer", "templates are not performed")
	}
	now := e.now()
	var sig *models.RestTimerSignal
	err := e.mutateLocked("start_rest_timer", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		set := &s.Exercises[exIdx].Sets[setIdx]
		if set.RestTimer == nil {
			d := e.restTimers.For(set.Lot)
			if d <= 0 {
				return invalid("rest timer", "set has no rest timer")
			}
			set.RestTimer = &models.SetRestTimer{Duration: d}
		}
		if set.RestTimer.HasElapsed {
			return invalid("rest timer", "has already elapsed")
		}
		if set.RestTimer.Duration <= 0 {
			return invalid("rest timer", "duration must be positive")
		}
		started := now
		set.RestTimer.StartedAt = &started
		set.DisplayRestTimeTrigger = false
		sig = &models.RestTimerSignal{
			TriggeredBy:      models.RestTimerTrigger{ExerciseIdentifier: exerciseID, SetIdentifier: setID},
			TotalSeconds:     set.RestTimer.Duration,
			RemainingSeconds: set.RestTimer.Duration,
			StartedAt:        now,
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.setSignalLocked(sig)
	return nil
}

// StartTimer starts a countdown that belongs to no set.
func (e *Engine) StartTimer(seconds int) error {
	if seconds <= 0 {
		return invalid("duration", "must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.kind != models.KindWorkout {
		return invalid("rest timer", "templates are not performed")
	}
	if e.committing {
		return ErrSessionLocked
	}
	now := e.now()
	e.setSignalLocked(&models.RestTimerSignal{TotalSeconds: seconds, RemainingSeconds: seconds, StartedAt: now})
	return nil
}

// AdjustRestTimer lengthens or shortens the running countdown by delta
// seconds. The owning set's duration follows. A countdown pushed to zero
// elapses immediately.
func (e *Engine) AdjustRestTimer(delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signal == nil {
		return ErrNoRestTimer
	}
	if e.committing {
		return ErrSessionLocked
	}
	total := max(0, e.signal.TotalSeconds+delta)
	return e.resizeSignalLocked(total, true)
}

// SetRestTimerDuration sets the rest duration of one set. When that set owns
// the running countdown the new duration applies at once.
func (e *Engine) SetRestTimerDuration(exerciseID, setID string, seconds int) error {
	if seconds <= 0 {
		return invalid("duration", "must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.mutateLocked("set_rest_timer_duration", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		set := &s.Exercises[exIdx].Sets[setIdx]
		if set.RestTimer == nil {
			set.RestTimer = &models.SetRestTimer{}
		}
		set.RestTimer.Duration = seconds
		return nil
	})
	if err != nil {
		return err
	}
	if e.ownsSignalLocked(exerciseID, setID) {
		return e.resizeSignalLocked(seconds, false)
	}
	return nil
}

// resizeSignalLocked sets a new total on the running countdown, optionally
// writing it back to the owning set.
func (e *Engine) resizeSignalLocked(total int, writeBack bool) error {
	trigger := e.signal.TriggeredBy
	if writeBack && trigger.SetIdentifier != "" {
		err := e.store.Mutate("adjust_rest_timer", func(s *models.Session) error {
			exIdx, setIdx, err := locate(s, trigger.ExerciseIdentifier, trigger.SetIdentifier)
			if err != nil {
				return err
			}
			if rt := s.Exercises[exIdx].Sets[setIdx].RestTimer; rt != nil {
				rt.Duration = total
			}
			return nil
		})
		if err != nil && !isGone(err) {
			return err
		}
	}
	e.signal.TotalSeconds = total
	rem := remainingSeconds(total, e.signal.StartedAt, e.now())
	if rem <= 0 {
		e.elapseLocked()
		return nil
	}
	e.signal.RemainingSeconds = rem
	return nil
}

// StopRestTimer ends the running countdown early. The owning set's timer
// counts as elapsed.
func (e *Engine) StopRestTimer() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signal == nil {
		return ErrNoRestTimer
	}
	if e.committing {
		return ErrSessionLocked
	}
	e.elapseLocked()
	return nil
}

// ToggleSetRestTimer removes a set's rest timer, or gives it one of
// DefaultSetRestTimer seconds when it has none.
func (e *Engine) ToggleSetRestTimer(exerciseID, setID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := false
	err := e.mutateLocked("toggle_set_rest_timer", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		set := &s.Exercises[exIdx].Sets[setIdx]
		if set.RestTimer != nil {
			set.RestTimer = nil
			set.DisplayRestTimeTrigger = false
			removed = true
			return nil
		}
		set.RestTimer = &models.SetRestTimer{Duration: DefaultSetRestTimer}
		return nil
	})
	if err != nil {
		return err
	}
	if removed && e.ownsSignalLocked(exerciseID, setID) {
		e.clearSignalLocked()
	}
	return nil
}

// Tick advances the countdown. Run calls it on every tick interval. While a
// commit is in flight a countdown that ran out waits at zero: it elapses on
// the next tick if the commit fails and is dropped with the session if it
// succeeds.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signal == nil {
		return
	}
	rem := remainingSeconds(e.signal.TotalSeconds, e.signal.StartedAt, e.now())
	if rem > 0 || e.committing {
		e.signal.RemainingSeconds = max(0, rem)
		return
	}
	e.elapseLocked()
}

// elapseLocked ends the countdown and marks the owning set's timer elapsed
// in the same critical section.
func (e *Engine) elapseLocked() {
	sig := e.signal
	if sig == nil {
		return
	}
	trigger := sig.TriggeredBy
	if trigger.SetIdentifier != "" {
		err := e.store.Mutate("rest_timer_elapsed", func(s *models.Session) error {
			exIdx, setIdx, err := locate(s, trigger.ExerciseIdentifier, trigger.SetIdentifier)
			if err != nil {
				return err
			}
			set := &s.Exercises[exIdx].Sets[setIdx]
			if set.RestTimer != nil {
				set.RestTimer.HasElapsed = true
			}
			return nil
		})
		if err != nil && !isGone(err) {
			e.log.Warn("marking rest timer elapsed", "error", err)
		}
	}
	e.clearSignalLocked()
	if e.metrics != nil {
		e.metrics.CounterRestTimersElapsed.Inc()
	}
	e.log.Debug("rest timer elapsed", "exercise", trigger.ExerciseIdentifier, "set", trigger.SetIdentifier)
	e.emit(Event{Type: EventRestTimerElapsed, Trigger: trigger, At: e.now()})
}

func (e *Engine) setSignalLocked(sig *models.RestTimerSignal) {
	e.signal = sig
	if e.metrics != nil {
		e.metrics.GaugeRestTimerActive.Set(1)
	}
}

func (e *Engine) clearSignalLocked() {
	e.signal = nil
	if e.metrics != nil {
		e.metrics.GaugeRestTimerActive.Set(0)
	}
}

// ownsSignalLocked reports whether the countdown was started by the given
// set, or by any set of the exercise when setID is empty.
func (e *Engine) ownsSignalLocked(exerciseID, setID string) bool {
	if e.signal == nil {
		return false
	}
	t := e.signal.TriggeredBy
	return t.ExerciseIdentifier == exerciseID && (setID == "" || t.SetIdentifier == setID)
}

// restoreSignalLocked rebuilds the countdown after a reload from the most
// recently started timer that has not elapsed. One that ran out while the
// process was down is marked elapsed instead.
func (e *Engine) restoreSignalLocked(sess *models.Session) {
	if e.kind != models.KindWorkout {
		return
	}
	var (
		latest  *models.SetRestTimer
		trigger models.RestTimerTrigger
	)
	for _, ex := range sess.Exercises {
		for _, set := range ex.Sets {
			rt := set.RestTimer
			if rt == nil || rt.HasElapsed || rt.StartedAt == nil {
				continue
			}
			if latest == nil || rt.StartedAt.After(*latest.StartedAt) {
				latest = rt
				trigger = models.RestTimerTrigger{ExerciseIdentifier: ex.Identifier, SetIdentifier: set.Identifier}
			}
		}
	}
	if latest == nil {
		return
	}
	e.setSignalLocked(&models.RestTimerSignal{
		TriggeredBy:      trigger,
		TotalSeconds:     latest.Duration,
		RemainingSeconds: latest.Duration,
		StartedAt:        *latest.StartedAt,
	})
	if rem := remainingSeconds(latest.Duration, *latest.StartedAt, e.now()); rem > 0 {
		e.signal.RemainingSeconds = rem
		e.log.Info("resumed rest timer", "remaining", rem)
		return
	}
	e.elapseLocked()
}

// isGone reports errors meaning the timer's set no longer exists.
func isGone(err error) bool {
	return errors.Is(err, ErrSetNotFound) || errors.Is(err, ErrExerciseNotFound) || errors.Is(err, ErrNoActiveSession)
}
