package workout

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

func exerciseIndex(s *models.Session, id string) int {
	return slices.IndexFunc(s.Exercises, func(ex models.ExerciseEntry) bool { return ex.Identifier == id })
}

func setIndex(ex models.ExerciseEntry, id string) int {
	return slices.IndexFunc(ex.Sets, func(set models.SetRecord) bool { return set.Identifier == id })
}

// locate resolves exercise and set identifiers to indexes.
func locate(s *models.Session, exerciseID, setID string) (int, int, error) {
	exIdx := exerciseIndex(s, exerciseID)
	if exIdx < 0 {
		return 0, 0, ErrExerciseNotFound
	}
	setIdx := setIndex(s.Exercises[exIdx], setID)
	if setIdx < 0 {
		return 0, 0, ErrSetNotFound
	}
	return exIdx, setIdx, nil
}

func (e *Engine) newSet(lot models.SetLot, stat models.Statistic) models.SetRecord {
	if !lot.Valid() {
		lot = models.SetLotNormal
	}
	set := models.SetRecord{
		Identifier: uuid.NewString(),
		Lot:        lot,
		Statistic:  stat,
	}
	if d := e.restTimers.For(lot); d > 0 {
		set.RestTimer = &models.SetRestTimer{Duration: d}
	}
	return set
}

// --- exercises ---

// NewExercise names a catalog exercise to add. When Lot is empty it is
// looked up in the catalog.
type NewExercise struct {
	ExerciseID string             `json:"exerciseId"`
	Lot        models.ExerciseLot `json:"lot,omitempty"`
}

// AddExercises appends exercises to the session, each with one empty set,
// and returns their identifiers.
func (e *Engine) AddExercises(ctx context.Context, exercises []NewExercise) ([]string, error) {
	if len(exercises) == 0 {
		return nil, invalid("exercises", "none given")
	}
	resolved := make([]NewExercise, len(exercises))
	for i, ne := range exercises {
		if ne.ExerciseID == "" {
			return nil, invalid("exerciseId", "is required")
		}
		if ne.Lot == "" {
			if e.remote == nil {
				return nil, invalid("lot", "is required")
			}
			details, err := e.remote.ExerciseDetails(ctx, ne.ExerciseID)
			if err != nil {
				return nil, fmt.Errorf("looking up exercise %s: %w", ne.ExerciseID, err)
			}
			ne.Lot = details.Lot
		}
		if !ne.Lot.Valid() {
			return nil, invalid("lot", "unknown exercise lot "+string(ne.Lot))
		}
		resolved[i] = ne
	}

	ids := make([]string, 0, len(resolved))
	err := e.mutate("add_exercises", func(s *models.Session) error {
		for _, ne := range resolved {
			entry := models.ExerciseEntry{
				Identifier: uuid.NewString(),
				ExerciseID: ne.ExerciseID,
				Lot:        ne.Lot,
				Notes:      []string{},
				Assets:     models.Assets{Images: []string{}, Videos: []string{}},
				Sets:       []models.SetRecord{e.newSet(models.SetLotNormal, models.Statistic{})},
			}
			s.Exercises = append(s.Exercises, entry)
			ids = append(ids, entry.Identifier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveExercise deletes an exercise. An exercise with confirmed sets is
// only removed once acknowledged. Supersets left with a single member are
// dissolved.
func (e *Engine) RemoveExercise(exerciseID string, acknowledged bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.mutateLocked("remove_exercise", func(s *models.Session) error {
		idx := exerciseIndex(s, exerciseID)
		if idx < 0 {
			return ErrExerciseNotFound
		}
		if !acknowledged && ExerciseProgress(s.Exercises[idx]) != ProgressNotStarted {
			return ErrConfirmationRequired
		}
		removeExercise(s, idx)
		return nil
	})
	if err != nil {
		return err
	}
	if e.ownsSignalLocked(exerciseID, "") {
		e.clearSignalLocked()
	}
	return nil
}

// ReorderExercises puts the exercises in the order of ids. Superset
// membership follows the exercises.
func (e *Engine) ReorderExercises(ids []string) error {
	return e.mutate("reorder_exercises", func(s *models.Session) error {
		return reorderExercises(s, ids)
	})
}

// AddExerciseNote appends a note to an exercise and returns its index.
func (e *Engine) AddExerciseNote(exerciseID, text string) (int, error) {
	var idx int
	err := e.mutate("add_exercise_note", func(s *models.Session) error {
		i := exerciseIndex(s, exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		s.Exercises[i].Notes = append(s.Exercises[i].Notes, text)
		idx = len(s.Exercises[i].Notes) - 1
		return nil
	})
	return idx, err
}

// EditExerciseNote replaces the note at idx.
func (e *Engine) EditExerciseNote(exerciseID string, idx int, text string) error {
	return e.mutate("edit_exercise_note", func(s *models.Session) error {
		i := exerciseIndex(s, exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		if idx < 0 || idx >= len(s.Exercises[i].Notes) {
			return invalid("note", "index out of range")
		}
		s.Exercises[i].Notes[idx] = text
		return nil
	})
}

// DeleteExerciseNote removes the note at idx.
func (e *Engine) DeleteExerciseNote(exerciseID string, idx int) error {
	return e.mutate("delete_exercise_note", func(s *models.Session) error {
		i := exerciseIndex(s, exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		if idx < 0 || idx >= len(s.Exercises[i].Notes) {
			return invalid("note", "index out of range")
		}
		s.Exercises[i].Notes = slices.Delete(s.Exercises[i].Notes, idx, idx+1)
		return nil
	})
}

// AssetKind selects the asset list.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
)

// AddAsset attaches an uploaded media key to the session, or to one
// exercise when exerciseID is set.
func (e *Engine) AddAsset(exerciseID string, kind AssetKind, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalid("asset", "key is required")
	}
	return e.mutate("add_asset", func(s *models.Session) error {
		list, err := assetList(s, exerciseID, kind)
		if err != nil {
			return err
		}
		if !slices.Contains(*list, key) {
			*list = append(*list, key)
		}
		return nil
	})
}

// RemoveAsset detaches a media key.
func (e *Engine) RemoveAsset(exerciseID string, kind AssetKind, key string) error {
	return e.mutate("remove_asset", func(s *models.Session) error {
		list, err := assetList(s, exerciseID, kind)
		if err != nil {
			return err
		}
		*list = slices.DeleteFunc(*list, func(k string) bool { return k == key })
		return nil
	})
}

func assetList(s *models.Session, exerciseID string, kind AssetKind) (*[]string, error) {
	assets := &s.Assets
	if exerciseID != "" {
		i := exerciseIndex(s, exerciseID)
		if i < 0 {
			return nil, ErrExerciseNotFound
		}
		assets = &s.Exercises[i].Assets
	}
	switch kind {
	case AssetImage:
		return &assets.Images, nil
	case AssetVideo:
		return &assets.Videos, nil
	}
	return nil, invalid("asset", "unknown kind "+string(kind))
}

// --- sets ---

// AddSet appends a set that starts from the statistic of the exercise's
// last set, and returns its identifier.
func (e *Engine) AddSet(exerciseID string) (string, error) {
	var id string
	err := e.mutate("add_set", func(s *models.Session) error {
		i := exerciseIndex(s, exerciseID)
		if i < 0 {
			return ErrExerciseNotFound
		}
		ex := &s.Exercises[i]
		var stat models.Statistic
		if n := len(ex.Sets); n > 0 {
			last := ex.Sets[n-1].Statistic
			stat = models.Statistic{
				Reps:     last.Reps,
				Weight:   last.Weight,
				Duration: last.Duration,
				Distance: last.Distance,
			}.Clone()
		}
		set := e.newSet(models.SetLotNormal, stat)
		ex.Sets = append(ex.Sets, set)
		id = set.Identifier
		return nil
	})
	return id, err
}

// UpdateSet replaces a set's statistic. A confirmed set must stay
// confirmable and has its derived fields recomputed.
func (e *Engine) UpdateSet(exerciseID, setID string, stat models.Statistic) error {
	return e.mutate("update_set", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		if err := checkStatistic(stat); err != nil {
			return err
		}
		ex := &s.Exercises[exIdx]
		set := &ex.Sets[setIdx]
		if set.Confirmed() {
			if !CanConfirm(ex.Lot, stat) {
				return invalid("statistic", "confirmed set needs the fields required by "+string(ex.Lot))
			}
			stat = stat.WithDerived()
		}
		set.Statistic = stat.Clone()
		return nil
	})
}

func checkStatistic(stat models.Statistic) error {
	for name, v := range map[string]*float64{
		"reps": stat.Reps, "weight": stat.Weight, "duration": stat.Duration, "distance": stat.Distance,
	} {
		if v != nil && *v < 0 {
			return invalid(name, "must not be negative")
		}
	}
	return nil
}

// DeleteSet removes a set. Confirmed sets need acknowledgement.
func (e *Engine) DeleteSet(exerciseID, setID string, acknowledged bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.mutateLocked("delete_set", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		ex := &s.Exercises[exIdx]
		if ex.Sets[setIdx].Confirmed() && !acknowledged {
			return ErrConfirmationRequired
		}
		ex.Sets = slices.Delete(ex.Sets, setIdx, setIdx+1)
		return nil
	})
	if err != nil {
		return err
	}
	if e.ownsSignalLocked(exerciseID, setID) {
		e.clearSignalLocked()
	}
	return nil
}

// ChangeSetLot reclassifies a set. Unless its timer already elapsed, the
// set takes the default rest duration of the new lot. A countdown the set
// is running keeps going with the new duration.
func (e *Engine) ChangeSetLot(exerciseID, setID string, lot models.SetLot) error {
	if !lot.Valid() {
		return invalid("lot", "unknown set lot "+string(lot))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	resized := 0
	err := e.mutateLocked("change_set_lot", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		set := &s.Exercises[exIdx].Sets[setIdx]
		set.Lot = lot
		if set.RestTimer != nil && set.RestTimer.HasElapsed {
			return nil
		}
		d := e.restTimers.For(lot)
		if d <= 0 {
			return nil
		}
		rt := &models.SetRestTimer{Duration: d}
		if set.RestTimer != nil {
			rt.StartedAt = set.RestTimer.StartedAt
		}
		set.RestTimer = rt
		resized = d
		return nil
	})
	if err != nil {
		return err
	}
	if resized > 0 && e.ownsSignalLocked(exerciseID, setID) {
		return e.resizeSignalLocked(resized, false)
	}
	return nil
}

// SetNote sets the note of a set. Empty text keeps the note open but blank.
func (e *Engine) SetNote(exerciseID, setID, text string) error {
	return e.mutate("set_note", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		s.Exercises[exIdx].Sets[setIdx].Note = &text
		return nil
	})
}

// ToggleSetNote opens an empty note on a set, or removes the note it has.
func (e *Engine) ToggleSetNote(exerciseID, setID string) error {
	return e.mutate("toggle_set_note", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		set := &s.Exercises[exIdx].Sets[setIdx]
		if set.Note != nil {
			set.Note = nil
		} else {
			empty := ""
			set.Note = &empty
		}
		return nil
	})
}

// SetRPE records the rate of perceived exertion, 0 to 10. Nil clears it.
func (e *Engine) SetRPE(exerciseID, setID string, rpe *float64) error {
	if rpe != nil && (*rpe < 0 || *rpe > 10) {
		return invalid("rpe", "must be between 0 and 10")
	}
	return e.mutate("set_rpe", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		s.Exercises[exIdx].Sets[setIdx].RPE = rpe
		return nil
	})
}

// ConfirmSet marks a set done. Personal bests are computed against the
// exercise history when it can be fetched within the history timeout;
// otherwise the set is confirmed all the same. A paused workout resumes.
func (e *Engine) ConfirmSet(ctx context.Context, exerciseID, setID string) (models.SetRecord, error) {
	snap := e.store.Read()
	if snap == nil {
		return models.SetRecord{}, ErrNoActiveSession
	}
	exIdx, _, err := locate(snap, exerciseID, setID)
	if err != nil {
		return models.SetRecord{}, err
	}
	var prior []models.Statistic
	if e.kind == models.KindWorkout {
		hctx, cancel := context.WithTimeout(ctx, e.histTimeout)
		history, ok := e.historyFor(hctx, snap.Exercises[exIdx].ExerciseID)
		cancel()
		if ok {
			prior = historyStatistics(history)
		}
	}

	var (
		confirmed models.SetRecord
		already   bool
	)
	err = e.mutate("confirm_set", func(s *models.Session) error {
		exIdx, setIdx, err := locate(s, exerciseID, setID)
		if err != nil {
			return err
		}
		already = s.Exercises[exIdx].Sets[setIdx].Confirmed()
		if err := confirmSet(s, exIdx, setIdx, prior, e.now()); err != nil {
			return err
		}
		confirmed = s.Exercises[exIdx].Sets[setIdx].Clone()
		return nil
	})
	if err != nil {
		return models.SetRecord{}, err
	}
	if e.metrics != nil && !already {
		e.metrics.CounterSetsConfirmed.WithLabelValues(string(e.kind)).Inc()
	}
	return confirmed, nil
}

// --- supersets ---

// CreateSuperset groups the given exercises and returns the group identifier.
func (e *Engine) CreateSuperset(exerciseIDs []string) (string, error) {
	var id string
	err := e.mutate("create_superset", func(s *models.Session) error {
		idxs, err := supersetMembers(s, exerciseIDs, "")
		if err != nil {
			return err
		}
		g := models.SupersetGroup{
			Identifier:      uuid.NewString(),
			Color:           nextSupersetColor(s),
			ExerciseIndexes: idxs,
		}
		s.Supersets = append(s.Supersets, g)
		id = g.Identifier
		return nil
	})
	return id, err
}

// EditSuperset replaces the members of a group.
func (e *Engine) EditSuperset(supersetID string, exerciseIDs []string) error {
	return e.mutate("edit_superset", func(s *models.Session) error {
		gi := supersetIndex(s, supersetID)
		if gi < 0 {
			return ErrSupersetNotFound
		}
		idxs, err := supersetMembers(s, exerciseIDs, supersetID)
		if err != nil {
			return err
		}
		s.Supersets[gi].ExerciseIndexes = idxs
		return nil
	})
}

// DeleteSuperset dissolves a group. Its exercises stay.
func (e *Engine) DeleteSuperset(supersetID string) error {
	return e.mutate("delete_superset", func(s *models.Session) error {
		gi := supersetIndex(s, supersetID)
		if gi < 0 {
			return ErrSupersetNotFound
		}
		s.Supersets = slices.Delete(s.Supersets, gi, gi+1)
		return nil
	})
}

// --- history ---

// historyFor returns the exercise history, fetching it once per session.
// ok is false when it could not be fetched; failures are not cached.
func (e *Engine) historyFor(ctx context.Context, exerciseID string) ([]models.HistoryEntry, bool) {
	e.histMu.Lock()
	h, ok := e.history[exerciseID]
	e.histMu.Unlock()
	if ok {
		return h, true
	}
	if e.remote == nil {
		return nil, false
	}
	h, err := e.remote.ExerciseHistory(ctx, exerciseID)
	if err != nil {
		e.log.Warn("exercise history unavailable", "exercise", exerciseID, "error", err)
		return nil, false
	}
	e.histMu.Lock()
	e.history[exerciseID] = h
	e.histMu.Unlock()
	return h, true
}

func (e *Engine) resetHistory() {
	e.histMu.Lock()
	e.history = map[string][]models.HistoryEntry{}
	e.histMu.Unlock()
}

// PreviousSet returns what the user did at the same position the last
// times this exercise was performed. It returns nil when there is nothing
// to show, including when history is unavailable.
func (e *Engine) PreviousSet(ctx context.Context, exerciseID, setID string) (*models.Statistic, error) {
	snap := e.store.Read()
	if snap == nil {
		return nil, ErrNoActiveSession
	}
	exIdx, setIdx, err := locate(snap, exerciseID, setID)
	if err != nil {
		return nil, err
	}
	history, ok := e.historyFor(ctx, snap.Exercises[exIdx].ExerciseID)
	if !ok {
		return nil, nil
	}
	stat, ok := previousStatistic(history, GlobalSetIndex(snap, exIdx, setIdx))
	if !ok {
		return nil, nil
	}
	return &stat, nil
}

// NextSet returns where to go after the given set.
func (e *Engine) NextSet(exerciseID, setID string) (Position, bool, error) {
	snap := e.store.Read()
	if snap == nil {
		return Position{}, false, ErrNoActiveSession
	}
	exIdx, setIdx, err := locate(snap, exerciseID, setID)
	if err != nil {
		return Position{}, false, err
	}
	pos, ok := NextSet(snap, exIdx, setIdx)
	return pos, ok, nil
}
