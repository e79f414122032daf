package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// Remote is the slice of the remote API the engine depends on.
type Remote interface {
	ExerciseDetails(ctx context.Context, exerciseID string) (*models.ExerciseDetails, error)
	ExerciseHistory(ctx context.Context, exerciseID string) ([]models.HistoryEntry, error)
	CommitWorkout(ctx context.Context, payload models.CommitPayload) (*models.CommitResult, error)
	CommitWorkoutTemplate(ctx context.Context, payload models.CommitPayload) (*models.CommitResult, error)
}

// DefaultTickInterval drives the rest countdown.
const DefaultTickInterval = time.Second

// DefaultHistoryTimeout bounds how long confirming a set waits for the
// exercise history before it confirms without personal bests.
const DefaultHistoryTimeout = 3 * time.Second

// DefaultSetRestTimer is the duration used when a timer is toggled on by hand.
const DefaultSetRestTimer = 60

// EngineOptions configures an Engine.
type EngineOptions struct {
	RestTimers   models.SetRestTimersSettings
	TickInterval time.Duration
	// HistoryTimeout bounds the history fetch done while confirming a set.
	HistoryTimeout time.Duration
	// Now is the clock; tests replace it.
	Now     func() time.Time
	Log     *slog.Logger
	Metrics *metrics.Manager
}

// EventType names something the engine announces to listeners.
type EventType string

const (
	EventRestTimerElapsed EventType = "rest_timer_elapsed"
	EventCommitted        EventType = "committed"
)

// Event is delivered on Engine.Events. Delivery is best effort: events are
// dropped when nobody keeps up with the channel.
type Event struct {
	Type    EventType               `json:"type"`
	Trigger models.RestTimerTrigger `json:"trigger,omitempty"`
	ID      string                  `json:"id,omitempty"`
	Name    string                  `json:"name,omitempty"`
	At      time.Time               `json:"at"`
}

// Engine runs the session of one kind: it serializes mutations, owns the
// ephemeral rest countdown, and commits the session to the remote API.
type Engine struct {
	kind        models.SessionKind
	store       *Store
	remote      Remote
	restTimers  models.SetRestTimersSettings
	tick        time.Duration
	histTimeout time.Duration
	now         func() time.Time
	log         *slog.Logger
	metrics     *metrics.Manager
	events      chan Event

	// mu serializes every operation that touches both the store and the
	// rest countdown, so the two are always seen in step.
	mu         sync.Mutex
	signal     *models.RestTimerSignal
	committing bool

	histMu  sync.Mutex
	history map[string][]models.HistoryEntry
}

// NewEngine creates an Engine over store.
func NewEngine(store *Store, remote Remote, opts EngineOptions) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Engine{
		kind:        store.Kind(),
		store:       store,
		remote:      remote,
		restTimers:  opts.RestTimers,
		tick:        opts.TickInterval,
		histTimeout: opts.HistoryTimeout,
		now:         opts.Now,
		log:         opts.Log.With("kind", string(store.Kind())),
		metrics:     opts.Metrics,
		events:      make(chan Event, 16),
		history:     map[string][]models.HistoryEntry{},
	}
}

// Kind returns the session kind this engine runs.
func (e *Engine) Kind() models.SessionKind { return e.kind }

// Events returns the channel engine events are published on.
func (e *Engine) Events() <-chan Event { return e.events }

// Restore loads the persisted session, if any, and restarts a rest countdown
// that was still running when the process stopped.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	sess, err := e.store.Load(ctx)
	if err != nil || sess == nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restoreSignalLocked(sess)
	attrs := []any{"name", sess.Name, "exercises", len(sess.Exercises)}
	if saved, ok := e.store.SavedAt(ctx); ok {
		attrs = append(attrs, "age", e.now().Sub(saved).Round(time.Second))
	}
	e.log.Info("resumed persisted session", attrs...)
	return true, nil
}

// Run drives the rest countdown until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			e.Tick()
		}
	}
}

// Close flushes pending persistence.
func (e *Engine) Close(ctx context.Context) error {
	return e.store.Flush(ctx)
}

// Session returns a copy of the current session, or nil.
func (e *Engine) Session() *models.Session {
	return e.store.Read()
}

// PersistError returns the last local persistence failure, if any.
func (e *Engine) PersistError() error {
	return e.store.LastPersistError()
}

func (e *Engine) mutate(op string, fn func(*models.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutateLocked(op, fn)
}

func (e *Engine) mutateLocked(op string, fn func(*models.Session) error) error {
	if e.committing {
		return ErrSessionLocked
	}
	return e.store.Mutate(op, fn)
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.Debug("dropping engine event", "type", ev.Type)
	}
}

// --- lifecycle ---

// Start begins a new empty session. An empty name is replaced with one
// based on the time of day.
func (e *Engine) Start(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committing {
		return ErrSessionLocked
	}
	if e.store.Active() {
		return ErrSessionExists
	}
	e.store.Replace(e.newSession(name))
	e.log.Info("session started")
	return nil
}

// StartOptions links a session started from a stored workout to its origin.
type StartOptions struct {
	Name            string
	RepeatedFromID  string
	TemplateID      string
	UpdateWorkoutID string
}

// StartFrom begins a session that repeats a stored workout or template.
// Stored sets come back unconfirmed and stored superset links are rebuilt
// as groups.
func (e *Engine) StartFrom(info models.WorkoutInformation, opts StartOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committing {
		return ErrSessionLocked
	}
	if e.store.Active() {
		return ErrSessionExists
	}
	name := opts.Name
	if name == "" {
		name = info.Name
	}
	sess := e.newSession(name)
	sess.Comment = info.Comment
	sess.RepeatedFromID = opts.RepeatedFromID
	sess.TemplateID = opts.TemplateID
	sess.UpdateWorkoutID = opts.UpdateWorkoutID

	for _, ex := range info.Exercises {
		entry := models.ExerciseEntry{
			Identifier: uuid.NewString(),
			ExerciseID: ex.ExerciseID,
			Lot:        ex.Lot,
			Notes:      append([]string{}, ex.Notes...),
			Assets:     models.Assets{Images: []string{}, Videos: []string{}},
			Sets:       []models.SetRecord{},
		}
		for _, hs := range ex.Sets {
			entry.Sets = append(entry.Sets, e.newSet(hs.Lot, hs.Statistic.Clone()))
		}
		sess.Exercises = append(sess.Exercises, entry)
	}
	sess.Supersets = groupsFromLinks(sess, info.Exercises)

	e.store.Replace(sess)
	e.log.Info("session started from stored workout", "from", info.ID, "exercises", len(sess.Exercises))
	return nil
}

func (e *Engine) newSession(name string) *models.Session {
	now := e.now()
	if strings.TrimSpace(name) == "" {
		name = defaultName(e.kind, now)
	}
	sess := &models.Session{
		Kind:      e.kind,
		Name:      name,
		StartTime: now,
		Exercises: []models.ExerciseEntry{},
		Supersets: []models.SupersetGroup{},
		Assets:    models.Assets{Images: []string{}, Videos: []string{}},
		Intervals: []models.Interval{},
	}
	if e.kind == models.KindWorkout {
		sess.Intervals = append(sess.Intervals, models.Interval{From: now})
	}
	return sess
}

func defaultName(kind models.SessionKind, t time.Time) string {
	var part string
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		part = "Morning"
	case h >= 12 && h < 17:
		part = "Afternoon"
	case h >= 17 && h < 21:
		part = "Evening"
	default:
		part = "Night"
	}
	if kind == models.KindTemplate {
		return part + " Template"
	}
	return part + " Workout"
}

// groupsFromLinks turns per-exercise superset index lists into groups.
func groupsFromLinks(sess *models.Session, exercises []models.WorkoutInfoExercise) []models.SupersetGroup {
	group := make([]int, len(exercises))
	for i := range group {
		group[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for group[i] != i {
			group[i] = group[group[i]]
			i = group[i]
		}
		return i
	}
	for i, ex := range exercises {
		for _, j := range ex.SupersetWith {
			if j >= 0 && j < len(exercises) && j != i {
				group[find(j)] = find(i)
			}
		}
	}
	members := map[int][]int{}
	var roots []int
	for i := range exercises {
		r := find(i)
		if _, ok := members[r]; !ok {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}
	out := []models.SupersetGroup{}
	for _, r := range roots {
		if len(members[r]) < 2 {
			continue
		}
		sess.Supersets = out
		out = append(out, models.SupersetGroup{
			Identifier:      uuid.NewString(),
			Color:           nextSupersetColor(sess),
			ExerciseIndexes: members[r],
		})
	}
	return out
}

// Cancel discards the session without committing it.
func (e *Engine) Cancel(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committing {
		return ErrSessionLocked
	}
	if !e.store.Active() {
		return ErrNoActiveSession
	}
	e.clearSignalLocked()
	e.resetHistory()
	e.log.Info("session cancelled")
	return e.store.Clear(ctx)
}

// Finish validates the session, sends it to the remote API, and clears it
// once the remote side accepts it. Only one commit can be in flight; while
// it is, the session rejects mutations. A failed commit leaves the session
// intact for a retry. Neither the remote call nor the local clear that
// follows it is cancelled with ctx, so a submitted commit is never resumed.
func (e *Engine) Finish(ctx context.Context) (*models.CommitResult, error) {
	e.mu.Lock()
	if e.committing {
		e.mu.Unlock()
		return nil, ErrCommitInProgress
	}
	sess := e.store.Read()
	if sess == nil {
		e.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if strings.TrimSpace(sess.Name) == "" {
		e.mu.Unlock()
		return nil, invalid("name", "is required")
	}
	payload := BuildCommitPayload(sess, e.now())
	if len(payload.Exercises) == 0 {
		e.mu.Unlock()
		if e.kind == models.KindWorkout {
			return nil, invalid("exercises", "no confirmed sets to save")
		}
		return nil, invalid("exercises", "no sets with data to save")
	}
	if e.remote == nil {
		e.mu.Unlock()
		return nil, errors.New("no remote API configured")
	}
	e.committing = true
	e.mu.Unlock()

	start := time.Now()
	result, err := e.commit(context.WithoutCancel(ctx), payload)
	if e.metrics != nil {
		e.metrics.HistCommitDuration.Observe(time.Since(start).Seconds())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.committing = false
	if err != nil {
		e.countCommit("failure")
		e.log.Error("commit failed; session kept for retry", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	e.countCommit("success")
	e.clearSignalLocked()
	e.resetHistory()
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := e.store.ClearCommitted(clearCtx, result.ID); err != nil {
		e.log.Warn("clearing committed session", "id", result.ID, "error", err)
	}
	e.log.Info("session committed", "id", result.ID, "exercises", len(payload.Exercises))
	e.emit(Event{Type: EventCommitted, ID: result.ID, Name: payload.Name, At: e.now()})
	return result, nil
}

func (e *Engine) commit(ctx context.Context, payload models.CommitPayload) (*models.CommitResult, error) {
	if e.kind == models.KindTemplate {
		return e.remote.CommitWorkoutTemplate(ctx, payload)
	}
	return e.remote.CommitWorkout(ctx, payload)
}

func (e *Engine) countCommit(result string) {
	if e.metrics != nil {
		e.metrics.CounterCommits.WithLabelValues(string(e.kind), result).Inc()
	}
}

// Committing reports whether a commit is in flight.
func (e *Engine) Committing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committing
}

// --- session metadata and stopwatch ---

// SetName renames the session.
func (e *Engine) SetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "is required")
	}
	return e.mutate("set_name", func(s *models.Session) error {
		s.Name = name
		return nil
	})
}

// SetComment replaces the session comment.
func (e *Engine) SetComment(comment string) error {
	return e.mutate("set_comment", func(s *models.Session) error {
		s.Comment = comment
		return nil
	})
}

// Pause stops the workout stopwatch. An active rest countdown keeps running.
func (e *Engine) Pause() error {
	return e.mutate("pause", func(s *models.Session) error {
		pauseStopwatch(s, e.now())
		return nil
	})
}

// Resume restarts the workout stopwatch.
func (e *Engine) Resume() error {
	return e.mutate("resume", func(s *models.Session) error {
		resumeStopwatch(s, e.now())
		return nil
	})
}

// TogglePause flips the stopwatch between running and paused.
func (e *Engine) TogglePause() error {
	return e.mutate("toggle_pause", func(s *models.Session) error {
		if s.Paused() {
			resumeStopwatch(s, e.now())
		} else {
			pauseStopwatch(s, e.now())
		}
		return nil
	})
}

// Elapsed returns the active time of the session.
func (e *Engine) Elapsed() (time.Duration, error) {
	sess := e.store.Read()
	if sess == nil {
		return 0, ErrNoActiveSession
	}
	return Elapsed(sess.Intervals, e.now()), nil
}
