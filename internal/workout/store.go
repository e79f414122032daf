package workout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"go.uber.org/multierr"
)

// Persister keeps one serialized session per kind on the device.
// Load returns nil, nil when nothing is stored.
type Persister interface {
	Save(ctx context.Context, kind models.SessionKind, payload []byte) error
	Load(ctx context.Context, kind models.SessionKind) ([]byte, error)
	Delete(ctx context.Context, kind models.SessionKind) error
}

// DefaultPersistDebounce is used when StoreOptions.Debounce is zero.
const DefaultPersistDebounce = 500 * time.Millisecond

const persistTimeout = 5 * time.Second

// StoreOptions configures a Store.
type StoreOptions struct {
	Debounce time.Duration
	Log      *slog.Logger
	Metrics  *metrics.Manager
}

// Store holds the session of one kind. Every mutation works on a deep copy
// that replaces the current value only if the mutation succeeds, and every
// successful mutation schedules a debounced write to the Persister. Write
// failures never fail the mutation; they are logged and kept for LastPersistError.
type Store struct {
	kind      models.SessionKind
	persister Persister
	debounce  time.Duration
	log       *slog.Logger
	metrics   *metrics.Manager

	mu         sync.Mutex
	current    *models.Session
	gen        uint64
	pending    *time.Timer
	dirty      bool
	persistErr error
	// deletePending is set while the stored copy of a cleared session is
	// still on disk. The next write or Flush retries the delete.
	deletePending bool

	// writeMu orders writes and deletes against the Persister.
	writeMu sync.Mutex
}

// NewStore creates an empty Store. persister may be nil for a memory-only store.
func NewStore(kind models.SessionKind, persister Persister, opts StoreOptions) *Store {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultPersistDebounce
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Store{
		kind:      kind,
		persister: persister,
		debounce:  opts.Debounce,
		log:       opts.Log.With("kind", string(kind)),
		metrics:   opts.Metrics,
	}
}

// Kind returns the session kind the store holds.
func (s *Store) Kind() models.SessionKind { return s.kind }

// Load reads the persisted session once at startup. A blob that cannot be
// decoded is discarded with a warning rather than blocking a new session.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	if s.persister == nil {
		return nil, nil
	}
	data, err := s.persister.Load(ctx, s.kind)
	if err != nil {
		return nil, fmt.Errorf("loading %s session: %w", s.kind, err)
	}
	if data == nil {
		return nil, nil
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.Warn("discarding unreadable persisted session", "error", err)
		return nil, nil
	}
	sess.Kind = s.kind
	if sess.CommittedAs != "" {
		s.log.Info("dropping stored copy of a committed session", "id", sess.CommittedAs)
		if err := s.persister.Delete(ctx, s.kind); err != nil {
			s.log.Warn("deleting committed session", "error", err)
		}
		return nil, nil
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.setGauge(true)
	return sess.Clone(), nil
}

// Read returns a copy of the current session, or nil.
func (s *Store) Read() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Active reports whether a session is in progress.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Replace installs sess as the current session and schedules persistence.
func (s *Store) Replace(sess *models.Session) {
	s.mu.Lock()
	s.current = sess.Clone()
	s.current.Kind = s.kind
	s.scheduleLocked()
	s.mu.Unlock()
	s.setGauge(true)
}

// Mutate applies fn to a copy of the current session. If fn returns an
// error the current session is left as it was.
func (s *Store) Mutate(op string, fn func(*models.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoActiveSession
	}
	next := s.current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.current = next
	s.scheduleLocked()
	if s.metrics != nil {
		s.metrics.CounterMutations.WithLabelValues(string(s.kind), op).Inc()
	}
	return nil
}

// Clear drops the session and wipes it from persisted storage. A delete
// that fails is retried by the next write or Flush.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.dirty = false
	s.deletePending = s.persister != nil
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.mu.Unlock()
	s.setGauge(false)
	return s.write(ctx)
}

// ClearCommitted clears a session the remote API has accepted. If the stored
// copy cannot be deleted it is overwritten with a marker naming remoteID, so
// Load never resumes it.
func (s *Store) ClearCommitted(ctx context.Context, remoteID string) error {
	err := s.Clear(ctx)
	if err == nil {
		return nil
	}
	marker, merr := json.Marshal(&models.Session{Kind: s.kind, CommittedAs: remoteID})
	if merr != nil {
		return multierr.Append(err, merr)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	stale := s.current == nil && s.deletePending
	s.mu.Unlock()
	if !stale {
		return err
	}
	if serr := s.persister.Save(ctx, s.kind, marker); serr != nil {
		return multierr.Append(err, fmt.Errorf("marking %s session committed: %w", s.kind, serr))
	}
	return err
}

// SavedAt reports when the stored session was last written, for persisters
// that track it.
func (s *Store) SavedAt(ctx context.Context) (time.Time, bool) {
	ts, ok := s.persister.(interface {
		UpdatedAt(ctx context.Context, kind models.SessionKind) (time.Time, bool, error)
	})
	if !ok {
		return time.Time{}, false
	}
	t, found, err := ts.UpdatedAt(ctx, s.kind)
	if err != nil {
		s.log.Debug("reading session save time", "error", err)
		return time.Time{}, false
	}
	return t, found
}

// Flush writes any pending change immediately.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.mu.Unlock()
	return s.write(ctx)
}

// LastPersistError returns the most recent persistence failure, or nil if
// the last write succeeded.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

func (s *Store) scheduleLocked() {
	if s.persister == nil {
		return
	}
	s.dirty = true
	if s.pending != nil {
		s.pending.Reset(s.debounce)
		return
	}
	s.pending = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		_ = s.write(ctx)
	})
}

func (s *Store) write(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.current == nil {
		pending := s.deletePending
		s.mu.Unlock()
		if !pending {
			return nil
		}
		return s.deleteLocked(ctx)
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	data, err := json.Marshal(s.current)
	gen := s.gen
	s.dirty = false
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding %s session: %w", s.kind, err)
	}

	if err := s.persister.Save(ctx, s.kind, data); err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.dirty = true
		}
		s.mu.Unlock()
		s.recordPersistErr(err)
		s.log.Warn("persisting session failed; continuing in memory", "error", err)
		return fmt.Errorf("saving %s session: %w", s.kind, err)
	}
	s.mu.Lock()
	s.persistErr = nil
	s.deletePending = false
	s.mu.Unlock()
	return nil
}

// deleteLocked removes the stored copy. writeMu must be held.
func (s *Store) deleteLocked(ctx context.Context) error {
	if err := s.persister.Delete(ctx, s.kind); err != nil {
		s.recordPersistErr(err)
		return fmt.Errorf("deleting %s session: %w", s.kind, err)
	}
	s.mu.Lock()
	if s.current == nil {
		s.deletePending = false
	}
	s.persistErr = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) recordPersistErr(err error) {
	s.mu.Lock()
	s.persistErr = err
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.CounterPersistFailures.WithLabelValues(string(s.kind)).Inc()
	}
}

func (s *Store) setGauge(active bool) {
	if s.metrics == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	s.metrics.GaugeActiveSessions.WithLabelValues(string(s.kind)).Set(v)
}
