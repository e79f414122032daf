package storage

import (
	"context"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workout"
)

var _ workout.Persister = (*StateDB)(nil)

func openTestDB(t *testing.T, dir string) *StateDB {
	t.Helper()
	db, err := OpenStateDB(dir)
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, t.TempDir())

	got, err := db.Load(ctx, models.KindWorkout)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("Load on empty db = %q, want nil", got)
	}

	if err := db.Save(ctx, models.KindWorkout, []byte(`{"name":"A"}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Save(ctx, models.KindWorkout, []byte(`{"name":"B"}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Save(ctx, models.KindTemplate, []byte(`{"name":"T"}`)); err != nil {
		t.Fatal(err)
	}

	got, err = db.Load(ctx, models.KindWorkout)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"name":"B"}` {
		t.Errorf("workout = %s, want the latest save", got)
	}
	got, _ = db.Load(ctx, models.KindTemplate)
	if string(got) != `{"name":"T"}` {
		t.Errorf("template = %s, want its own blob", got)
	}

	if _, ok, err := db.UpdatedAt(ctx, models.KindWorkout); err != nil || !ok {
		t.Errorf("UpdatedAt = ok %v err %v, want a timestamp", ok, err)
	}

	if err := db.Delete(ctx, models.KindWorkout); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(ctx, models.KindWorkout); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	got, _ = db.Load(ctx, models.KindWorkout)
	if got != nil {
		t.Errorf("after Delete = %s, want nil", got)
	}
	got, _ = db.Load(ctx, models.KindTemplate)
	if got == nil {
		t.Error("deleting the workout must not touch the template")
	}
}

func TestReopenKeepsSessions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenStateDB(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Save(ctx, models.KindWorkout, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := openTestDB(t, dir)
	got, err := second.Load(ctx, models.KindWorkout)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{}` {
		t.Errorf("after reopen = %q, want {}", got)
	}
}

func TestCommitLog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, t.TempDir())
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"Push", "Pull", "Legs"} {
		err := db.RecordCommit(ctx, CommitRecord{
			Kind:        models.KindWorkout,
			RemoteID:    name,
			Name:        name,
			CommittedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.RecentCommits(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d commits, want 2", len(got))
	}
	if got[0].Name != "Legs" || got[1].Name != "Pull" {
		t.Errorf("order = %q, %q, want Legs, Pull", got[0].Name, got[1].Name)
	}
	if !got[0].CommittedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("committed_at = %v, want %v", got[0].CommittedAt, base.Add(2*time.Hour))
	}
	if got[0].Kind != models.KindWorkout {
		t.Errorf("kind = %q, want workout", got[0].Kind)
	}
}

func TestStoreOverStateDB(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, t.TempDir())

	store := workout.NewStore(models.KindTemplate, db, workout.StoreOptions{Debounce: time.Hour})
	store.Replace(&models.Session{Name: "Full body", Exercises: []models.ExerciseEntry{}})
	if err := store.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	reloaded := workout.NewStore(models.KindTemplate, db, workout.StoreOptions{})
	if saved, ok := reloaded.SavedAt(ctx); !ok || saved.IsZero() {
		t.Errorf("SavedAt = %v, %v, want the time of the flush", saved, ok)
	}
	sess, err := reloaded.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.Name != "Full body" {
		t.Fatalf("reloaded = %+v, want Full body", sess)
	}
	if sess.Kind != models.KindTemplate {
		t.Errorf("kind = %q, want template", sess.Kind)
	}
}
