package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// newTestServer routes requests to handlers keyed by "METHOD path".
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(url string) *Client {
	c := NewClient(Options{BaseURL: url + "/", Token: "secret"})
	c.backoff = time.Millisecond
	return c
}

func TestExerciseDetailsIsCached(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/exercises/bench press": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("Authorization = %q, want Bearer secret", got)
			}
			writeTestJSON(t, w, models.ExerciseDetails{ID: "bench press", Name: "Bench Press", Lot: models.ExerciseLotRepsAndWeight})
		},
	})
	c := newTestClient(ts.URL)

	for range 3 {
		d, err := c.ExerciseDetails(context.Background(), "bench press")
		if err != nil {
			t.Fatal(err)
		}
		if d.Lot != models.ExerciseLotRepsAndWeight {
			t.Errorf("lot = %q, want reps_and_weight", d.Lot)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestExerciseDetailsNotFound(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/exercises/nope": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
	})
	c := newTestClient(ts.URL)

	_, err := c.ExerciseDetails(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExerciseHistoryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/exercises/squat/history": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			reps := 5.0
			writeTestJSON(t, w, []models.HistoryEntry{
				{WorkoutID: "w1", SetsPlayed: []models.HistorySet{{Lot: models.SetLotNormal, Statistic: models.Statistic{Reps: &reps}}}},
			})
		},
	})
	c := newTestClient(ts.URL)

	history, err := c.ExerciseHistory(context.Background(), "squat")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || len(history[0].SetsPlayed) != 1 {
		t.Fatalf("history = %+v, want one entry with one set", history)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server calls = %d, want 3", n)
	}
}

func TestExerciseHistoryGivesUp(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/exercises/squat/history": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		},
	})
	c := newTestClient(ts.URL)

	_, err := c.ExerciseHistory(context.Background(), "squat")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Errorf("err = %v, want a 502 StatusError", err)
	}
}

func TestCommitWorkout(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			var p models.CommitPayload
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				t.Fatal(err)
			}
			if p.Name != "Push" {
				t.Errorf("name = %q, want Push", p.Name)
			}
			writeTestJSON(t, w, models.CommitResult{ID: "wkt_42"})
		},
	})
	c := newTestClient(ts.URL)

	res, err := c.CommitWorkout(context.Background(), models.CommitPayload{Name: "Push"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != "wkt_42" {
		t.Errorf("id = %q, want wkt_42", res.ID)
	}
}

func TestCommitTemplateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/workout-templates": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "name already taken", http.StatusInternalServerError)
		},
	})
	c := newTestClient(ts.URL)

	_, err := c.CommitWorkoutTemplate(context.Background(), models.CommitPayload{Name: "Full body"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Body != "name already taken\n" {
		t.Errorf("body = %q, want the raw server message", se.Body)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestWorkoutInformation(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/workout-templates/tpl_1": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.WorkoutInformation{ID: "tpl_1", Name: "Full body"})
		},
	})
	c := newTestClient(ts.URL)

	info, err := c.WorkoutInformation(context.Background(), models.KindTemplate, "tpl_1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "Full body" {
		t.Errorf("name = %q, want Full body", info.Name)
	}
}
