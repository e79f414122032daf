package server

import (
	"net/http"
	"strconv"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	for kind, e := range s.engines {
		if err := e.PersistError(); err != nil {
			status[string(kind)+"_persist_error"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	if s.commits == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "commit log not configured"})
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	commits, err := s.commits.RecentCommits(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	respond(w, r, nil)
}

type startRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	e := engineFrom(r)
	if err := e.Start(req.Name); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("session started over http", "kind", e.Kind())
	respond(w, r, nil)
}

// startFromRequest names the stored workout or template to copy. Update
// edits the stored entity in place on commit instead of creating a new one.
type startFromRequest struct {
	From   models.SessionKind `json:"from"`
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Update bool               `json:"update"`
}

func (s *Server) handleStartFrom(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no workout source configured"})
		return
	}
	var req startFromRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" || !req.From.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and id are required"})
		return
	}

	e := engineFrom(r)
	if req.Update && req.From != e.Kind() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "can only update a stored " + string(e.Kind())})
		return
	}
	info, err := s.source.WorkoutInformation(r.Context(), req.From, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := workout.StartOptions{Name: req.Name}
	switch {
	case req.Update:
		opts.UpdateWorkoutID = req.ID
	case req.From == models.KindTemplate:
		opts.TemplateID = req.ID
	default:
		opts.RepeatedFromID = req.ID
	}
	respond(w, r, e.StartFrom(*info, opts))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := engineFrom(r).Cancel(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	result, err := engineFrom(r).Finish(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateSessionRequest struct {
	Name    *string `json:"name"`
	Comment *string `json:"comment"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e := engineFrom(r)
	if req.Name != nil {
		if err := e.SetName(*req.Name); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Comment != nil {
		if err := e.SetComment(*req.Comment); err != nil {
			writeError(w, err)
			return
		}
	}
	respond(w, r, nil)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	respond(w, r, engineFrom(r).Pause())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	respond(w, r, engineFrom(r).Resume())
}

type addExercisesRequest struct {
	Exercises []workout.NewExercise `json:"exercises"`
}

func (s *Server) handleAddExercises(w http.ResponseWriter, r *http.Request) {
	var req addExercisesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ids, err := engineFrom(r).AddExercises(r.Context(), req.Exercises)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]string{"identifiers": ids})
}

type identifiersRequest struct {
	Identifiers []string `json:"identifiers"`
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req identifiersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respond(w, r, engineFrom(r).ReorderExercises(req.Identifiers))
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	respond(w, r, engineFrom(r).RemoveExercise(chi.URLParam(r, "exercise"), acknowledged(r)))
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddExerciseNote(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	idx, err := engineFrom(r).AddExerciseNote(chi.URLParam(r, "exercise"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"index": idx})
}

func (s *Server) handleEditExerciseNote(w http.ResponseWriter, r *http.Request) {
	idx, ok := noteIndex(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respond(w, r, engineFrom(r).EditExerciseNote(chi.URLParam(r, "exercise"), idx, req.Text))
}

func (s *Server) handleDeleteExerciseNote(w http.ResponseWriter, r *http.Request) {
	idx, ok := noteIndex(w, r)
	if !ok {
		return
	}
	respond(w, r, engineFrom(r).DeleteExerciseNote(chi.URLParam(r, "exercise"), idx))
}

func noteIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid note index"})
		return 0, false
	}
	return idx, true
}

type assetRequest struct {
	ExerciseID string            `json:"exerciseId"`
	Kind       workout.AssetKind `json:"kind"`
	Key        string            `json:"key"`
}

func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respond(w, r, engineFrom(r).AddAsset(req.ExerciseID, req.Kind, req.Key))
}

func (s *Server) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respond(w, r, engineFrom(r).RemoveAsset(q.Get("exerciseId"), workout.AssetKind(q.Get("kind")), q.Get("key")))
}

func (s *Server) handleCreateSuperset(w http.ResponseWriter, r *http.Request) {
	var req identifiersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := engineFrom(r).CreateSuperset(req.Identifiers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"identifier": id})
}

func (s *Server) handleEditSuperset(w http.ResponseWriter, r *http.Request) {
	var req identifiersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respond(w, r, engineFrom(r).EditSuperset(chi.URLParam(r, "superset"), req.Identifiers))
}

func (s *Server) handleDeleteSuperset(w http.ResponseWriter, r *http.Request) {
	respond(w, r, engineFrom(r).DeleteSuperset(chi.URLParam(r, "superset")))
}
