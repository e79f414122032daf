package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/liftlog/internal/api"
	"github.com/claude/liftlog/internal/workout"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine and remote errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

func errorStatus(err error) int {
	switch {
	case workout.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, workout.ErrNoActiveSession),
		errors.Is(err, workout.ErrExerciseNotFound),
		errors.Is(err, workout.ErrSetNotFound),
		errors.Is(err, workout.ErrSupersetNotFound),
		errors.Is(err, workout.ErrNoRestTimer),
		errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workout.ErrSessionExists),
		errors.Is(err, workout.ErrConfirmationRequired),
		errors.Is(err, workout.ErrCommitInProgress),
		errors.Is(err, workout.ErrSessionLocked):
		return http.StatusConflict
	case errors.Is(err, workout.ErrCommitFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// acknowledged reads the ack query parameter used to confirm destructive deletes.
func acknowledged(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("ack"))
	return ok
}

// respond writes the current session view after a successful mutation.
func respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := engineFrom(r).View()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
