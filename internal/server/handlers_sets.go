package server

import (
	"net/http"

	"github.com/claude/liftlog/internal/models"
	"github.com/go-chi/chi/v5"
)

func setParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "exercise"), chi.URLParam(r, "set")
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	id, err := engineFrom(r).AddSet(chi.URLParam(r, "exercise"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"identifier": id})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	var stat models.Statistic
	if !decodeJSON(w, r, &stat) {
		return
	}
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).UpdateSet(ex, set, stat))
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).DeleteSet(ex, set, acknowledged(r)))
}

type lotRequest struct {
	Lot models.SetLot `json:"lot"`
}

func (s *Server) handleChangeSetLot(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).ChangeSetLot(ex, set, req.Lot))
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).SetNote(ex, set, req.Text))
}

func (s *Server) handleToggleSetNote(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).ToggleSetNote(ex, set))
}

type rpeRequest struct {
	RPE *float64 `json:"rpe"`
}

func (s *Server) handleSetRPE(w http.ResponseWriter, r *http.Request) {
	var req rpeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).SetRPE(ex, set, req.RPE))
}

func (s *Server) handleConfirmSet(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	record, err := engineFrom(r).ConfirmSet(r.Context(), ex, set)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePreviousSet(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	stat, err := engineFrom(r).PreviousSet(r.Context(), ex, set)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.Statistic{"previous": stat})
}

func (s *Server) handleNextSet(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	pos, ok, err := engineFrom(r).NextSet(ex, set)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"done": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"done": false, "next": pos})
}

type secondsRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleStartSetRestTimer(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	e := engineFrom(r)
	if err := e.StartRestTimer(ex, set); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.RestTimer())
}

func (s *Server) handleSetRestTimerDuration(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).SetRestTimerDuration(ex, set, req.Seconds))
}

func (s *Server) handleToggleSetRestTimer(w http.ResponseWriter, r *http.Request) {
	ex, set := setParams(r)
	respond(w, r, engineFrom(r).ToggleSetRestTimer(ex, set))
}

// handleRestTimer returns the running countdown, or null.
func (s *Server) handleRestTimer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]*models.RestTimerSignal{"restTimer": engineFrom(r).RestTimer()})
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e := engineFrom(r)
	if err := e.StartTimer(req.Seconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.RestTimer())
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleAdjustRestTimer(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e := engineFrom(r)
	if err := e.AdjustRestTimer(req.Delta); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.RestTimerSignal{"restTimer": e.RestTimer()})
}

func (s *Server) handleStopRestTimer(w http.ResponseWriter, r *http.Request) {
	if err := engineFrom(r).StopRestTimer(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
