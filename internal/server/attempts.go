package server

import (
	"net/http"
	"strconv"

	"github.com/MrWong99/mouthsync/internal/attempt"
	"github.com/MrWong99/mouthsync/internal/practice"
)

type attemptList struct {
	Attempts []attempt.Attempt `json:"attempts"`
}

func (s *Server) handleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	pcm, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Run(r.Context(), practice.Input{
		Audio:         pcm,
		ReferenceText: r.FormValue("reference_text"),
		Language:      r.FormValue("language"),
	})
	if err != nil {
		writeError(w, r, practiceError(err))
		return
	}
	s.metrics.RecordScore(r.Context(), a.Report.Overall, a.Feedback.Level)
	status := http.StatusOK
	if a.ID != "" {
		status = http.StatusCreated
		w.Header().Set("Location", "/"+s.version+"/attempts/"+a.ID)
	}
	writeJSON(w, status, a)
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	store := s.svc.Store()
	if store == nil {
		writeError(w, r, notFound("attempts are not stored"))
		return
	}
	id := r.PathValue("id")
	a, err := store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a == nil {
		writeError(w, r, notFound("attempt %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	store := s.svc.Store()
	if store == nil {
		writeJSON(w, http.StatusOK, attemptList{Attempts: []attempt.Attempt{}})
		return
	}
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, badRequest("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}
	list, err := store.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []attempt.Attempt{}
	}
	writeJSON(w, http.StatusOK, attemptList{Attempts: list})
}
