package server

import (
	"net/http"

	"github.com/MrWong99/mouthsync/pkg/viseme"
)

// track is a transcription and the word spans it is played against.
type track struct {
	IPA   string        `json:"ipa"`
	Words []viseme.Span `json:"words"`
}

type frameRequest struct {
	track
	T *float64 `json:"t"`
}

type timelineRequest struct {
	track
	FPS float64 `json:"fps"`
}

type tableEntry struct {
	Category viseme.Category    `json:"category"`
	Params   viseme.MouthParams `json:"params"`
	Image    string             `json:"image"`
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var clock viseme.Clock
	if req.T != nil {
		clock = viseme.At(*req.T)
	}
	f := s.engine.FrameAt(viseme.Tokenize(req.IPA), req.Words, clock)
	s.metrics.RecordFrame(r.Context(), f.Category.String())
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.FPS < 0 {
		writeError(w, r, badRequest("fps must not be negative"))
		return
	}
	frames := s.engine.Timeline(viseme.Tokenize(req.IPA), req.Words, req.FPS)
	for _, f := range frames {
		s.metrics.RecordFrame(r.Context(), f.Category.String())
	}
	writeJSON(w, http.StatusOK, frames)
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	cats := viseme.Categories()
	table := make([]tableEntry, 0, len(cats))
	for _, c := range cats {
		table = append(table, tableEntry{Category: c, Params: viseme.Resolve(c), Image: viseme.Image(c)})
	}
	writeJSON(w, http.StatusOK, table)
}
