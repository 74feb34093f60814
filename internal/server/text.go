package server

import (
	"math"
	"net/http"
	"strings"

	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/pkg/hangul"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

type ipaRequest struct {
	Text string `json:"text"`
}

type ipaResponse struct {
	hangul.Result
	Tokens viseme.Transcription `json:"tokens"`
	Groups []viseme.Category    `json:"groups"`
}

func (s *Server) handleIPA(w http.ResponseWriter, r *http.Request) {
	var req ipaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, badRequest("text must not be empty"))
		return
	}
	res := hangul.Convert(req.Text)
	resp := ipaResponse{
		Result: res,
		Tokens: viseme.Tokenize(res.IPA),
		Groups: viseme.Groups(res.IPA),
	}
	if resp.Syllables == nil {
		resp.Syllables = []hangul.Syllable{}
	}
	if resp.Tokens == nil {
		resp.Tokens = viseme.Transcription{}
	}
	if resp.Groups == nil {
		resp.Groups = []viseme.Category{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type pronEvalRequest struct {
	ReferenceText  string  `json:"reference_text"`
	RecognizedText string  `json:"recognized_text"`
	DurationSec    float64 `json:"duration_sec"`
}

func (s *Server) handlePronEval(w http.ResponseWriter, r *http.Request) {
	var req pronEvalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if math.IsNaN(req.DurationSec) || req.DurationSec < 0 {
		writeError(w, r, badRequest("duration_sec must be a non-negative number"))
		return
	}
	ev := s.svc.Coach().Evaluate(r.Context(), req.ReferenceText, req.RecognizedText, req.DurationSec)
	s.metrics.RecordScore(r.Context(), ev.Report.Overall, ev.AIFeedback.Level)
	observe.Logger(r.Context()).Debug("server: pronunciation evaluated",
		"overall", ev.Report.Overall, "source", ev.AIFeedback.Source)
	writeJSON(w, http.StatusOK, ev)
}
