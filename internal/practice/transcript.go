package practice

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

// Transcript is a transcription prepared for clients: normalised text and
// word spans ready for the viseme engine.
type Transcript struct {
	RawText  string        `json:"rawText"`
	NormText string        `json:"normText"`
	Words    []viseme.Span `json:"words"`
	Duration float64       `json:"duration"`
	Language string        `json:"language"`
	Model    string        `json:"model"`
}

// NormalizeText applies NFC and collapses every whitespace run to a single
// space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Spans converts provider words to spans with times in seconds rounded to
// two decimals. Words that are empty after trimming are dropped.
func Spans(words []stt.Word) []viseme.Span {
	out := make([]viseme.Span, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		out = append(out, viseme.Span{
			Text:  text,
			Start: round2(w.Start.Seconds()),
			End:   round2(w.End.Seconds()),
		})
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func newTranscript(res *stt.Result, duration float64, language string) *Transcript {
	lang := res.Language
	if lang == "" {
		lang = language
	}
	return &Transcript{
		RawText:  res.Text,
		NormText: NormalizeText(res.Text),
		Words:    Spans(res.Words),
		Duration: round2(duration),
		Language: lang,
		Model:    res.Model,
	}
}
