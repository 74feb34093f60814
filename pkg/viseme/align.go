package viseme

import "strings"

// Span is a recognised word with its playback interval [Start, End) in
// seconds. Spans normally arrive ordered by Start and non-overlapping, but
// nothing here depends on that.
type Span struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t lies in the half-open interval [Start, End).
func (s Span) Contains(t float64) bool {
	return s.Start <= t && t < s.End
}

// Transcription is the ordered token sequence of one phonetic transcription.
type Transcription []string

// Clock is a playback position. The zero value is an unknown position, which
// is distinct from a known position of 0 seconds.
type Clock struct {
	T     float64
	Known bool
}

// At returns a known clock at t seconds.
func At(t float64) Clock { return Clock{T: t, Known: true} }

// Tokenize splits s on runs of whitespace. When that produces no tokens the
// result is the single-element transcription holding s unchanged, so index 0
// is always addressable.
func Tokenize(s string) Transcription {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Transcription{s}
	}
	return Transcription(fields)
}

// ActiveSpan returns the index of the first span containing the clock
// position. It reports false when the clock is unknown, spans is empty, or no
// span contains the position. When spans overlap the earliest one wins.
func ActiveSpan(spans []Span, clock Clock) (int, bool) {
	if !clock.Known {
		return -1, false
	}
	for i, s := range spans {
		if s.Contains(clock.T) {
			return i, true
		}
	}
	return -1, false
}

// ClampIndex saturates i into [0, n-1]. For n <= 0 it returns 0.
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ActiveToken returns the transcription index and token for the clock
// position. Without an active span it falls back to index 0; a span index
// beyond the transcription is clamped to the last token. An empty
// transcription yields (0, "").
func ActiveToken(tr Transcription, spans []Span, clock Clock) (int, string) {
	i, ok := ActiveSpan(spans, clock)
	if !ok {
		i = 0
	}
	i = ClampIndex(i, len(tr))
	if len(tr) == 0 {
		return 0, ""
	}
	return i, tr[i]
}
