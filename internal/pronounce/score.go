// Package pronounce scores a spoken Korean sentence against the sentence the
// learner was asked to read and produces coaching feedback.
//
// Scoring is deterministic: accuracy is a character-level similarity between
// the normalised reference and recognised texts, fluency is derived from the
// speaking rate in syllables per second. Feedback comes from an LLM when one
// is configured and falls back to fixed rules otherwise.
package pronounce

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Ideal speaking rate in syllables per second.
const (
	IdealRateMin = 3.0
	IdealRateMax = 5.0
)

// Fluency weighting in the overall score.
const (
	accuracyWeight = 0.7
	fluencyWeight  = 0.3
	// fluencyPenalty is subtracted per syllable-per-second outside the ideal
	// range.
	fluencyPenalty = 20.0
)

// Fluency describes how evenly the learner spoke.
type Fluency struct {
	Score              float64 `json:"score"`
	SyllablesPerSecond float64 `json:"syllables_per_second"`
}

// Report is the quantitative result of an evaluation. All scores are in
// [0, 100].
type Report struct {
	Overall  float64 `json:"overall"`
	Accuracy float64 `json:"accuracy"`
	Fluency  Fluency `json:"fluency"`
}

// Normalize keeps only precomposed Hangul syllables and ASCII digits.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '가' && r <= '힣') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Accuracy returns the character similarity of the normalised texts as a
// percentage. The similarity is 2*M/T over runes, where M counts the runes in
// the matching blocks of the two texts and T is their combined length. An
// empty normalised reference scores 0.
func Accuracy(reference, recognized string) float64 {
	ref := Normalize(reference)
	if ref == "" {
		return 0
	}
	return matchRatio([]rune(ref), []rune(Normalize(recognized))) * 100
}

// SpeechRate returns the speaking rate of text over duration seconds and its
// fluency score. Rates inside [IdealRateMin, IdealRateMax] score 100; each
// syllable per second outside the range costs 20 points. A non-positive
// duration or a text without syllables yields (0, 0).
func SpeechRate(text string, duration float64) (rate, score float64) {
	syllables := utf8.RuneCountInString(Normalize(text))
	if duration <= 0 || syllables == 0 {
		return 0, 0
	}
	rate = float64(syllables) / duration
	if rate >= IdealRateMin && rate <= IdealRateMax {
		return rate, 100
	}
	diff := math.Min(math.Abs(rate-IdealRateMin), math.Abs(rate-IdealRateMax))
	return rate, math.Max(0, 100-diff*fluencyPenalty)
}

// Evaluate builds the Report for a recording of duration seconds whose
// transcript is recognized. The overall score weights accuracy 0.7 and
// fluency 0.3 and is computed before rounding.
func Evaluate(reference, recognized string, duration float64) Report {
	acc := Accuracy(reference, recognized)
	rate, flu := SpeechRate(recognized, duration)
	return Report{
		Overall:  round(accuracyWeight*acc+fluencyWeight*flu, 1),
		Accuracy: round(acc, 1),
		Fluency: Fluency{
			Score:              round(flu, 1),
			SyllablesPerSecond: round(rate, 2),
		},
	}
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
