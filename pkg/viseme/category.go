// Package viseme maps phonetic transcriptions and word timings to mouth
// shapes.
//
// The package has three layers, composed bottom-up:
//
//  1. [Classify] and [ClassifyToken] reduce a phonetic token to one of a closed
//     set of 13 visual [Category] values using an ordered rule table.
//  2. [Tokenize] and [ActiveToken] split a transcription into tokens and pick
//     the token that corresponds to a playback time, given timed word spans
//     produced by a speech-to-text provider.
//  3. [Resolve] expands a [Category] into steady-state [MouthParams] for a
//     renderer.
//
// Every function is pure and total: malformed transcriptions, missing clocks,
// and mismatched span counts degrade to index 0, clamped indices, or
// [Neutral] rather than errors. All exported functions are safe for
// concurrent use.
package viseme

// Category is a visual mouth-shape class (viseme group).
type Category string

// The 13 mouth categories. [Neutral] is the fallback for anything the
// classifier does not recognise.
const (
	AEI     Category = "AEI"
	FV      Category = "FV"
	L       Category = "L"
	QW      Category = "QW"
	CHJSH   Category = "CHJSH"
	U       Category = "U"
	R       Category = "R"
	CORE    Category = "CORE"
	BMP     Category = "BMP"
	TH      Category = "TH"
	EE      Category = "EE"
	O       Category = "O"
	Neutral Category = "NEUTRAL"
)

var allCategories = [...]Category{AEI, FV, L, QW, CHJSH, U, R, CORE, BMP, TH, EE, O, Neutral}

// Categories returns all 13 categories in declaration order. The returned
// slice is a fresh copy.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories[:])
	return out
}

// Valid reports whether c is one of the 13 known categories.
func (c Category) Valid() bool {
	_, ok := presets[c]
	return ok
}

// String implements [fmt.Stringer].
func (c Category) String() string { return string(c) }

// ParseCategory returns the category named s. Unknown names map to [Neutral]
// and ok is false.
func ParseCategory(s string) (c Category, ok bool) {
	c = Category(s)
	if !c.Valid() {
		return Neutral, false
	}
	return c, true
}
