package viseme

import "math"

const (
	defaultIdleWord  = "(waiting)"
	defaultFPS       = 30
	defaultMaxFrames = 10000

	// seekOffset nudges a seek target past a span's start so that the
	// half-open lookup lands inside the span rather than on its boundary.
	seekOffset = 0.001
)

// Frame is the fully resolved visual state at one playback position.
type Frame struct {
	Time       float64     `json:"t"`
	TokenIndex int         `json:"token_index"`
	Token      string      `json:"token"`
	SpanIndex  int         `json:"span_index"` // -1 when no span is active
	Word       string      `json:"word"`
	Category   Category    `json:"category"`
	Params     MouthParams `json:"params"`
	Image      string      `json:"image"`
}

// Option configures an [Engine].
type Option func(*Engine)

// WithIdleWord sets the label reported in [Frame.Word] when no span is
// active. Default: "(waiting)".
func WithIdleWord(w string) Option {
	return func(e *Engine) { e.idleWord = w }
}

// WithMaxFrames caps the number of frames [Engine.Timeline] produces.
// Default: 10000.
func WithMaxFrames(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFrames = n
		}
	}
}

// Engine composes tokenization, alignment, classification and resolution
// into frames. It holds only immutable settings and is safe for concurrent
// use.
type Engine struct {
	idleWord  string
	maxFrames int
}

// New returns an [Engine] configured with opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		idleWord:  defaultIdleWord,
		maxFrames: defaultMaxFrames,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// FrameAt resolves the frame for clock against tr and spans.
func (e *Engine) FrameAt(tr Transcription, spans []Span, clock Clock) Frame {
	idx, token := ActiveToken(tr, spans, clock)
	cat := ClassifyToken(token)

	f := Frame{
		TokenIndex: idx,
		Token:      token,
		SpanIndex:  -1,
		Word:       e.idleWord,
		Category:   cat,
		Params:     Resolve(cat),
		Image:      Image(cat),
	}
	if clock.Known {
		f.Time = clock.T
	}
	if si, ok := ActiveSpan(spans, clock); ok {
		f.SpanIndex = si
		f.Word = spans[si].Text
	}
	return f
}

// Timeline samples frames every 1/fps seconds from 0 through the latest span
// end. A non-positive fps uses 30. Without spans it returns the single idle
// frame at t=0. The frame count is capped by [WithMaxFrames].
func (e *Engine) Timeline(tr Transcription, spans []Span, fps float64) []Frame {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = defaultFPS
	}
	var end float64
	for _, s := range spans {
		if s.End > end && !math.IsInf(s.End, 0) {
			end = s.End
		}
	}
	count := math.Ceil(end*fps) + 1
	if count > float64(e.maxFrames) {
		count = float64(e.maxFrames)
	}
	n := max(int(count), 1)
	frames := make([]Frame, 0, n)
	for i := range n {
		frames = append(frames, e.FrameAt(tr, spans, At(float64(i)/fps)))
	}
	return frames
}

// SeekTime returns the playback position that selects span i, clamped into
// the span list. The target sits seekOffset past the span's start, or at its
// midpoint when the span is shorter than that. It returns 0 when spans is
// empty.
func SeekTime(spans []Span, i int) float64 {
	if len(spans) == 0 {
		return 0
	}
	s := spans[ClampIndex(i, len(spans))]
	t := s.Start + seekOffset
	if s.End > s.Start {
		t = min(t, s.Start+(s.End-s.Start)/2)
	}
	return t
}
