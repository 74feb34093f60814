// Package stt defines the Provider interface for batch speech-to-text
// backends.
//
// A provider receives one complete recording as 16 kHz mono PCM and returns
// the recognised text together with per-word timings. The word timings are
// what drive mouth-shape playback, so providers that can report them should
// always do so when [Request.WordTimestamps] is set.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrNotReady is returned by providers whose model or backend is not yet
// available. Callers map it to a "service unavailable" response.
var ErrNotReady = errors.New("stt: model not ready")

// Request is one recording to transcribe.
type Request struct {
	// PCM is 16-bit signed little-endian mono audio.
	PCM []byte

	// SampleRate of PCM in Hz. Zero means 16000.
	SampleRate int

	// Language is an ISO-639-1 code such as "ko" or "en". Empty or "auto"
	// asks the provider to detect the language.
	Language string

	// WordTimestamps requests per-word start and end times.
	WordTimestamps bool
}

// Word is a recognised word and its position in the recording.
type Word struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Result is the outcome of a transcription.
type Result struct {
	// Text is the full transcript as returned by the backend.
	Text string

	// Words holds per-word timings. Nil when timestamps were not requested or
	// the backend cannot produce them.
	Words []Word

	// Language is the recognised or requested language code.
	Language string

	// Model names the backend model that produced the result.
	Model string
}

// Info describes a provider for health reporting.
type Info struct {
	Name   string
	Model  string
	Device string // "cpu", "gpu" or "remote"
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe recognises speech in req. It returns [ErrNotReady] (possibly
	// wrapped) when the backend cannot accept work yet.
	Transcribe(ctx context.Context, req Request) (*Result, error)

	// Info returns static metadata about the provider.
	Info() Info
}

// ReadinessChecker is implemented by providers that can report whether they
// are able to serve requests without performing a transcription.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// AutoLanguage reports whether lang asks for language detection.
func AutoLanguage(lang string) bool {
	return lang == "" || lang == "auto"
}
