// Package practice runs the pronunciation practice pipeline: transcribe a
// recording, convert the reference sentence to IPA, score the attempt,
// coach the learner and persist the result.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/mouthsync/internal/attempt"
	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/internal/pronounce"
	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/hangul"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

var (
	// ErrEmptyReference is returned when an attempt has no reference text.
	ErrEmptyReference = errors.New("practice: reference text is empty")

	// ErrTooLong is returned when a recording exceeds the configured maximum
	// duration.
	ErrTooLong = errors.New("practice: recording too long")

	// ErrStoreUnavailable is returned when the attempt store cannot be
	// reached before an attempt is scored.
	ErrStoreUnavailable = errors.New("practice: attempt store unavailable")
)

// Service runs transcriptions and full practice attempts. It is safe for
// concurrent use.
type Service struct {
	stt        stt.Provider
	coach      *pronounce.Coach
	store      attempt.Store
	language   string
	maxSeconds float64
}

// Option configures a [Service].
type Option func(*Service)

// WithStore persists attempts to s. Without it attempts are scored but not
// stored.
func WithStore(s attempt.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithDefaultLanguage sets the language used when a request leaves it empty.
// Default: "ko".
func WithDefaultLanguage(lang string) Option {
	return func(svc *Service) { svc.language = lang }
}

// WithMaxSeconds rejects recordings longer than sec. Zero disables the check.
func WithMaxSeconds(sec float64) Option {
	return func(svc *Service) { svc.maxSeconds = sec }
}

// New creates a Service. A nil coach falls back to a rule-based one.
func New(provider stt.Provider, coach *pronounce.Coach, opts ...Option) *Service {
	if coach == nil {
		coach = pronounce.NewCoach()
	}
	svc := &Service{stt: provider, coach: coach, language: "ko"}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// Coach returns the coach used for feedback.
func (s *Service) Coach() *pronounce.Coach { return s.coach }

// Store returns the attempt store, or nil when attempts are not persisted.
func (s *Service) Store() attempt.Store { return s.store }

// TranscribeRequest is one recording to transcribe.
type TranscribeRequest struct {
	Audio          audio.PCM
	Language       string
	WordTimestamps bool
}

// Transcribe sends the recording to the STT provider.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (*Transcript, error) {
	dur := req.Audio.Seconds()
	if s.maxSeconds > 0 && dur > s.maxSeconds {
		return nil, fmt.Errorf("%w: %.1fs exceeds %.0fs", ErrTooLong, dur, s.maxSeconds)
	}
	lang := req.Language
	if lang == "" {
		lang = s.language
	}
	res, err := s.stt.Transcribe(ctx, stt.Request{
		PCM:            req.Audio.Data,
		SampleRate:     req.Audio.SampleRate,
		Language:       lang,
		WordTimestamps: req.WordTimestamps,
	})
	if err != nil {
		return nil, fmt.Errorf("practice: transcribe: %w", err)
	}
	return newTranscript(res, dur, lang), nil
}

// Input is one practice attempt.
type Input struct {
	Audio         audio.PCM
	ReferenceText string
	Language      string
}

// Run transcribes the recording, then scores, coaches and stores the
// attempt. When the store can be pinged it is checked while the recording
// is transcribed, and an unreachable store aborts the transcription.
func (s *Service) Run(ctx context.Context, in Input) (_ *attempt.Attempt, err error) {
	reference := strings.TrimSpace(in.ReferenceText)
	if reference == "" {
		return nil, ErrEmptyReference
	}
	ctx, span := observe.StartSpan(ctx, "practice.run")
	defer func() { observe.EndSpan(span, err) }()

	var tr *Transcript
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		tr, err = s.Transcribe(egCtx, TranscribeRequest{
			Audio:          in.Audio,
			Language:       in.Language,
			WordTimestamps: true,
		})
		return err
	})
	if p, ok := s.store.(attempt.Pinger); ok {
		eg.Go(func() error {
			if err := p.Ping(egCtx); err != nil {
				return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ipa := hangul.Convert(reference)
	ev := s.coach.Evaluate(ctx, reference, tr.NormText, tr.Duration)
	a := &attempt.Attempt{
		ReferenceText:  reference,
		ReferenceIPA:   ipa.IPA,
		RecognizedText: ev.RecognizedText,
		Language:       tr.Language,
		Model:          tr.Model,
		Duration:       tr.Duration,
		Words:          tr.Words,
		Report:         ev.Report,
		Feedback:       ev.AIFeedback,
		CreatedAt:      time.Now().UTC(),
	}
	if s.store == nil {
		return a, nil
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("practice: store attempt: %w", err)
	}
	slog.Debug("practice: attempt stored", "id", a.ID, "overall", a.Report.Overall)
	return a, nil
}
