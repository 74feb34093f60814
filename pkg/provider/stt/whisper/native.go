// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertions.
var (
	_ stt.Provider         = (*NativeProvider)(nil)
	_ stt.ReadinessChecker = (*NativeProvider)(nil)
)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared; each Transcribe call creates its own context.
type NativeProvider struct {
	model      whisperlib.Model
	modelName  string
	language   string
	silenceRMS float64
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the language code used when a request does not name
// one. Defaults to "ko".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeSilenceThreshold sets the RMS energy below which a recording is
// treated as silence and skipped. Zero disables the check.
func WithNativeSilenceThreshold(rms float64) NativeOption {
	return func(p *NativeProvider) { p.silenceRMS = rms }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:      model,
		modelName:  strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		language:   defaultLanguage,
		silenceRMS: defaultRMSThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Info implements stt.Provider.
func (p *NativeProvider) Info() stt.Info {
	return stt.Info{Name: "whisper-native", Model: p.modelName, Device: "cpu"}
}

// Ready implements stt.ReadinessChecker. The model is loaded in NewNative, so
// a constructed provider is ready until it is closed.
func (p *NativeProvider) Ready(context.Context) error {
	if p.model == nil {
		return stt.ErrNotReady
	}
	return nil
}

// Transcribe runs whisper.cpp inference on req. Word timings are assembled
// from token timestamps.
func (p *NativeProvider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	res := &stt.Result{Language: lang, Model: p.modelName}
	if p.silenceRMS > 0 && audio.RMS(req.PCM) < p.silenceRMS {
		return res, nil
	}

	sr := req.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	pcm, err := audio.Convert(audio.PCM{Data: req.PCM, Format: audio.Format{SampleRate: sr, Channels: 1}}, audio.SpeechFormat)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	// A context is not thread-safe; the model can be shared.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	if stt.AutoLanguage(lang) {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}
	wctx.SetTokenTimestamps(req.WordTimestamps)

	if err := wctx.Process(pcm.Float32(), nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}
	if lang == "auto" {
		res.Language = wctx.DetectedLanguage()
	}

	var (
		parts  []string
		pieces []piece
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
		if !req.WordTimestamps {
			continue
		}
		for _, tok := range segment.Tokens {
			if !wctx.IsText(tok) {
				continue
			}
			pieces = append(pieces, piece{text: tok.Text, start: tok.Start, end: tok.End, p: float64(tok.P)})
		}
	}

	res.Text = strings.Join(parts, " ")
	if req.WordTimestamps {
		res.Words = mergePieces(pieces)
	}
	return res, nil
}
