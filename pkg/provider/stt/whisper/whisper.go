// Package whisper provides whisper.cpp-backed STT providers.
//
// [Provider] talks to a running whisper-server binary over its REST API
// (POST /inference with response_format=verbose_json) and reads per-word
// timings from the verbose segment list. [NativeProvider] links whisper.cpp
// through its CGO bindings and derives word timings from token timestamps.
//
// Both providers skip inference for recordings whose energy never rises above
// the silence threshold and return an empty result instead.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("ko"),
//	)
//	res, err := p.Transcribe(ctx, stt.Request{PCM: pcm, WordTimestamps: true})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

const (
	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which a whole recording is considered silent. The maximum
	// possible value for 16-bit audio is 32 767; 300 corresponds to
	// near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage   = "ko"
	defaultSampleRate = 16000
	defaultTimeout    = 60 * time.Second
)

// Compile-time assertions.
var (
	_ stt.Provider         = (*Provider)(nil)
	_ stt.ReadinessChecker = (*Provider)(nil)
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base", "small"). When empty the server uses whichever model it was
// started with; this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code used when a request does not name one.
// Defaults to "ko".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithSilenceThreshold sets the RMS energy below which a recording is treated
// as silence and not sent to the server. Zero disables the check.
func WithSilenceThreshold(rms float64) Option {
	return func(p *Provider) {
		p.silenceRMS = rms
	}
}

// WithHTTPClient replaces the HTTP client used for inference requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	silenceRMS float64
	httpClient *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		silenceRMS: defaultRMSThreshold,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Info implements stt.Provider.
func (p *Provider) Info() stt.Info {
	model := p.model
	if model == "" {
		model = "server-default"
	}
	return stt.Info{Name: "whisper", Model: model, Device: "remote"}
}

// Ready reports whether the whisper.cpp server has finished loading its
// model. The server answers GET /health with 200 once it can serve requests.
func (p *Provider) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("whisper: create health request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: health: %w: %w", stt.ErrNotReady, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper: health returned HTTP %d: %w", resp.StatusCode, stt.ErrNotReady)
	}
	return nil
}

// Transcribe encodes req as WAV and posts it to the /inference endpoint.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	sr := req.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	if p.silenceRMS > 0 && audio.RMS(req.PCM) < p.silenceRMS {
		return &stt.Result{Language: lang, Model: p.Info().Model}, nil
	}

	wav := audio.EncodeWAV(audio.PCM{Data: req.PCM, Format: audio.Format{SampleRate: sr, Channels: 1}})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("whisper: write wav data: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"temperature":     "0.0",
		"language":        "auto",
	}
	if !stt.AutoLanguage(lang) {
		fields["language"] = lang
	}
	if p.model != "" {
		fields["model"] = p.model
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("whisper: server returned HTTP 503: %w", stt.ErrNotReady)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var vr verboseResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	res := &stt.Result{
		Text:     strings.TrimSpace(vr.Text),
		Language: lang,
		Model:    p.Info().Model,
	}
	if stt.AutoLanguage(lang) && vr.Language != "" {
		res.Language = vr.Language
	}
	if req.WordTimestamps {
		res.Words = vr.words()
	}
	return res, nil
}

// verboseResponse is the subset of whisper-server's verbose_json output that
// the provider reads.
type verboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []verboseSegment `json:"segments"`
}

type verboseSegment struct {
	Text  string        `json:"text"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Words []verboseWord `json:"words"`
}

type verboseWord struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// words flattens per-segment word lists. Segments without a word list are
// split on whitespace and their duration is shared out by character count.
func (v verboseResponse) words() []stt.Word {
	var out []stt.Word
	for _, seg := range v.Segments {
		if len(seg.Words) == 0 {
			out = append(out, splitSegment(seg.Text, secs(seg.Start), secs(seg.End))...)
			continue
		}
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			out = append(out, stt.Word{
				Word:       text,
				Start:      secs(w.Start),
				End:        secs(w.End),
				Confidence: w.Probability,
			})
		}
	}
	return out
}

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
