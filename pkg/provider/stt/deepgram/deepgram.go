// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. A recording is streamed in fixed-size chunks,
// followed by a CloseStream message; the final results are collected into a
// single stt.Result.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "ko"
	defaultSampleRate = 16000

	// chunkBytes is 250 ms of 16 kHz mono 16-bit audio.
	chunkBytes = 8000
)

var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language used when a request does not name one.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the streaming endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Info implements stt.Provider.
func (p *Provider) Info() stt.Info {
	return stt.Info{Name: "deepgram", Model: p.model, Device: "remote"}
}

// Transcribe streams req.PCM to Deepgram and gathers every final result.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	wsURL, err := p.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	var (
		texts []string
		words []stt.Word
		lang  string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for off := 0; off < len(req.PCM); off += chunkBytes {
			end := min(off+chunkBytes, len(req.PCM))
			if err := conn.Write(gctx, websocket.MessageBinary, req.PCM[off:end]); err != nil {
				return fmt.Errorf("deepgram: send audio: %w", err)
			}
		}
		if err := conn.Write(gctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
			return fmt.Errorf("deepgram: close stream: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		for {
			_, msg, err := conn.Read(gctx)
			if err != nil {
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
					return nil
				}
				return fmt.Errorf("deepgram: read: %w", err)
			}
			var resp response
			if err := json.Unmarshal(msg, &resp); err != nil {
				continue
			}
			switch resp.Type {
			case "Metadata":
				return nil
			case "Results":
				if !resp.IsFinal || len(resp.Channel.Alternatives) == 0 {
					continue
				}
				alt := resp.Channel.Alternatives[0]
				if t := strings.TrimSpace(alt.Transcript); t != "" {
					texts = append(texts, t)
				}
				if len(alt.Languages) > 0 && lang == "" {
					lang = alt.Languages[0]
				}
				words = append(words, alt.words()...)
			}
		}
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	conn.Close(websocket.StatusNormalClosure, "done")

	res := &stt.Result{
		Text:     strings.Join(texts, " "),
		Language: req.Language,
		Model:    p.model,
	}
	if res.Language == "" {
		res.Language = p.language
	}
	if stt.AutoLanguage(req.Language) && lang != "" {
		res.Language = lang
	}
	if req.WordTimestamps {
		res.Words = words
	}
	return res, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for req.
func (p *Provider) buildURL(req stt.Request) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	sr := req.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	switch {
	case req.Language == "auto":
		q.Set("detect_language", "true")
	case req.Language != "":
		q.Set("language", req.Language)
	default:
		q.Set("language", p.language)
	}
	q.Set("punctuate", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("channels", "1")

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// response is the JSON structure returned by Deepgram for streaming events.
type response struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

type alternative struct {
	Transcript string   `json:"transcript"`
	Confidence float64  `json:"confidence"`
	Languages  []string `json:"languages"`
	Words      []struct {
		Word           string  `json:"word"`
		PunctuatedWord string  `json:"punctuated_word"`
		Start          float64 `json:"start"`
		End            float64 `json:"end"`
		Confidence     float64 `json:"confidence"`
	} `json:"words"`
}

func (a alternative) words() []stt.Word {
	out := make([]stt.Word, 0, len(a.Words))
	for _, w := range a.Words {
		text := w.PunctuatedWord
		if text == "" {
			text = w.Word
		}
		out = append(out, stt.Word{
			Word:       text,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Confidence,
		})
	}
	return out
}
