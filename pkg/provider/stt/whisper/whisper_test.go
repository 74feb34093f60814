package whisper_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	"github.com/MrWong99/mouthsync/pkg/provider/stt/whisper"
)

const verboseBody = `{
  "text": " 저는 학생입니다",
  "language": "korean",
  "segments": [
    {"text": " 저는 학생입니다", "start": 0.0, "end": 1.25, "words": [
      {"word": " 저는", "start": 0.0, "end": 0.5, "probability": 0.9},
      {"word": " ", "start": 0.5, "end": 0.5, "probability": 0.1},
      {"word": " 학생입니다", "start": 0.5, "end": 1.25, "probability": 0.8}
    ]}
  ]
}`

// captured holds the multipart fields and file of the last inference call.
type captured struct {
	fields map[string]string
	wav    []byte
}

// newMockServer creates a test server that answers POST /inference with body
// and GET /health with healthStatus. It records every inference request.
func newMockServer(t *testing.T, body string, healthStatus int, calls *atomic.Int32, last *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			w.WriteHeader(healthStatus)
		case r.Method == http.MethodPost && r.URL.Path == "/inference":
			if calls != nil {
				calls.Add(1)
			}
			if err := r.ParseMultipartForm(10 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if last != nil {
				last.fields = map[string]string{}
				for k, v := range r.MultipartForm.Value {
					last.fields[k] = v[0]
				}
				f, _, err := r.FormFile("file")
				if err == nil {
					last.wav, _ = io.ReadAll(f)
					f.Close()
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()
	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestInfo(t *testing.T) {
	t.Parallel()

	p, _ := whisper.New("http://localhost:8080")
	if got := p.Info(); got.Name != "whisper" || got.Device != "remote" || got.Model != "server-default" {
		t.Errorf("Info() = %+v", got)
	}
	p, _ = whisper.New("http://localhost:8080", whisper.WithModel("base"))
	if got := p.Info().Model; got != "base" {
		t.Errorf("Info().Model = %q, want %q", got, "base")
	}
}

func TestTranscribe_WordTimestamps(t *testing.T) {
	t.Parallel()

	var last captured
	srv := newMockServer(t, verboseBody, http.StatusOK, nil, &last)
	p, err := whisper.New(srv.URL+"/", whisper.WithModel("base"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), stt.Request{
		PCM:            makeSpeechPCM(16000),
		Language:       "ko",
		WordTimestamps: true,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "저는 학생입니다" {
		t.Errorf("Text = %q, want %q", res.Text, "저는 학생입니다")
	}
	if res.Language != "ko" || res.Model != "base" {
		t.Errorf("Language/Model = %q/%q, want ko/base", res.Language, res.Model)
	}
	if len(res.Words) != 2 {
		t.Fatalf("Words len = %d, want 2 (blank words dropped)", len(res.Words))
	}
	if w := res.Words[1]; w.Word != "학생입니다" || w.Start != 500*time.Millisecond || w.End != 1250*time.Millisecond {
		t.Errorf("Words[1] = %+v", w)
	}

	if last.fields["response_format"] != "verbose_json" {
		t.Errorf("response_format = %q, want verbose_json", last.fields["response_format"])
	}
	if last.fields["language"] != "ko" || last.fields["model"] != "base" {
		t.Errorf("fields = %v, want language=ko model=base", last.fields)
	}
	pcm, err := audio.DecodeWAV(last.wav)
	if err != nil {
		t.Fatalf("uploaded file is not WAV: %v", err)
	}
	if pcm.Format != audio.SpeechFormat || len(pcm.Data) != 32000 {
		t.Errorf("uploaded WAV = %s, %d bytes; want %s, 32000 bytes", pcm.Format, len(pcm.Data), audio.SpeechFormat)
	}
}

func TestTranscribe_AutoLanguageUsesDetected(t *testing.T) {
	t.Parallel()

	var last captured
	srv := newMockServer(t, verboseBody, http.StatusOK, nil, &last)
	p, _ := whisper.New(srv.URL)

	res, err := p.Transcribe(context.Background(), stt.Request{PCM: makeSpeechPCM(8000), Language: "auto"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Language != "korean" {
		t.Errorf("Language = %q, want detected %q", res.Language, "korean")
	}
	if last.fields["language"] != "auto" {
		t.Errorf("language field = %q, want auto", last.fields["language"])
	}
	if res.Words != nil {
		t.Errorf("Words = %v, want nil when timestamps not requested", res.Words)
	}
}

func TestTranscribe_SegmentsWithoutWords(t *testing.T) {
	t.Parallel()

	body := `{"text":"ab cd","segments":[{"text":" ab cd","start":1.0,"end":2.0}]}`
	srv := newMockServer(t, body, http.StatusOK, nil, nil)
	p, _ := whisper.New(srv.URL)

	res, err := p.Transcribe(context.Background(), stt.Request{PCM: makeSpeechPCM(8000), WordTimestamps: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(res.Words) != 2 {
		t.Fatalf("Words len = %d, want 2", len(res.Words))
	}
	if res.Words[0].Start != time.Second || res.Words[0].End != 1500*time.Millisecond {
		t.Errorf("Words[0] = %+v, want [1s, 1.5s)", res.Words[0])
	}
	if res.Words[1].End != 2*time.Second {
		t.Errorf("Words[1].End = %v, want 2s", res.Words[1].End)
	}
}

func TestTranscribe_SilenceSkipsServer(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newMockServer(t, verboseBody, http.StatusOK, &calls, nil)
	p, _ := whisper.New(srv.URL)

	res, err := p.Transcribe(context.Background(), stt.Request{PCM: make([]byte, 32000)})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty for silence", res.Text)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("inference calls = %d, want 0", n)
	}
}

func TestTranscribe_ServerErrors(t *testing.T) {
	t.Parallel()

	busy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer busy.Close()
	p, _ := whisper.New(busy.URL)
	_, err := p.Transcribe(context.Background(), stt.Request{PCM: makeSpeechPCM(8000)})
	if !errors.Is(err, stt.ErrNotReady) {
		t.Errorf("Transcribe(503) err = %v, want ErrNotReady", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()
	p, _ = whisper.New(broken.URL)
	_, err = p.Transcribe(context.Background(), stt.Request{PCM: makeSpeechPCM(8000)})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Transcribe(500) err = %v, want HTTP 500 error", err)
	}

	garbage := newMockServer(t, "not json", http.StatusOK, nil, nil)
	p, _ = whisper.New(garbage.URL)
	if _, err := p.Transcribe(context.Background(), stt.Request{PCM: makeSpeechPCM(8000)}); err == nil {
		t.Error("Transcribe(bad JSON): expected error, got nil")
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	ok := newMockServer(t, verboseBody, http.StatusOK, nil, nil)
	p, _ := whisper.New(ok.URL)
	if err := p.Ready(context.Background()); err != nil {
		t.Errorf("Ready() = %v, want nil", err)
	}

	loading := newMockServer(t, verboseBody, http.StatusServiceUnavailable, nil, nil)
	p, _ = whisper.New(loading.URL)
	if err := p.Ready(context.Background()); !errors.Is(err, stt.ErrNotReady) {
		t.Errorf("Ready() = %v, want ErrNotReady", err)
	}
}
