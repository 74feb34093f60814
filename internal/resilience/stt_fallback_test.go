package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	sttmock "github.com/MrWong99/mouthsync/pkg/provider/stt/mock"
)

func TestSTTFallback_Transcribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		primaryErr   error
		secondaryErr error
		wantText     string
		wantErr      error
		wantCalls    [2]int
	}{
		{name: "primary", wantText: "안녕하세요", wantCalls: [2]int{1, 0}},
		{name: "failover", primaryErr: errors.New("whisper down"), wantText: "안녕", wantCalls: [2]int{1, 1}},
		{
			name:         "all fail",
			primaryErr:   errors.New("whisper down"),
			secondaryErr: errors.New("deepgram down"),
			wantErr:      ErrAllFailed,
			wantCalls:    [2]int{1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			primary := &sttmock.Provider{Result: &stt.Result{Text: "안녕하세요"}, Err: tt.primaryErr}
			secondary := &sttmock.Provider{Result: &stt.Result{Text: "안녕"}, Err: tt.secondaryErr}
			fb := NewSTTFallback(primary, "whisper", FallbackConfig{
				CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
			})
			fb.AddFallback("deepgram", secondary)

			req := stt.Request{PCM: make([]byte, 3200), SampleRate: 16000, Language: "ko"}
			res, err := fb.Transcribe(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && res.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", res.Text, tt.wantText)
			}
			if got := [2]int{len(primary.Calls()), len(secondary.Calls())}; got != tt.wantCalls {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
			if calls := primary.Calls(); len(calls) == 1 && calls[0].Language != "ko" {
				t.Errorf("forwarded language = %q, want ko", calls[0].Language)
			}
		})
	}
}

func TestSTTFallback_InfoIsPrimary(t *testing.T) {
	t.Parallel()

	fb := NewSTTFallback(&sttmock.Provider{InfoValue: stt.Info{Name: "whisper", Model: "small"}}, "whisper", FallbackConfig{})
	fb.AddFallback("deepgram", &sttmock.Provider{InfoValue: stt.Info{Name: "deepgram"}})

	if got := fb.Info(); got.Name != "whisper" || got.Model != "small" {
		t.Errorf("Info() = %+v, want whisper/small", got)
	}
}

func TestSTTFallback_Ready(t *testing.T) {
	t.Parallel()

	notLoaded := errors.New("model not loaded")

	t.Run("any ready backend suffices", func(t *testing.T) {
		t.Parallel()
		fb := NewSTTFallback(&sttmock.Provider{ReadyErr: notLoaded}, "whisper", FallbackConfig{})
		fb.AddFallback("deepgram", &sttmock.Provider{})
		if err := fb.Ready(context.Background()); err != nil {
			t.Errorf("Ready() = %v, want nil", err)
		}
	})

	t.Run("none ready", func(t *testing.T) {
		t.Parallel()
		fb := NewSTTFallback(&sttmock.Provider{ReadyErr: notLoaded}, "whisper", FallbackConfig{})
		err := fb.Ready(context.Background())
		if !errors.Is(err, stt.ErrNotReady) || !errors.Is(err, notLoaded) {
			t.Errorf("Ready() = %v, want ErrNotReady joined with cause", err)
		}
	})
}
