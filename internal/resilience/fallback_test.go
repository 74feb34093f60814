package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		failing map[string]bool
		want    []string
		wantErr error
	}{
		{name: "primary succeeds", want: []string{"whisper"}},
		{name: "fails over", failing: map[string]bool{"whisper": true}, want: []string{"whisper", "deepgram"}},
		{
			name:    "all fail",
			failing: map[string]bool{"whisper": true, "deepgram": true},
			want:    []string{"whisper", "deepgram"},
			wantErr: ErrAllFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fg := NewFallbackGroup("whisper", "whisper", FallbackConfig{
				CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
			})
			fg.AddFallback("deepgram", "deepgram")

			var tried []string
			err := fg.Execute(func(v string) error {
				tried = append(tried, v)
				if tt.failing[v] {
					return errTest
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && !errors.Is(err, errTest) {
				t.Errorf("err = %v, want it to wrap the last provider error", err)
			}
			if diff := cmp.Diff(tt.want, tried); diff != "" {
				t.Errorf("tried mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenProvider(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("whisper", "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("deepgram", "deepgram")

	for range 2 {
		_ = fg.Execute(func(v string) error {
			if v == "whisper" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	if err := fg.Execute(func(v string) error { called = append(called, v); return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"deepgram"}, called); diff != "" {
		t.Errorf("called mismatch (-want +got):\n%s", diff)
	}

	want := []EntryStatus{{Name: "whisper", State: "open"}, {Name: "deepgram", State: "closed"}}
	if diff := cmp.Diff(want, fg.Status()); diff != "" {
		t.Errorf("Status() mismatch (-want +got):\n%s", diff)
	}
}

func TestFallbackGroup_CanceledStopsFailover(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("whisper", "whisper", FallbackConfig{})
	fg.AddFallback("deepgram", "deepgram")

	var tried []string
	err := fg.Execute(func(v string) error {
		tried = append(tried, v)
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want bare context.Canceled", err)
	}
	if diff := cmp.Diff([]string{"whisper"}, tried); diff != "" {
		t.Errorf("tried mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteWithResult(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	result, err := ExecuteWithResult(fg, func(v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" {
		t.Fatalf("result = %q, want from-twenty", result)
	}
	if fg.Primary() != 10 {
		t.Errorf("Primary() = %d, want 10", fg.Primary())
	}
}
