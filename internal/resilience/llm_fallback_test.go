package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/mouthsync/pkg/provider/llm"
	llmmock "github.com/MrWong99/mouthsync/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete_PrimarySuccess(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from solar"}}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from openai"}}

	fb := NewLLMFallback(primary, "solar", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from solar" {
		t.Errorf("content = %q, want %q", resp.Content, "from solar")
	}
	if n := len(secondary.Calls()); n != 0 {
		t.Errorf("secondary called %d times, want 0", n)
	}
}

func TestLLMFallback_Complete_Failover(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errors.New("solar down")}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from openai"}}

	fb := NewLLMFallback(primary, "solar", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	req := llm.CompletionRequest{SystemPrompt: "coach", Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}}
	resp, err := fb.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from openai" {
		t.Errorf("content = %q, want %q", resp.Content, "from openai")
	}
	calls := secondary.Calls()
	if len(calls) != 1 || calls[0].Req.SystemPrompt != "coach" {
		t.Errorf("secondary calls = %+v, want the same request forwarded once", calls)
	}
}

func TestLLMFallback_Complete_AllFail(t *testing.T) {
	t.Parallel()

	fb := NewLLMFallback(&llmmock.Provider{CompleteErr: errors.New("down")}, "solar", FallbackConfig{})
	fb.AddFallback("openai", &llmmock.Provider{CompleteErr: errors.New("down too")})

	if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_Info(t *testing.T) {
	t.Parallel()

	fb := NewLLMFallback(&llmmock.Provider{InfoValue: llm.Info{Name: "solar", Model: "solar-1-mini-chat"}}, "solar", FallbackConfig{})
	if got := fb.Info(); got.Name != "solar" {
		t.Errorf("Info().Name = %q, want solar", got.Name)
	}
	if st := fb.Status(); len(st) != 1 || st[0].State != "closed" {
		t.Errorf("Status() = %+v, want one closed entry", st)
	}
}
