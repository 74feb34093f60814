package pronounce_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/mouthsync/internal/pronounce"
	"github.com/MrWong99/mouthsync/pkg/provider/llm"
	llmmock "github.com/MrWong99/mouthsync/pkg/provider/llm/mock"
)

func TestRuleFeedback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ref, hyp string
		rep      pronounce.Report
		want     pronounce.Feedback
	}{
		{
			name: "accurate at a steady pace",
			ref:  " 안녕하세요 ", hyp: "안녕하세요",
			rep: pronounce.Report{Overall: 100, Accuracy: 100, Fluency: pronounce.Fluency{Score: 100, SyllablesPerSecond: 4}},
			want: pronounce.Feedback{
				Summary:             "발음이 전반적으로 매우 정확해요. 자연스럽게 잘 읽어주셨어요.",
				Tips:                []string{"말 속도가 적당해서 듣기 편해요. 지금 속도를 유지하면서 발음만 조금 더 또박또박 하면 좋아요."},
				Level:               pronounce.LevelAdvanced,
				RecommendedSentence: "안녕하세요",
				IntendedSentence:    "안녕하세요",
				Source:              pronounce.SourceRules,
			},
		},
		{
			name: "mostly right but slow",
			ref:  "안녕하세요", hyp: "안녕하세",
			rep: pronounce.Report{Overall: 80, Accuracy: 80, Fluency: pronounce.Fluency{Score: 80, SyllablesPerSecond: 2}},
			want: pronounce.Feedback{
				Summary: "전체적으로 잘 읽었지만, 몇몇 부분에서 다소 부정확한 발음이 보여요.",
				Tips: []string{
					"스크립트를 눈으로 한 번 더 따라 읽으면서, 글자를 하나씩 또박또박 소리 내 보세요.",
					"말 속도가 조금 느린 편이에요. 문장을 더 끊김 없이 이어서 말해 보세요.",
				},
				Level:               pronounce.LevelIntermediate,
				RecommendedSentence: "안녕하세요",
				IntendedSentence:    "안녕하세요",
				Source:              pronounce.SourceRules,
			},
		},
		{
			name: "inaccurate and fast without reference",
			ref:  "", hyp: " 뭐라고요 ",
			rep: pronounce.Report{Overall: 40, Accuracy: 50, Fluency: pronounce.Fluency{Score: 20, SyllablesPerSecond: 9}},
			want: pronounce.Feedback{
				Summary: "스크립트와 다른 부분이 꽤 있어서, 조금 더 천천히 따라 읽어보면 좋아요.",
				Tips: []string{
					"스크립트를 눈으로 한 번 더 따라 읽으면서, 글자를 하나씩 또박또박 소리 내 보세요.",
					"조금 빠르게 말하는 경향이 있어요. 한 단어씩 분리해서 더 또렷하게 읽어보면 좋습니다.",
				},
				Level:               pronounce.LevelBeginner,
				RecommendedSentence: "뭐라고요",
				IntendedSentence:    "뭐라고요",
				Source:              pronounce.SourceRules,
			},
		},
		{
			name: "accurate with no timing",
			ref:  "안녕하세요", hyp: "안녕하세요",
			rep: pronounce.Report{Overall: 70, Accuracy: 100},
			want: pronounce.Feedback{
				Summary:             "발음이 전반적으로 매우 정확해요. 자연스럽게 잘 읽어주셨어요.",
				Tips:                []string{"지금처럼 연습을 꾸준히 이어가면 발음이 더 자연스러워질 거예요!"},
				Level:               pronounce.LevelBeginner,
				RecommendedSentence: "안녕하세요",
				IntendedSentence:    "안녕하세요",
				Source:              pronounce.SourceRules,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := pronounce.RuleFeedback(tt.ref, tt.hyp, tt.rep)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("RuleFeedback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoach_WithoutLLMUsesRules(t *testing.T) {
	t.Parallel()

	c := pronounce.NewCoach()
	if c.UsesLLM() {
		t.Fatal("UsesLLM() = true for a coach without provider")
	}
	ev := c.Evaluate(context.Background(), "안녕하세요", "안녕하세요", 1.25)
	if ev.AIFeedback.Source != pronounce.SourceRules {
		t.Errorf("Source = %q, want rules", ev.AIFeedback.Source)
	}
	if ev.RecognizedText != "안녕하세요" || ev.Report.Overall != 100 {
		t.Errorf("Evaluate() = %+v", ev)
	}
}

func TestCoach_LLMFeedback(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		InfoValue: llm.Info{Name: "solar", Model: "solar-1-mini-chat"},
		CompleteResponse: &llm.CompletionResponse{Content: "Here you go:\n```json\n" +
			`{"summary":"1) 정확도: 좋아요","tips":["받침을 또렷하게"],"level":"고급"}` +
			"\n```"},
	}
	c := pronounce.NewCoach(pronounce.WithLLM(p))

	got := c.Feedback(context.Background(), " 안녕하세요 ", "안녕하세", pronounce.Report{Overall: 86, Accuracy: 80})
	want := pronounce.Feedback{
		Summary:             "1) 정확도: 좋아요",
		Tips:                []string{"받침을 또렷하게"},
		Level:               pronounce.LevelAdvanced,
		RecommendedSentence: "안녕하세요",
		IntendedSentence:    "안녕하세요",
		Source:              pronounce.SourceLLM,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Feedback mismatch (-want +got):\n%s", diff)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(calls))
	}
	req := calls[0].Req
	if req.SystemPrompt == "" {
		t.Error("request has no system prompt")
	}
	if req.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", req.Temperature)
	}
	if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "안녕하세") {
		t.Errorf("user message does not carry the recognised text: %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, `"overall":86`) {
		t.Errorf("user message does not carry the report JSON: %q", req.Messages[0].Content)
	}
}

func TestCoach_LLMDefaultsMissingFields(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"intended_sentence":"저는 학생입니다"}`},
	}
	c := pronounce.NewCoach(pronounce.WithLLM(p))

	got := c.Feedback(context.Background(), "저는 학생입니다", "저는 학생임니다", pronounce.Report{})
	want := pronounce.Feedback{
		Summary: "전반적인 발음 경향을 분석한 결과입니다.",
		Tips: []string{
			"조금 더 천천히, 입 모양을 크게 벌려서 발음해 보세요.",
			"문장을 짧게 나눠서 여러 번 반복해서 읽어보세요.",
		},
		Level:               pronounce.LevelIntermediate,
		RecommendedSentence: "저는 학생입니다",
		IntendedSentence:    "저는 학생입니다",
		Source:              pronounce.SourceLLM,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Feedback mismatch (-want +got):\n%s", diff)
	}
}

func TestCoach_LLMFailureFallsBackToRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    *llmmock.Provider
	}{
		{"provider error", &llmmock.Provider{CompleteErr: errors.New("upstream 500")}},
		{"not json", &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "죄송합니다"}}},
		{"nil response", &llmmock.Provider{}},
		{"tips of wrong type", &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: `{"tips":"one"}`}}},
	}
	rep := pronounce.Report{Overall: 86, Accuracy: 80, Fluency: pronounce.Fluency{Score: 100, SyllablesPerSecond: 4}}
	want := pronounce.RuleFeedback("안녕하세요", "안녕하세", rep)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := pronounce.NewCoach(pronounce.WithLLM(tt.p))
			got := c.Feedback(context.Background(), "안녕하세요", "안녕하세", rep)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Feedback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
