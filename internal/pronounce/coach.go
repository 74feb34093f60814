package pronounce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MrWong99/mouthsync/pkg/provider/llm"
)

const (
	defaultTemperature = 0.7
	defaultLLMTimeout  = 20 * time.Second

	defaultSummary = "전반적인 발음 경향을 분석한 결과입니다."
)

var defaultTips = []string{
	"조금 더 천천히, 입 모양을 크게 벌려서 발음해 보세요.",
	"문장을 짧게 나눠서 여러 번 반복해서 읽어보세요.",
}

// jsonObject matches from the first '{' to the last '}'.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Evaluation is the full result returned to clients.
type Evaluation struct {
	RecognizedText string   `json:"recognized_text"`
	Report         Report   `json:"report"`
	AIFeedback     Feedback `json:"ai_feedback"`
}

// Coach turns a Report into Feedback. It is safe for concurrent use.
type Coach struct {
	provider    llm.Provider
	temperature float64
	timeout     time.Duration
}

// CoachOption configures a Coach.
type CoachOption func(*Coach)

// WithLLM enables LLM feedback through p. A nil provider keeps the coach
// rule-based.
func WithLLM(p llm.Provider) CoachOption {
	return func(c *Coach) { c.provider = p }
}

// WithTemperature sets the sampling temperature. Defaults to 0.7.
func WithTemperature(t float64) CoachOption {
	return func(c *Coach) { c.temperature = t }
}

// WithLLMTimeout bounds each LLM call. Zero disables the bound.
func WithLLMTimeout(d time.Duration) CoachOption {
	return func(c *Coach) { c.timeout = d }
}

// NewCoach creates a Coach. Without WithLLM it only produces rule-based
// feedback.
func NewCoach(opts ...CoachOption) *Coach {
	c := &Coach{temperature: defaultTemperature, timeout: defaultLLMTimeout}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UsesLLM reports whether the coach has an LLM configured.
func (c *Coach) UsesLLM() bool {
	return c.provider != nil
}

// Evaluate scores recognized against reference and attaches feedback.
func (c *Coach) Evaluate(ctx context.Context, reference, recognized string, duration float64) Evaluation {
	rep := Evaluate(reference, recognized, duration)
	return Evaluation{
		RecognizedText: recognized,
		Report:         rep,
		AIFeedback:     c.Feedback(ctx, reference, recognized, rep),
	}
}

// Feedback asks the LLM for coaching. Any failure, including an unparsable
// reply, falls back to RuleFeedback.
func (c *Coach) Feedback(ctx context.Context, reference, recognized string, rep Report) Feedback {
	if c.provider == nil {
		return RuleFeedback(reference, recognized, rep)
	}
	fb, err := c.llmFeedback(ctx, reference, recognized, rep)
	if err != nil {
		slog.Warn("pronounce: llm feedback failed, using rules", "provider", c.provider.Info().Name, "error", err)
		return RuleFeedback(reference, recognized, rep)
	}
	return fb
}

func (c *Coach) llmFeedback(ctx context.Context, reference, recognized string, rep Report) (Feedback, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt, err := userPrompt(reference, recognized, rep)
	if err != nil {
		return Feedback{}, err
	}
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature:  c.temperature,
	})
	if err != nil {
		return Feedback{}, err
	}
	if resp == nil {
		return Feedback{}, errors.New("pronounce: empty llm response")
	}
	return parseFeedback(resp.Content, reference, recognized)
}

// llmReply is the JSON object the model is asked to produce.
type llmReply struct {
	IntendedSentence    string   `json:"intended_sentence"`
	Summary             string   `json:"summary"`
	Tips                []string `json:"tips"`
	Level               string   `json:"level"`
	RecommendedSentence string   `json:"recommended_sentence"`
}

// parseFeedback extracts the first JSON object from content and fills in
// defaults for missing fields.
func parseFeedback(content, reference, recognized string) (Feedback, error) {
	raw := content
	if m := jsonObject.FindString(content); m != "" {
		raw = m
	}
	var r llmReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Feedback{}, fmt.Errorf("pronounce: parse llm reply: %w", err)
	}

	fb := Feedback{
		Summary:             r.Summary,
		Tips:                r.Tips,
		Level:               r.Level,
		RecommendedSentence: r.RecommendedSentence,
		IntendedSentence:    strings.TrimSpace(r.IntendedSentence),
		Source:              SourceLLM,
	}
	if fb.IntendedSentence == "" {
		fb.IntendedSentence = intendedSentence(reference, recognized)
	}
	if fb.Summary == "" {
		fb.Summary = defaultSummary
	}
	if len(fb.Tips) == 0 {
		fb.Tips = append([]string(nil), defaultTips...)
	}
	if fb.Level == "" {
		fb.Level = LevelIntermediate
	}
	if fb.RecommendedSentence == "" {
		fb.RecommendedSentence = fb.IntendedSentence
	}
	return fb, nil
}
