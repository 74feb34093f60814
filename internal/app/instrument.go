package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/pkg/provider/llm"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

// instrumentedSTT traces each call and records latency and request counts
// for one STT backend.
type instrumentedSTT struct {
	name    string
	inner   stt.Provider
	metrics *observe.Metrics
}

var (
	_ stt.Provider         = (*instrumentedSTT)(nil)
	_ stt.ReadinessChecker = (*instrumentedSTT)(nil)
)

func newInstrumentedSTT(name string, p stt.Provider, m *observe.Metrics) *instrumentedSTT {
	return &instrumentedSTT{name: name, inner: p, metrics: m}
}

func (s *instrumentedSTT) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	ctx, span := observe.StartProviderSpan(ctx, "stt", s.name)
	start := time.Now()
	res, err := s.inner.Transcribe(ctx, req)
	observe.EndSpan(span, err)
	s.metrics.STTDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(observe.Attr("provider", s.name)))
	record(ctx, s.metrics, s.name, "stt", err)
	return res, err
}

func (s *instrumentedSTT) Info() stt.Info { return s.inner.Info() }

// Ready delegates to the wrapped provider when it can report readiness.
func (s *instrumentedSTT) Ready(ctx context.Context) error {
	if rc, ok := s.inner.(stt.ReadinessChecker); ok {
		return rc.Ready(ctx)
	}
	return nil
}

// instrumentedLLM records latency and request counts for one LLM backend.
type instrumentedLLM struct {
	name    string
	inner   llm.Provider
	metrics *observe.Metrics
}

var _ llm.Provider = (*instrumentedLLM)(nil)

func newInstrumentedLLM(name string, p llm.Provider, m *observe.Metrics) *instrumentedLLM {
	return &instrumentedLLM{name: name, inner: p, metrics: m}
}

func (l *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := observe.StartProviderSpan(ctx, "llm", l.name)
	start := time.Now()
	resp, err := l.inner.Complete(ctx, req)
	observe.EndSpan(span, err)
	l.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(observe.Attr("provider", l.name)))
	record(ctx, l.metrics, l.name, "llm", err)
	return resp, err
}

func (l *instrumentedLLM) Info() llm.Info { return l.inner.Info() }

func record(ctx context.Context, m *observe.Metrics, provider, kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, kind)
	}
	m.RecordProviderRequest(ctx, provider, kind, status)
}
