package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// useTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test. Tests using it must not run in parallel.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLogs redirects the default logger into a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestCorrelationID(t *testing.T) {
	useTestTracer(t)

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID without span = %q, want empty", got)
	}

	seen := make(map[string]bool)
	for range 20 {
		ctx, span := StartSpan(context.Background(), "op")
		cid := CorrelationID(ctx)
		span.End()
		if len(cid) != 32 || strings.Trim(cid, "0123456789abcdef") != "" {
			t.Fatalf("CorrelationID = %q, want 32 hex chars", cid)
		}
		if seen[cid] {
			t.Fatalf("duplicate correlation ID %s", cid)
		}
		seen[cid] = true
	}
}

func TestStartProviderSpan(t *testing.T) {
	exp := useTestTracer(t)

	_, span := StartProviderSpan(context.Background(), "stt", "whisper")
	EndSpan(span, nil)

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "stt whisper" || got.SpanKind != trace.SpanKindClient {
		t.Errorf("span = %q kind %v, want client span %q", got.Name, got.SpanKind, "stt whisper")
	}
	want := map[attribute.Key]string{
		"mouthsync.provider.kind": "stt",
		"mouthsync.provider.name": "whisper",
	}
	for _, kv := range got.Attributes {
		if w, ok := want[kv.Key]; ok && kv.Value.AsString() != w {
			t.Errorf("%s = %q, want %q", kv.Key, kv.Value.AsString(), w)
		}
		delete(want, kv.Key)
	}
	if len(want) != 0 {
		t.Errorf("missing attributes %v", want)
	}
	if got.Status.Code != codes.Unset {
		t.Errorf("status = %v, want unset for a successful call", got.Status.Code)
	}
}

func TestEndSpan_RecordsError(t *testing.T) {
	exp := useTestTracer(t)

	_, span := StartSpan(context.Background(), "practice.run")
	EndSpan(span, errors.New("model not loaded"))

	got := exp.GetSpans()[0]
	if got.Status.Code != codes.Error || got.Status.Description != "model not loaded" {
		t.Errorf("status = %+v, want error", got.Status)
	}
	if len(got.Events) != 1 || got.Events[0].Name != "exception" {
		t.Errorf("events = %+v, want one exception event", got.Events)
	}
}

func TestLogger(t *testing.T) {
	useTestTracer(t)
	buf := captureLogs(t)

	Logger(context.Background()).Info("plain")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log without span carries trace_id: %s", buf)
	}
	buf.Reset()

	ctx, span := StartSpan(context.Background(), "log")
	defer span.End()
	Logger(ctx).Info("traced")
	for _, key := range []string{"trace_id=" + CorrelationID(ctx), "span_id="} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("log output missing %q: %s", key, buf)
		}
	}
}
