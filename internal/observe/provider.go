package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Resource attribute keys describing how this instance is configured. They
// appear on target_info in /metrics.
const (
	attrAPIVersion  = "mouthsync.api.version"
	attrSTTProvider = "mouthsync.stt.provider"
	attrLLMProvider = "mouthsync.llm.provider"
)

// ProviderConfig configures the global meter and tracer providers.
type ProviderConfig struct {
	// ServiceName defaults to "mouthsync".
	ServiceName    string
	ServiceVersion string

	// APIVersion, STTProvider and LLMProvider are attached to the resource
	// when set.
	APIVersion  string
	STTProvider string
	LLMProvider string

	// Registerer receives the Prometheus collector. Default:
	// prometheus.DefaultRegisterer, which promhttp serves on /metrics.
	Registerer prometheus.Registerer

	// TraceExporter receives finished spans. Without one spans are recorded
	// for log correlation only.
	TraceExporter sdktrace.SpanExporter
}

func (c ProviderConfig) resource(ctx context.Context) (*resource.Resource, error) {
	name := c.ServiceName
	if name == "" {
		name = "mouthsync"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(c.ServiceVersion),
	}
	for key, v := range map[string]string{
		attrAPIVersion:  c.APIVersion,
		attrSTTProvider: c.STTProvider,
		attrLLMProvider: c.LLMProvider,
	} {
		if v != "" {
			attrs = append(attrs, attribute.String(key, v))
		}
	}
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}

// InitProvider installs the global OTel providers: metrics bridged into a
// Prometheus registry and an SDK tracer. The returned function flushes and
// stops both.
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		// Spans first so the final batch is exported before metrics stop.
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
