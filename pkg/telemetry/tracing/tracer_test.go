package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/edge/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newRecordingTracer returns a tracer whose spans land in the recorder.
func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	// New installs the W3C propagator.
	if _, err := New(&config.TracingConfig{Enabled: false}); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return &Tracer{
		config:   &config.TracingConfig{Enabled: true},
		tracer:   provider.Tracer("test"),
		provider: provider,
		enabled:  true,
	}, rec
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled", config: &config.TracingConfig{Enabled: false}},
		{
			name: "enabled otlp",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerParentRatio,
				SampleRatio: 0.5,
				Endpoint:    "localhost:4317",
				ServiceName: "edge-test",
				OTLP:        config.OTLPConfig{Insecure: true, Timeout: time.Second},
			},
		},
		{
			name: "unknown sampler",
			config: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "sometimes",
				Endpoint: "localhost:4317",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tracer.Enabled() != tt.config.Enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestDisabledTracerProducesNoTraceID(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, span := tracer.Start(context.Background(), "noop")
	defer span.End()

	if TraceID(ctx) != "" || SpanID(ctx) != "" {
		t.Errorf("expected empty IDs from noop tracer, got %q/%q", TraceID(ctx), SpanID(ctx))
	}
}

func TestSetErrorAndStatus(t *testing.T) {
	tracer, rec := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "upstream")
	SetError(span, errors.New("connection refused"))
	span.End()

	_, ok := tracer.Start(context.Background(), "ok")
	SetStatus(ok, 200)
	ok.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected recorded error event")
	}
	if spans[1].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[1].Status().Code)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 1, false},
		{SamplerNever, 1, false},
		{SamplerRatio, 0.25, false},
		{SamplerParentRatio, 0.25, false},
		{"", 1, false},
		{SamplerRatio, 1.5, true},
		{"bogus", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
			}
			if err == nil && s == nil {
				t.Error("expected sampler")
			}
		})
	}
}
