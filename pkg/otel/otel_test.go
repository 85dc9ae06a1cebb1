package otel

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"projectflow/pkg/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(config.OtelConfig{Enabled: false}, "test", zap.NewNop())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	shutdown()

	_, span := StartSpan(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Error("no-op provider should not sample")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "ParentBased{root:AlwaysOnSampler"},
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := sampler(tt.ratio).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}

func TestMQHeaders_RoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := map[string]interface{}{}
	InjectHeaders(ctx, headers)
	if _, ok := headers["traceparent"]; !ok {
		t.Fatalf("traceparent not injected: %v", headers)
	}

	got := trace.SpanContextFromContext(ExtractHeaders(context.Background(), headers))
	if got.TraceID() != span.SpanContext().TraceID() {
		t.Errorf("trace id = %s, want %s", got.TraceID(), span.SpanContext().TraceID())
	}
}

func TestDBSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	prev := tracer
	tracer = tp.Tracer("test")
	defer func() { tracer = prev }()

	_, span := DBSpan(context.Background(), "insert", "notifications", "INSERT INTO notifications ...")
	EndDBSpan(span, errors.New("duplicate key"))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Name() != "db.insert notifications" {
		t.Errorf("name = %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status())
	}
}
