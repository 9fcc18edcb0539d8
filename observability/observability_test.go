package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func newManualMetrics(t *testing.T) (*ClientMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewClientMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewClientMetrics error: %v", err)
	}
	return m, reader
}

// sumOf returns the total of an int64 sum instrument across data points.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 || !cfg.Insecure || !cfg.Enabled {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("rate %v: expected %s, got %s", tc.rate, tc.want, got)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource error: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "service.name" && kv.Value.AsString() == "svc" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected service.name=svc in %v", res.Attributes())
	}
}

func TestClientMetrics_NilIsNoop(t *testing.T) {
	var m *ClientMetrics
	ctx := context.Background()
	m.CallStarted(ctx, "I", "m")
	m.Attempt(ctx, "I", "m")
	m.Retry(ctx, "I", "m")
	m.CallFinished(ctx, "I", "m", OutcomeSuccess, time.Millisecond)
}

func TestClientMetrics_NoopMeter(t *testing.T) {
	m, err := NewClientMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil || m == nil {
		t.Fatalf("expected metrics, got %v, %v", m, err)
	}
}

func TestCall_RecordsSpanAndMetrics(t *testing.T) {
	rec := installRecorder(t)
	metrics, reader := newManualMetrics(t)

	ctx, call := StartCall(context.Background(), metrics, "ItemService", "Get", "inv-1")
	call.Attempt(ctx, 1)
	call.Retry(ctx, 1, fmt.Errorf("refused"))
	call.Attempt(ctx, 2)
	call.End(ctx, OutcomeError, fmt.Errorf("still refused"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanInvoke {
		t.Errorf("expected span %s, got %s", SpanInvoke, span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status())
	}
	if len(span.Events()) < 3 {
		t.Errorf("expected attempt/retry events, got %d", len(span.Events()))
	}

	if got := sumOf(t, reader, "restkit.client.attempts"); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	if got := sumOf(t, reader, "restkit.client.retries"); got != 1 {
		t.Errorf("expected 1 retry, got %d", got)
	}
	if got := sumOf(t, reader, "restkit.client.calls"); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
	if got := sumOf(t, reader, "restkit.client.in_flight"); got != 0 {
		t.Errorf("expected no calls in flight, got %d", got)
	}
}

func TestCall_Cancelled(t *testing.T) {
	metrics, reader := newManualMetrics(t)
	ctx, call := StartCall(context.Background(), metrics, "I", "m", "inv-2")
	call.End(ctx, OutcomeCancelled, nil)
	if got := sumOf(t, reader, "restkit.client.cancellations"); got != 1 {
		t.Errorf("expected 1 cancellation, got %d", got)
	}
}

func TestTracer(t *testing.T) {
	if Tracer("test-tracer") == nil {
		t.Fatal("expected non-nil tracer")
	}
	if Meter("test-meter") == nil {
		t.Fatal("expected non-nil meter")
	}
}

func TestSetSpanAttributeAndError(t *testing.T) {
	rec := installRecorder(t)

	ctx, span := StartSpan(context.Background(), "test-attrs")
	SetSpanAttribute(ctx, "string-key", "value")
	SetSpanAttribute(ctx, "int-key", 42)
	SetSpanAttribute(ctx, "int64-key", int64(100))
	SetSpanAttribute(ctx, "float-key", 3.14)
	SetSpanAttribute(ctx, "bool-key", true)
	SetSpanAttribute(ctx, "string-slice-key", []string{"a", "b"})
	SetSpanAttribute(ctx, "unsupported-key", struct{}{})
	SetSpanError(ctx, fmt.Errorf("test error"))
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if n := len(ended[0].Attributes()); n != 6 {
		t.Errorf("expected 6 attributes, got %d", n)
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("expected error event, got %d events", len(ended[0].Events()))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status())
	}
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, fmt.Errorf("no span error"))
	if _, ok := toAttribute("k", struct{}{}); ok {
		t.Error("expected unsupported value to be dropped")
	}
}

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	for _, rate := range []float64{1.0, 0.5, 0} {
		cfg := DefaultTracerConfig("test")
		cfg.SampleRate = rate
		tp, err := InitTracer(context.Background(), cfg)
		if err != nil {
			t.Fatalf("InitTracer error: %v", err)
		}
		shutdown(tp.Shutdown)
	}
}

func TestInitMeter(t *testing.T) {
	prev := otel.GetMeterProvider()
	defer otel.SetMeterProvider(prev)

	cfg := DefaultMeterConfig("test")
	cfg.Insecure = false
	mp, err := InitMeter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitMeter error: %v", err)
	}
	shutdown(mp.Shutdown)
}

// shutdown bounds provider shutdown; nothing listens on the OTLP endpoint.
func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = fn(ctx)
}
