package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Call tracks one client method invocation: its span and its metrics.
type Call struct {
	Interface    string
	Method       string
	InvocationID string
	StartTime    time.Time

	span    trace.Span
	metrics *ClientMetrics
}

// StartCall opens the invocation span and marks the call in flight.
// metrics may be nil.
func StartCall(ctx context.Context, metrics *ClientMetrics, iface, method, invocationID string) (context.Context, *Call) {
	ctx, span := StartSpan(ctx, SpanInvoke, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(AttrInterface, iface),
		attribute.String(AttrMethod, method),
		attribute.String(AttrInvocationID, invocationID),
	)
	metrics.CallStarted(ctx, iface, method)
	return ctx, &Call{
		Interface:    iface,
		Method:       method,
		InvocationID: invocationID,
		StartTime:    time.Now(),
		span:         span,
		metrics:      metrics,
	}
}

// Attempt records a send of the given attempt number.
func (c *Call) Attempt(ctx context.Context, attempt int) {
	c.span.AddEvent("attempt", trace.WithAttributes(attribute.Int(AttrAttempt, attempt)))
	c.metrics.Attempt(ctx, c.Interface, c.Method)
}

// Retry records that attempt failed with err and will be repeated.
func (c *Call) Retry(ctx context.Context, attempt int, err error) {
	c.span.AddEvent("retry", trace.WithAttributes(
		attribute.Int(AttrAttempt, attempt),
		attribute.String(AttrErrorMessage, err.Error()),
	))
	c.metrics.Retry(ctx, c.Interface, c.Method)
}

// End closes the span and records the outcome.
func (c *Call) End(ctx context.Context, outcome string, err error) {
	d := c.Duration()
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}
	c.span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.Int64(AttrDurationMs, d.Milliseconds()),
	)
	c.span.End()
	c.metrics.CallFinished(ctx, c.Interface, c.Method, outcome, d)
}

// Duration returns the elapsed time since the call started.
func (c *Call) Duration() time.Duration {
	return time.Since(c.StartTime)
}
