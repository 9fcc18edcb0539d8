// Package observability wires restkit into OpenTelemetry.
//
// InitTracer and InitMeter install OTLP/HTTP providers globally:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("catalog-client"))
//	defer tp.Shutdown(ctx)
//
// The invocation engine opens one span per method call with StartCall and
// records ClientMetrics: calls by outcome, transport attempts, retries,
// cancellations, in-flight calls and call duration.
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("restkit"))
package observability
