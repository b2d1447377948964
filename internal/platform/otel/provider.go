// Package otel sets up OpenTelemetry tracing for the commands.
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables read by Setup.
const (
	EnvEndpoint = "IRTAG_OTEL_ENDPOINT"
	EnvEnabled  = "IRTAG_OTEL_ENABLED"
)

// Setup registers a global tracer provider exporting over OTLP/HTTP.
//
// Tracing is opt-in: with IRTAG_OTEL_ENDPOINT empty or IRTAG_OTEL_ENABLED set to
// "false" nothing is registered and the returned shutdown does nothing. attrs are
// added to the resource, so every span carries them.
func Setup(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if strings.EqualFold(os.Getenv(EnvEnabled), "false") {
		return noop, nil
	}
	endpoint := os.Getenv(EnvEndpoint)
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, err
	}
	res, err := Resource(ctx, serviceName, attrs...)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Resource describes one unit: the service name, the host it runs on and attrs.
func Resource(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithAttributes(attrs...),
	)
}
