package logging

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type TracingOptions struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// SetupTracing installs a global tracer provider and the W3C propagator.
// Spans are always recorded so trace ids reach the database session; they are
// exported over OTLP/HTTP only when tracing is enabled. The returned func
// flushes and shuts the provider down.
func SetupTracing(ctx context.Context, opts TracingOptions, logger *logrus.Entry) (func(), error) {
	if logger == nil {
		logger = Nop()
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if opts.Enabled {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(opts.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, errors.Wrap(err, "create otlp trace exporter")
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
		logger.WithField("endpoint", opts.Endpoint).Info("tracing: exporting spans")
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Error("tracing: shutdown failed")
		}
	}, nil
}
