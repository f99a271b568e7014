package telemetry

import (
	"context"
	"errors"

	"github.com/daehee87/fuzzing-bot/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

type Telemetry interface {
	GetTracer() trace.Tracer
	GetLogger() log.Logger
}

type TelemetryImpl struct {
	tracer trace.Tracer
	logger log.Logger
}

type TelemetryParams struct {
	fx.In
	Lifecyle fx.Lifecycle
	Config   *config.AppConfig
}

// NewTelemetry returns nil when no OTLP endpoint is configured. Bots usually run
// on volunteer machines without a collector.
func NewTelemetry(p TelemetryParams) (Telemetry, error) {
	if p.Config.OtlpEndpoint == "" {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		attribute.String("service.name", p.Config.ServiceName),
	)

	traceProvider, err := newTraceProvider(ctx, p.Config.OtlpEndpoint, res)
	if err != nil {
		cancel()
		return nil, err
	}
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// the log exporter is optional, spans are still useful without it
	logProvider := newLogProvider(ctx, p.Config.OtlpEndpoint, res)

	impl := &TelemetryImpl{tracer: traceProvider.Tracer(p.Config.ServiceName)}
	if logProvider != nil {
		impl.logger = logProvider.Logger(p.Config.ServiceName)
	}

	p.Lifecyle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			defer cancel()
			err := traceProvider.Shutdown(ctx)
			if logProvider != nil {
				err = errors.Join(err, logProvider.Shutdown(ctx))
			}
			return err
		},
	})

	return impl, nil
}

func newTraceProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint))
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func newLogProvider(ctx context.Context, endpoint string, res *resource.Resource) *sdklog.LoggerProvider {
	exp, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(endpoint))
	if err != nil {
		return nil
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
}

func (t *TelemetryImpl) GetTracer() trace.Tracer {
	return t.tracer
}

func (t *TelemetryImpl) GetLogger() log.Logger {
	return t.logger
}
