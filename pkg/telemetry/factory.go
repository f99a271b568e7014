package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
)

type Tracer interface {
	Start()
	WithAttributes(attributes *SpanAttributes) Tracer
	AddEvent(name string, attributes EventAttributes)
	SetStatus(code codes.Code, message string)
	Spawn(spanName string) Tracer
	End()
}

type TracerKey struct{} // TracerKey is used to store and retrieve the tracer from the context

type TracerFactory struct {
	telemetry Telemetry
}

type TracerFactoryParams struct {
	fx.In
	Telemetry Telemetry `optional:"true"`
}

func NewTracerFactory(p TracerFactoryParams) *TracerFactory {
	return &TracerFactory{telemetry: p.Telemetry}
}

// NewTracer returns a DummyTracer when telemetry is not enabled.
func (t *TracerFactory) NewTracer(ctx context.Context, spanName string) Tracer {
	if t == nil || t.telemetry == nil || t.telemetry.GetTracer() == nil {
		return &DummyTracer{}
	}
	return NewTelemetryTracer(ctx, t.telemetry.GetTracer(), spanName)
}

// FromContext returns the tracer stored under TracerKey, or a DummyTracer.
func FromContext(ctx context.Context) Tracer {
	if tracer, ok := ctx.Value(TracerKey{}).(Tracer); ok && tracer != nil {
		return tracer
	}
	return &DummyTracer{}
}

// A dummy tracer that does nothing when telemetry is not enabled
type DummyTracer struct{}

func (t *DummyTracer) Start()                                           {}
func (t *DummyTracer) WithAttributes(attributes *SpanAttributes) Tracer { return t }
func (t *DummyTracer) AddEvent(name string, attributes EventAttributes) {}
func (t *DummyTracer) SetStatus(code codes.Code, message string)        {}
func (t *DummyTracer) Spawn(spanName string) Tracer                     { return t }
func (t *DummyTracer) End()                                             {}
