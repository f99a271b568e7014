package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// SpanAttributes are the campaign fields attached to every span. Unset fields
// are not exported.
type SpanAttributes struct {
	ActionCategory string

	Iteration  optional[string] // campaign.iteration
	Project    optional[string] // campaign.project
	Fuzzer     optional[string] // campaign.fuzzer
	Sanitizer  optional[string] // campaign.sanitizer
	CrashCount optional[int]    // campaign.crash_count
}

func NewSpanAttributes(actionCategory ActionCategory) *SpanAttributes {
	return &SpanAttributes{ActionCategory: actionCategory.String()}
}

func EmptySpanAttributes() *SpanAttributes {
	return &SpanAttributes{}
}

// Merge only fills fields that are unset here. ActionCategory always follows other.
func (o *SpanAttributes) Merge(other *SpanAttributes) {
	if other == nil {
		return
	}
	if other.ActionCategory != "" {
		o.ActionCategory = other.ActionCategory
	}
	mergeOptional(&o.Iteration, &other.Iteration)
	mergeOptional(&o.Project, &other.Project)
	mergeOptional(&o.Fuzzer, &other.Fuzzer)
	mergeOptional(&o.Sanitizer, &other.Sanitizer)
	mergeOptional(&o.CrashCount, &other.CrashCount)
}

func (o *SpanAttributes) WithIteration(val string) *SpanAttributes {
	o.Iteration.Set(val)
	return o
}

func (o *SpanAttributes) WithProject(val string) *SpanAttributes {
	o.Project.Set(val)
	return o
}

func (o *SpanAttributes) WithFuzzer(val string) *SpanAttributes {
	o.Fuzzer.Set(val)
	return o
}

func (o *SpanAttributes) WithSanitizer(val string) *SpanAttributes {
	o.Sanitizer.Set(val)
	return o
}

func (o *SpanAttributes) WithCrashCount(val int) *SpanAttributes {
	o.CrashCount.Set(val)
	return o
}

func (o SpanAttributes) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if o.ActionCategory != "" {
		attrs = append(attrs, attribute.String("campaign.action.category", o.ActionCategory))
	}
	if o.Iteration.set {
		attrs = append(attrs, attribute.String("campaign.iteration", o.Iteration.val))
	}
	if o.Project.set {
		attrs = append(attrs, attribute.String("campaign.project", o.Project.val))
	}
	if o.Fuzzer.set {
		attrs = append(attrs, attribute.String("campaign.fuzzer", o.Fuzzer.val))
	}
	if o.Sanitizer.set {
		attrs = append(attrs, attribute.String("campaign.sanitizer", o.Sanitizer.val))
	}
	if o.CrashCount.set {
		attrs = append(attrs, attribute.Int("campaign.crash_count", o.CrashCount.val))
	}
	return attrs
}

type EventAttributes []attribute.KeyValue

// CrashObserved describes a crash file that appeared while a fuzzer was running.
func CrashObserved(file string) EventAttributes {
	return EventAttributes{attribute.String("crash.file", file)}
}

type optional[T any] struct {
	val T
	set bool
}

func (o *optional[T]) Set(val T) { o.val = val; o.set = true }

func mergeOptional[T any](target, source *optional[T]) {
	if !target.set && source.set {
		target.val = source.val
		target.set = true
	}
}
