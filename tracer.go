package codeloop

import (
	"context"
	"time"
)

// Tracer opens spans around a run and each of its attempts. Loop skips
// tracing entirely when none is set; observer.NewTracer is the OTEL-backed
// implementation.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...SpanAttr) (context.Context, Span)
}

// Span is one traced operation. End must be called exactly once.
type Span interface {
	SetAttr(attrs ...SpanAttr)
	Event(name string, attrs ...SpanAttr)
	// Error marks the span failed.
	Error(err error)
	End()
}

// SpanAttr is a key-value pair on a span or event. Value is one of string,
// int, bool or time.Duration.
type SpanAttr struct {
	Key   string
	Value any
}

func StringAttr(k, v string) SpanAttr { return SpanAttr{Key: k, Value: v} }

func IntAttr(k string, v int) SpanAttr { return SpanAttr{Key: k, Value: v} }

func BoolAttr(k string, v bool) SpanAttr { return SpanAttr{Key: k, Value: v} }

// DurationAttr is exported by observer in milliseconds.
func DurationAttr(k string, d time.Duration) SpanAttr { return SpanAttr{Key: k, Value: d} }
