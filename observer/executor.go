package observer

import (
	"context"
	"time"

	"github.com/nevindra/codeloop"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedExecutor wraps a codeloop.Executor with OTEL instrumentation.
type ObservedExecutor struct {
	inner codeloop.Executor
	inst  *Instruments
}

// WrapExecutor returns an instrumented executor.
func WrapExecutor(inner codeloop.Executor, inst *Instruments) *ObservedExecutor {
	return &ObservedExecutor{inner: inner, inst: inst}
}

func (o *ObservedExecutor) Execute(ctx context.Context, code string, lang codeloop.Language) codeloop.ExecResult {
	ctx, span := o.inst.Tracer.Start(ctx, "code.execute", trace.WithAttributes(
		AttrCodeLanguage.String(lang.String()),
	))
	defer span.End()
	start := time.Now()

	res := o.inner.Execute(ctx, code, lang)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if !res.OK {
		status = "error"
		span.SetAttributes(AttrCodeErrorKind.String(string(res.Kind)))
		span.SetStatus(codes.Error, string(res.Kind))
	}
	span.SetAttributes(
		AttrCodeStatus.String(status),
		AttrCodeOutputLength.Int(len(res.Output)),
	)

	o.inst.CodeExecutions.Add(ctx, 1, metric.WithAttributes(
		AttrCodeLanguage.String(lang.String()),
		attribute.String("status", status),
		attribute.String("kind", string(res.Kind)),
	))
	o.inst.CodeDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrCodeLanguage.String(lang.String()),
	))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	if !res.OK {
		rec.SetSeverity(otellog.SeverityWarn)
	}
	rec.SetBody(otellog.StringValue("code executed"))
	rec.AddAttributes(
		otellog.String("code.language", lang.String()),
		otellog.String("code.status", status),
		otellog.String("code.error_kind", string(res.Kind)),
		otellog.Float64("code.duration_ms", durationMs),
	)
	o.inst.Logger.Emit(ctx, rec)

	return res
}

var _ codeloop.Executor = (*ObservedExecutor)(nil)
