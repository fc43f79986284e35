package observer

import (
	"context"
	"time"

	"github.com/nevindra/codeloop"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
)

// RecordRun emits loop-level metrics and a log record for a finished run.
func RecordRun(ctx context.Context, inst *Instruments, out codeloop.Outcome, elapsed time.Duration) {
	status := AttrLoopStatus.String(string(out.Status))
	lang := AttrLoopLanguage.String(out.Language.String())

	inst.LoopRuns.Add(ctx, 1, metric.WithAttributes(status, lang))
	inst.LoopAttempts.Record(ctx, int64(out.Attempts), metric.WithAttributes(status, lang))
	inst.LoopDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(status))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	if out.Status != codeloop.OutcomeSuccess {
		rec.SetSeverity(otellog.SeverityWarn)
	}
	rec.SetBody(otellog.StringValue("loop run finished"))
	rec.AddAttributes(
		otellog.String("run.id", out.RunID),
		otellog.String("loop.status", string(out.Status)),
		otellog.String("loop.language", out.Language.String()),
		otellog.Int("loop.attempts", out.Attempts),
		otellog.Float64("loop.duration_ms", float64(elapsed.Milliseconds())),
	)
	if out.Err != nil {
		rec.AddAttributes(otellog.String("error", out.Err.Error()))
	}
	inst.Logger.Emit(ctx, rec)
}
