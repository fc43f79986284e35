package codeloop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxAttempts is the attempt budget used when none is configured.
const DefaultMaxAttempts = 3

// Loop drives the generate → execute → correct cycle for one task at a time.
// A Loop holds no per-run state and may be reused for sequential runs.
type Loop struct {
	executor    Executor
	generator   Generator
	detector    Detector
	maxAttempts int
	logger      *slog.Logger // never nil (nopLogger fallback)
	tracer      Tracer       // nil = no tracing
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxAttempts sets how many candidates may be executed per run.
// Values below 1 are treated as 1. Default: 3.
func WithMaxAttempts(n int) LoopOption {
	return func(l *Loop) { l.maxAttempts = n }
}

// WithDetector sets the language detector applied to the task text.
// Default: NewKeywordDetector().
func WithDetector(d Detector) LoopOption {
	return func(l *Loop) { l.detector = d }
}

// WithLoopLogger sets the structured logger for run and attempt events.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithLoopTracer enables span creation for runs and attempts.
func WithLoopTracer(t Tracer) LoopOption {
	return func(l *Loop) { l.tracer = t }
}

// NewLoop creates a Loop that executes candidates with exec and obtains and
// repairs them with gen.
func NewLoop(exec Executor, gen Generator, opts ...LoopOption) *Loop {
	l := &Loop{
		executor:    exec,
		generator:   gen,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(l)
	}
	if l.maxAttempts < 1 {
		l.maxAttempts = 1
	}
	if l.detector == nil {
		l.detector = NewKeywordDetector()
	}
	if l.logger == nil {
		l.logger = nopLogger
	}
	return l
}

// MaxAttempts returns the configured attempt budget.
func (l *Loop) MaxAttempts() int { return l.maxAttempts }

// Run turns task into working code. It returns the final code and a nil
// error on success, or an empty string and a *RejectedError or
// *ExhaustedError.
func (l *Loop) Run(ctx context.Context, task string) (string, error) {
	out := l.Execute(ctx, task)
	if out.Err != nil {
		return "", out.Err
	}
	return out.Code, nil
}

// Execute runs the full state machine and reports the outcome together with
// the run's attempt log.
func (l *Loop) Execute(ctx context.Context, task string) (out Outcome) {
	out = Outcome{RunID: NewID(), Log: NewAttemptLog()}
	logger := l.logger.With("run_id", out.RunID)
	start := time.Now()

	if l.tracer != nil {
		var span Span
		ctx, span = l.tracer.Start(ctx, "loop.run",
			StringAttr("run.id", out.RunID),
			IntAttr("loop.max_attempts", l.maxAttempts))
		defer func() {
			span.SetAttr(
				StringAttr("loop.status", string(out.Status)),
				StringAttr("loop.language", out.Language.String()),
				IntAttr("loop.attempts", out.Attempts))
			if out.Err != nil {
				span.Error(out.Err)
			}
			span.End()
		}()
	}
	defer func() {
		logger.Info("run finished",
			"status", out.Status,
			"language", out.Language.String(),
			"attempts", out.Attempts,
			"duration", time.Since(start))
	}()

	if strings.TrimSpace(task) == "" {
		return reject(out, ErrEmptyCode.Error(), ErrEmptyCode)
	}

	out.Language = l.detector.Detect(task)
	logger.Debug("language detected", "language", out.Language.String())

	raw, err := l.generator.Generate(ctx, task)
	if err != nil {
		logger.Warn("initial generation failed", "error", err)
		return reject(out, ErrGenerationFailed.Error(), ErrGenerationFailed)
	}
	if strings.TrimSpace(raw) == "" {
		logger.Warn("initial generation returned nothing")
		return reject(out, ErrGenerationFailed.Error(), ErrGenerationFailed)
	}

	code := ExtractCode(raw)
	if code == "" {
		return reject(out, ErrEmptyCode.Error(), ErrEmptyCode)
	}

	for i := 0; i < l.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "attempt", i, "error", err)
			if out.Attempts == 0 {
				return reject(out, fmt.Sprintf("cancelled: %v", err), err)
			}
			break
		}

		clean := strings.TrimSpace(code)
		if clean == "" {
			return reject(out, ErrEmptyCode.Error(), ErrEmptyCode)
		}
		cand := Candidate{Code: clean, Language: out.Language}

		res := l.attempt(ctx, i, cand)
		out.Attempts++
		if res.OK {
			out.Status = OutcomeSuccess
			out.Code = clean
			out.Output = res.Output
			return out
		}

		out.Last = res
		out.Log.Record(Attempt{Index: i, Candidate: cand, Result: res})
		logger.Info("attempt failed",
			"attempt", i+1,
			"max_attempts", l.maxAttempts,
			"kind", res.Kind,
			"duration", res.Duration)

		// The last unit of budget is spent executing, never correcting.
		if i == l.maxAttempts-1 {
			break
		}

		fixed, err := l.generator.Correct(ctx, clean, res.Message)
		switch {
		case err != nil:
			logger.Warn("correction failed, retrying current candidate", "attempt", i+1, "error", err)
		case strings.TrimSpace(fixed) == "" || fixed == clean:
			logger.Warn("correction made no change, retrying current candidate", "attempt", i+1)
		default:
			code = ExtractCode(fixed)
			out.Log.AddCorrection(code)
		}
	}

	out.Status = OutcomeExhausted
	out.Err = &ExhaustedError{Attempts: out.Attempts, Last: out.Last}
	return out
}

// attempt executes one candidate, inside its own span when tracing is enabled.
func (l *Loop) attempt(ctx context.Context, i int, cand Candidate) ExecResult {
	if l.tracer == nil {
		return l.executor.Execute(ctx, cand.Code, cand.Language)
	}
	ctx, span := l.tracer.Start(ctx, "loop.attempt",
		IntAttr("attempt.index", i),
		StringAttr("attempt.language", cand.Language.String()))
	defer span.End()

	res := l.executor.Execute(ctx, cand.Code, cand.Language)
	span.SetAttr(BoolAttr("attempt.ok", res.OK), DurationAttr("attempt.duration", res.Duration))
	if !res.OK {
		span.SetAttr(StringAttr("attempt.kind", string(res.Kind)))
		span.Error(res.Err())
	}
	return res
}

func reject(out Outcome, reason string, cause error) Outcome {
	out.Status = OutcomeRejected
	out.Reason = reason
	out.Err = &RejectedError{Reason: reason, Err: cause}
	return out
}
