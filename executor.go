package codeloop

import "context"

// Executor runs one candidate in isolation and classifies the outcome.
// Implementations never panic or return an error out of band: every failure
// is reported as a failed ExecResult.
type Executor interface {
	Execute(ctx context.Context, code string, lang Language) ExecResult
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, code string, lang Language) ExecResult

func (f ExecutorFunc) Execute(ctx context.Context, code string, lang Language) ExecResult {
	return f(ctx, code, lang)
}
