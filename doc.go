// Package codeloop turns a natural-language task into working code by running
// candidate code in a sandbox and feeding execution failures back to an LLM
// until the code runs or the attempt budget is spent.
//
// # Quick Start
//
//	provider := ollama.New("codellama", "http://localhost:11434")
//	sandbox, err := code.New("/tmp/codeloop")
//	if err != nil {
//		return err
//	}
//
//	loop := codeloop.NewLoop(sandbox, codeloop.NewLLMGenerator(provider),
//		codeloop.WithMaxAttempts(3),
//	)
//
//	src, err := loop.Run(ctx, "compute the factorial of a number in python")
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Executor]: runs one candidate in isolation and classifies the outcome
//   - [Generator]: produces an initial candidate and repairs failing ones
//   - [Detector]: derives the target [Language] from free text
//   - [Provider]: LLM backend used by [LLMGenerator]
//   - [Tracer]: optional span creation for the loop
//
// # Included Implementations
//
// Executor: code.Sandbox (python and node subprocesses, in-memory SQLite) and
// code.Remote, which calls a sandbox service (cmd/sandbox) over HTTP.
// Providers: provider/ollama (native API), provider/openaicompat (OpenAI-compatible APIs).
// Observability: observer (OpenTelemetry).
//
// Provider wrappers: [WithRetry] for transient HTTP errors, [WithRateLimit]
// for per-minute request and token budgets.
//
// See cmd/codeloop for a complete command-line application.
package codeloop
