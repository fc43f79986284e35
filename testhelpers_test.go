package codeloop

import (
	"context"
	"sync"
)

// stubProvider is a test Provider that returns pre-configured results in order
// and records every request it receives.
type stubProvider struct {
	mu       sync.Mutex
	calls    int
	results  []stubResult
	requests []ChatRequest
}

type stubResult struct {
	resp ChatResponse
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i < len(s.results) {
		return s.results[i].resp, s.results[i].err
	}
	return ChatResponse{}, nil
}

var _ Provider = (*stubProvider)(nil)

// stubGenerator returns the initial reply and then the queued corrections.
type stubGenerator struct {
	initial    string
	initialErr error

	corrections   []string
	correctionErr error

	generateCalls int
	correctCalls  int
	correctInputs []correctInput
}

type correctInput struct {
	code    string
	errText string
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.generateCalls++
	return g.initial, g.initialErr
}

func (g *stubGenerator) Correct(_ context.Context, code, errText string) (string, error) {
	i := g.correctCalls
	g.correctCalls++
	g.correctInputs = append(g.correctInputs, correctInput{code: code, errText: errText})
	if g.correctionErr != nil {
		return "", g.correctionErr
	}
	if i < len(g.corrections) {
		return g.corrections[i], nil
	}
	return "", nil
}

var _ Generator = (*stubGenerator)(nil)

// stubExecutor returns queued results in order and records executed code.
// Once the queue is drained it repeats the last result.
type stubExecutor struct {
	results []ExecResult
	calls   []Candidate
}

func (e *stubExecutor) Execute(_ context.Context, code string, lang Language) ExecResult {
	e.calls = append(e.calls, Candidate{Code: code, Language: lang})
	if len(e.results) == 0 {
		return Ok("")
	}
	i := len(e.calls) - 1
	if i >= len(e.results) {
		i = len(e.results) - 1
	}
	return e.results[i]
}

var _ Executor = (*stubExecutor)(nil)
