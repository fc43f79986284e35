package code

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nevindra/codeloop"
)

// strategy executes already-cleaned, non-empty source for one language.
type strategy interface {
	run(ctx context.Context, src string) codeloop.ExecResult
}

// Sandbox implements codeloop.Executor. Each call works on its own scratch
// file or in-memory database, so calls never observe each other's artifacts.
// Isolation is limited to a wall-clock bound on subprocesses: there is no
// memory, filesystem or syscall confinement.
type Sandbox struct {
	scratchDir string
	cfg        sandboxConfig
	strategies map[codeloop.Language]strategy
	logger     *slog.Logger
}

// compile-time check
var _ codeloop.Executor = (*Sandbox)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Sandbox whose subprocess scripts live in scratchDir and run
// with it as their working directory. The directory is created if missing;
// an empty scratchDir selects <os.TempDir()>/codeloop.
func New(scratchDir string, opts ...Option) (*Sandbox, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "codeloop")
	}
	dir, err := filepath.Abs(scratchDir)
	if err != nil {
		return nil, fmt.Errorf("code: resolve scratch dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("code: create scratch dir: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = nopLogger
	}

	s := &Sandbox{scratchDir: dir, cfg: cfg, logger: logger}
	s.strategies = map[codeloop.Language]strategy{
		codeloop.LangPython:     &processStrategy{bin: cfg.pythonBin, ext: ".py", dir: dir, cfg: cfg, logger: logger},
		codeloop.LangJavaScript: &processStrategy{bin: cfg.nodeBin, ext: ".js", dir: dir, cfg: cfg, logger: logger},
		codeloop.LangSQL:        &sqlStrategy{logger: logger},
	}
	return s, nil
}

// ScratchDir returns the absolute scratch directory.
func (s *Sandbox) ScratchDir() string { return s.scratchDir }

// Execute implements codeloop.Executor. Markdown fences around code are
// removed first; empty code is rejected without running anything.
func (s *Sandbox) Execute(ctx context.Context, code string, lang codeloop.Language) (res codeloop.ExecResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("internal error: %v", r))
		}
		res.Duration = time.Since(start)
		s.logger.Debug("code: executed",
			"language", lang.String(),
			"ok", res.OK,
			"kind", res.Kind,
			"duration", res.Duration)
	}()

	src := codeloop.StripFences(code)
	if src == "" {
		return codeloop.Fail(codeloop.KindLaunch, "empty code")
	}

	st, ok := s.strategies[lang]
	if !ok {
		return codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("unsupported language: %s", lang))
	}
	return st.run(ctx, src)
}
