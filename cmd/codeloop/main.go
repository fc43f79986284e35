// Command codeloop turns a natural-language task into working code.
//
//	codeloop [-config path] [-lang python|javascript|sql] [-attempts N] [-v] <task...>
//
// The task is read from the arguments, or from stdin when none are given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nevindra/codeloop"
	"github.com/nevindra/codeloop/code"
	"github.com/nevindra/codeloop/internal/config"
	"github.com/nevindra/codeloop/observer"
	"github.com/nevindra/codeloop/provider/resolve"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("CODELOOP_CONFIG"), "config file (.toml, .yaml)")
	lang := flag.String("lang", "", "force the target language: python, javascript or sql")
	attempts := flag.Int("attempts", 0, "maximum executions per run (overrides config)")
	verbose := flag.Bool("v", false, "print the attempt log")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *attempts > 0 {
		cfg.Loop.MaxAttempts = *attempts
	}
	logger := newLogger(cfg.Log)

	task, err := readTask(flag.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop, inst, shutdown, err := build(ctx, cfg, *lang, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutCtx); err != nil {
			logger.Warn("observer shutdown", "error", err)
		}
	}()

	start := time.Now()
	out := loop.Execute(ctx, task)
	if inst != nil {
		observer.RecordRun(ctx, inst, out, time.Since(start))
	}

	if *verbose {
		printLog(os.Stderr, out)
	}
	if out.Err != nil {
		fmt.Fprintln(os.Stderr, out.Err)
		return 1
	}
	fmt.Printf("```%s\n%s\n```\n", out.Language, strings.TrimRight(out.Code, "\n"))
	fmt.Print(out.Output)
	return 0
}

// build wires provider, sandbox and loop from cfg. shutdown is always non-nil.
func build(ctx context.Context, cfg config.Config, lang string, logger *slog.Logger) (*codeloop.Loop, *observer.Instruments, func(context.Context) error, error) {
	shutdown := func(context.Context) error { return nil }

	temp, maxTokens := cfg.LLM.Temperature, cfg.LLM.MaxTokens
	provider, err := resolve.Provider(resolve.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, shutdown, err
	}
	provider = codeloop.WithRetry(provider, codeloop.RetryLogger(logger))
	if cfg.LLM.RPM > 0 || cfg.LLM.TPM > 0 {
		provider = codeloop.WithRateLimit(provider, codeloop.RPM(cfg.LLM.RPM), codeloop.TPM(cfg.LLM.TPM))
	}

	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return nil, nil, shutdown, err
	}

	loopOpts := []codeloop.LoopOption{
		codeloop.WithMaxAttempts(cfg.Loop.MaxAttempts),
		codeloop.WithLoopLogger(logger),
	}
	genOpts := []codeloop.GeneratorOption{
		codeloop.WithGeneratorTemperature(cfg.LLM.Temperature),
		codeloop.WithGeneratorMaxTokens(cfg.LLM.MaxTokens),
		codeloop.WithGeneratorLogger(logger),
	}
	if lang != "" {
		l, err := codeloop.ParseLanguage(lang)
		if err != nil {
			return nil, nil, shutdown, err
		}
		loopOpts = append(loopOpts, codeloop.WithDetector(codeloop.FixedDetector(l)))
		genOpts = append(genOpts, codeloop.WithGeneratorDetector(codeloop.FixedDetector(l)))
	}

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		inst, shutdown, err = observer.Init(ctx, pricing)
		if err != nil {
			return nil, nil, func(context.Context) error { return nil }, fmt.Errorf("observer: %w", err)
		}
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		executor = observer.WrapExecutor(executor, inst)
		loopOpts = append(loopOpts, codeloop.WithLoopTracer(observer.NewTracer()))
		logger.Info("observer enabled")
	}

	gen := codeloop.NewLLMGenerator(provider, genOpts...)
	return codeloop.NewLoop(executor, gen, loopOpts...), inst, shutdown, nil
}

// newExecutor runs code locally, or through a sandbox service when
// sandbox.url is set.
func newExecutor(cfg config.Config, logger *slog.Logger) (codeloop.Executor, error) {
	if cfg.Sandbox.URL != "" {
		return code.NewRemote(cfg.Sandbox.URL, code.WithRemoteLogger(logger)), nil
	}
	return code.New(cfg.Sandbox.ScratchDir,
		code.WithTimeout(cfg.Sandbox.Timeout.Duration),
		code.WithMaxOutput(cfg.Sandbox.MaxOutput),
		code.WithPythonBin(cfg.Sandbox.PythonBin),
		code.WithNodeBin(cfg.Sandbox.NodeBin),
		code.WithLogger(logger),
	)
}

func readTask(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read task from stdin: %w", err)
	}
	task := strings.TrimSpace(string(data))
	if task == "" {
		return "", errors.New("usage: codeloop [flags] <task>")
	}
	return task, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func printLog(w io.Writer, out codeloop.Outcome) {
	fmt.Fprintf(w, "run %s: %s after %d attempt(s)\n", out.RunID, out.Status, out.Attempts)
	if out.Log == nil {
		return
	}
	for _, a := range out.Log.Errors() {
		fmt.Fprintf(w, "--- attempt %d (%s) %s\n%s\n", a.Index, a.Candidate.Language, a.Result.Kind, a.Result.Message)
	}
	for i, c := range out.Log.Corrections() {
		fmt.Fprintf(w, "--- correction %d\n%s\n", i+1, c)
	}
}
