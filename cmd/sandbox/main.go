// Command sandbox serves the codeloop executor over HTTP so that generated
// code can run on a separate host or container from the LLM loop.
//
//	POST /execute  {"code": "...", "language": "python|javascript|sql"}
//	GET  /health
//
// Point the CLI at it with sandbox.url (or CODELOOP_SANDBOX_URL).
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nevindra/codeloop/code"
	"github.com/nevindra/codeloop/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "sandbox")

	cfg, err := config.Load(os.Getenv("CODELOOP_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	sandbox, err := code.New(cfg.Sandbox.ScratchDir,
		code.WithTimeout(cfg.Sandbox.Timeout.Duration),
		code.WithMaxOutput(cfg.Sandbox.MaxOutput),
		code.WithPythonBin(cfg.Sandbox.PythonBin),
		code.WithNodeBin(cfg.Sandbox.NodeBin),
		code.WithLogger(logger),
	)
	if err != nil {
		logger.Error("create sandbox", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      code.NewHandler(sandbox, cfg.Server.MaxConcurrent, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Sandbox.Timeout.Duration + 30*time.Second,
		IdleTimeout:  30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "scratch_dir", sandbox.ScratchDir())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	logger.Info("stopped")
}
