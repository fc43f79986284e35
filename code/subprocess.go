package code

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nevindra/codeloop"
)

// syntaxMarkers identify compile-time failures in interpreter stderr.
var syntaxMarkers = []string{"SyntaxError", "IndentationError", "TabError"}

// processStrategy runs a script file with an external interpreter.
type processStrategy struct {
	bin    string
	ext    string
	dir    string
	cfg    sandboxConfig
	logger *slog.Logger
}

func (p *processStrategy) run(ctx context.Context, src string) codeloop.ExecResult {
	if _, err := exec.LookPath(p.bin); err != nil {
		return codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("runtime %q not found: %v", p.bin, err))
	}

	path, err := p.writeScript(src)
	if err != nil {
		return codeloop.Fail(codeloop.KindLaunch, err.Error())
	}
	defer p.remove(path)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin, path)
	cmd.Dir = p.dir
	cmd.Env = p.buildEnv()
	// Grandchildren holding the pipes open must not outlive the deadline.
	cmd.WaitDelay = time.Second

	stdout := &cappedWriter{max: p.cfg.maxOutput}
	stderr := &cappedWriter{max: p.cfg.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	if err == nil {
		return codeloop.Ok(stdout.String())
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return codeloop.Fail(codeloop.KindTimeout, fmt.Sprintf("execution exceeded %s", p.cfg.timeout))
	case errors.Is(ctx.Err(), context.Canceled):
		return codeloop.Fail(codeloop.KindRuntime, "execution cancelled")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := stderr.String()
		if strings.TrimSpace(msg) == "" {
			msg = fmt.Sprintf("exit code %d", exitErr.ExitCode())
		}
		return codeloop.Fail(classifyStderr(msg), msg)
	}
	return codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("start %s: %v", p.bin, err))
}

// writeScript creates a uniquely named script in the scratch directory.
func (p *processStrategy) writeScript(src string) (string, error) {
	path := filepath.Join(p.dir, "run-"+codeloop.NewID()+p.ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := f.WriteString(src); err != nil {
		f.Close()
		p.remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		p.remove(path)
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return path, nil
}

// remove deletes a scratch file. Failures are logged, never returned.
func (p *processStrategy) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("code: remove scratch file", "path", path, "error", err)
	}
}

// buildEnv constructs the environment for the subprocess.
func (p *processStrategy) buildEnv() []string {
	var env []string
	if p.cfg.envPassthrough {
		env = os.Environ()
	} else {
		env = []string{
			"PATH=" + os.Getenv("PATH"),
			"HOME=" + os.Getenv("HOME"),
			"LANG=en_US.UTF-8",
		}
	}
	for k, v := range p.cfg.envVars {
		env = append(env, k+"="+v)
	}
	return env
}

func classifyStderr(stderr string) codeloop.ErrorKind {
	for _, m := range syntaxMarkers {
		if strings.Contains(stderr, m) {
			return codeloop.KindSyntax
		}
	}
	return codeloop.KindRuntime
}

// cappedWriter keeps the first max bytes written and discards the rest.
type cappedWriter struct {
	buf       strings.Builder
	max       int
	truncated bool
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := w.max - w.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
			w.truncated = true
		}
		w.buf.Write(p)
	} else if n > 0 {
		w.truncated = true
	}
	return n, nil
}

func (w *cappedWriter) String() string {
	if w.truncated {
		return w.buf.String() + "\n... (truncated)"
	}
	return w.buf.String()
}
