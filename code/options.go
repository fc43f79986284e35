// Package code provides the sandboxed Executor: Python and Node.js programs
// run as time-bounded subprocesses, SQL runs against a private in-memory
// SQLite database.
package code

import (
	"log/slog"
	"time"
)

// Option configures a Sandbox.
type Option func(*sandboxConfig)

type sandboxConfig struct {
	timeout        time.Duration
	maxOutput      int
	pythonBin      string
	nodeBin        string
	envPassthrough bool
	envVars        map[string]string
	logger         *slog.Logger
}

func defaultConfig() sandboxConfig {
	return sandboxConfig{
		timeout:   10 * time.Second,
		maxOutput: 64 * 1024, // 64KB
		pythonBin: "python3",
		nodeBin:   "node",
	}
}

// WithTimeout sets the wall-clock limit for subprocess executions.
// The SQL path is not bounded. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *sandboxConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxOutput sets the maximum captured size of stdout and of stderr, each.
// Output beyond this limit is truncated. Default: 64KB.
func WithMaxOutput(bytes int) Option {
	return func(c *sandboxConfig) {
		if bytes > 0 {
			c.maxOutput = bytes
		}
	}
}

// WithPythonBin sets the interpreter used for Python. Default: "python3".
func WithPythonBin(bin string) Option {
	return func(c *sandboxConfig) { c.pythonBin = bin }
}

// WithNodeBin sets the runtime used for JavaScript. Default: "node".
func WithNodeBin(bin string) Option {
	return func(c *sandboxConfig) { c.nodeBin = bin }
}

// WithEnvPassthrough passes the host environment to subprocesses instead of
// the minimal PATH/HOME/LANG set.
func WithEnvPassthrough() Option {
	return func(c *sandboxConfig) { c.envPassthrough = true }
}

// WithEnv adds an environment variable for subprocesses.
func WithEnv(key, value string) Option {
	return func(c *sandboxConfig) {
		if c.envVars == nil {
			c.envVars = make(map[string]string)
		}
		c.envVars[key] = value
	}
}

// WithLogger sets a structured logger. Executions are logged at DEBUG and
// cleanup failures at WARN. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *sandboxConfig) { c.logger = l }
}
