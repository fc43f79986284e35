package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "codeloop.toml"

type Config struct {
	LLM      LLMConfig      `toml:"llm" yaml:"llm"`
	Sandbox  SandboxConfig  `toml:"sandbox" yaml:"sandbox"`
	Loop     LoopConfig     `toml:"loop" yaml:"loop"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Observer ObserverConfig `toml:"observer" yaml:"observer"`
}

type LLMConfig struct {
	Provider    string  `toml:"provider" yaml:"provider"`
	Model       string  `toml:"model" yaml:"model"`
	BaseURL     string  `toml:"base_url" yaml:"base_url"`
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	Temperature float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens"`
	// RPM and TPM cap requests and tokens per minute. Zero means unlimited.
	RPM int `toml:"rpm" yaml:"rpm"`
	TPM int `toml:"tpm" yaml:"tpm"`
}

type SandboxConfig struct {
	// URL points at a remote sandbox service (cmd/sandbox). Empty runs code locally.
	URL        string   `toml:"url" yaml:"url"`
	ScratchDir string   `toml:"scratch_dir" yaml:"scratch_dir"`
	PythonBin  string   `toml:"python_bin" yaml:"python_bin"`
	NodeBin    string   `toml:"node_bin" yaml:"node_bin"`
	Timeout    Duration `toml:"timeout" yaml:"timeout"`
	MaxOutput  int      `toml:"max_output" yaml:"max_output"`
}

// ServerConfig configures cmd/sandbox.
type ServerConfig struct {
	Addr          string `toml:"addr" yaml:"addr"`
	MaxConcurrent int    `toml:"max_concurrent" yaml:"max_concurrent"`
}

type LoopConfig struct {
	MaxAttempts int `toml:"max_attempts" yaml:"max_attempts"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text or json
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled" yaml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing" yaml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input" yaml:"input"`
	Output float64 `toml:"output" yaml:"output"`
}

// Duration is a time.Duration written as a Go duration string ("10s", "1m30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "codellama",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Sandbox: SandboxConfig{
			ScratchDir: filepath.Join(os.TempDir(), "codeloop"),
			PythonBin:  "python3",
			NodeBin:    "node",
			Timeout:    Duration{10 * time.Second},
			MaxOutput:  64 * 1024,
		},
		Loop:   LoopConfig{MaxAttempts: 3},
		Server: ServerConfig{Addr: ":9000", MaxConcurrent: 4},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads config: defaults -> file -> env vars (env wins).
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CODELOOP_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("CODELOOP_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CODELOOP_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CODELOOP_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CODELOOP_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CODELOOP_MAX_ATTEMPTS: %w", err)
		}
		cfg.Loop.MaxAttempts = n
	}
	if v := os.Getenv("CODELOOP_SCRATCH_DIR"); v != "" {
		cfg.Sandbox.ScratchDir = v
	}
	if v := os.Getenv("CODELOOP_SANDBOX_URL"); v != "" {
		cfg.Sandbox.URL = v
	}
	if v := os.Getenv("CODELOOP_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CODELOOP_PYTHON_BIN"); v != "" {
		cfg.Sandbox.PythonBin = v
	}
	if v := os.Getenv("CODELOOP_NODE_BIN"); v != "" {
		cfg.Sandbox.NodeBin = v
	}
	if v := os.Getenv("CODELOOP_EXEC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CODELOOP_EXEC_TIMEOUT: %w", err)
		}
		cfg.Sandbox.Timeout = Duration{d}
	}
	if v := os.Getenv("CODELOOP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CODELOOP_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}
	return nil
}
