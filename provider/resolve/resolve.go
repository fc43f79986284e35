// Package resolve builds a codeloop.Provider from provider-agnostic settings.
package resolve

import (
	"fmt"
	"log/slog"

	"github.com/nevindra/codeloop"
	"github.com/nevindra/codeloop/provider/ollama"
	"github.com/nevindra/codeloop/provider/openaicompat"
)

// Config holds provider-agnostic configuration for creating a chat Provider.
type Config struct {
	Provider string // "ollama", "openai", "groq", "deepseek", "together", "mistral", "openai-compat"
	APIKey   string
	Model    string
	BaseURL  string // required for "openai-compat"; auto-filled for known providers

	// Common cross-provider options (nil = use provider default).
	Temperature *float64
	MaxTokens   *int

	Logger *slog.Logger
}

// Provider creates a codeloop.Provider from a provider-agnostic Config.
// "ollama" uses the native /api/generate endpoint; the others speak the
// OpenAI chat completions protocol.
func Provider(cfg Config) (codeloop.Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("resolve: model is required")
	}
	switch cfg.Provider {
	case "", "ollama":
		return ollamaProvider(cfg), nil
	case "openai", "groq", "deepseek", "together", "mistral", "openai-compat":
		if cfg.BaseURL == "" && defaultBaseURL(cfg.Provider) == "" {
			return nil, fmt.Errorf("resolve: provider %q needs a base URL", cfg.Provider)
		}
		return openaiCompatProvider(cfg), nil
	default:
		return nil, fmt.Errorf("resolve: unknown provider %q", cfg.Provider)
	}
}

func ollamaProvider(cfg Config) codeloop.Provider {
	var opts []ollama.Option
	if cfg.Temperature != nil {
		opts = append(opts, ollama.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens != nil {
		opts = append(opts, ollama.WithNumPredict(*cfg.MaxTokens))
	}
	if cfg.Logger != nil {
		opts = append(opts, ollama.WithLogger(cfg.Logger))
	}
	return ollama.New(cfg.Model, cfg.BaseURL, opts...)
}

func openaiCompatProvider(cfg Config) codeloop.Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg.Provider)
	}
	var provOpts []openaicompat.ProviderOption
	provOpts = append(provOpts, openaicompat.WithName(cfg.Provider))
	if cfg.Logger != nil {
		provOpts = append(provOpts, openaicompat.WithLogger(cfg.Logger))
	}

	var reqOpts []openaicompat.Option
	if cfg.Temperature != nil {
		reqOpts = append(reqOpts, openaicompat.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens != nil {
		reqOpts = append(reqOpts, openaicompat.WithMaxTokens(*cfg.MaxTokens))
	}
	if len(reqOpts) > 0 {
		provOpts = append(provOpts, openaicompat.WithOptions(reqOpts...))
	}
	return openaicompat.NewProvider(cfg.APIKey, cfg.Model, baseURL, provOpts...)
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "deepseek":
		return "https://api.deepseek.com/v1"
	case "together":
		return "https://api.together.xyz/v1"
	case "mistral":
		return "https://api.mistral.ai/v1"
	default:
		return ""
	}
}
