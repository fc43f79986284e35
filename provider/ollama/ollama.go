// Package ollama implements codeloop.Provider over Ollama's native
// /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nevindra/codeloop"
)

const (
	// DefaultBaseURL is where a local Ollama server listens.
	DefaultBaseURL = "http://localhost:11434"

	maxErrorBody = 4 << 10
)

// Provider talks to an Ollama server. Requests are non-streaming.
type Provider struct {
	model   string
	baseURL string
	client  *http.Client
	options map[string]any
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client. Default timeout: 60s.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Provider) { p.options["temperature"] = t }
}

// WithNumPredict sets the default maximum number of generated tokens.
func WithNumPredict(n int) Option {
	return func(p *Provider) { p.options["num_predict"] = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a Provider for model. An empty baseURL selects DefaultBaseURL.
func New(model, baseURL string, opts ...Option) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	p := &Provider{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		options: map[string]any{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements codeloop.Provider.
func (p *Provider) Name() string { return "ollama" }

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Chat implements codeloop.Provider. System messages become the request's
// system field; the remaining turns are joined into one prompt.
func (p *Provider) Chat(ctx context.Context, req codeloop.ChatRequest) (codeloop.ChatResponse, error) {
	body := p.buildRequest(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return codeloop.ChatResponse{}, &codeloop.ErrLLM{Provider: p.Name(), Message: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return codeloop.ChatResponse{}, &codeloop.ErrLLM{Provider: p.Name(), Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return codeloop.ChatResponse{}, fmt.Errorf("ollama: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return codeloop.ChatResponse{}, &codeloop.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(raw),
			RetryAfter: codeloop.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return codeloop.ChatResponse{}, &codeloop.ErrLLM{Provider: p.Name(), Message: fmt.Sprintf("decode response: %v", err)}
	}
	if out.Error != "" {
		return codeloop.ChatResponse{}, &codeloop.ErrLLM{Provider: p.Name(), Message: out.Error}
	}

	p.logger.Debug("ollama: generate completed",
		"model", p.model,
		"done", out.Done,
		"duration", time.Since(start))

	return codeloop.ChatResponse{
		Content: out.Response,
		Usage: codeloop.Usage{
			InputTokens:  out.PromptEvalCount,
			OutputTokens: out.EvalCount,
		},
	}, nil
}

func (p *Provider) buildRequest(req codeloop.ChatRequest) generateRequest {
	var system, prompt []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		prompt = append(prompt, m.Content)
	}

	options := make(map[string]any, len(p.options)+2)
	for k, v := range p.options {
		options[k] = v
	}
	if gp := req.GenerationParams; gp != nil {
		if gp.Temperature != nil {
			options["temperature"] = *gp.Temperature
		}
		if gp.MaxTokens != nil {
			options["num_predict"] = *gp.MaxTokens
		}
	}

	return generateRequest{
		Model:   p.model,
		System:  strings.Join(system, "\n\n"),
		Prompt:  strings.Join(prompt, "\n\n"),
		Stream:  false,
		Options: options,
	}
}

var _ codeloop.Provider = (*Provider)(nil)
