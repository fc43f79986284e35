package codeloop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// System prompts per language for the first generation.
var generatePrompts = map[Language]string{
	LangPython: "You are an expert Python programmer. " +
		"Reply with Python code only, without explanations and without Markdown fences. " +
		"The program must print its result to standard output.",
	LangJavaScript: "You are an expert JavaScript programmer. " +
		"Reply with JavaScript code for Node.js only, without explanations and without Markdown fences. " +
		"The program must print its result with console.log.",
	LangSQL: "You are an expert in SQL databases. " +
		"Reply with valid SQLite SQL only: no comments, no explanations, no Markdown fences. " +
		"Use simple table and column names without accents. " +
		"Create and populate any table you query.",
}

// System prompts per language for corrections.
var correctPrompts = map[Language]string{
	LangPython:     "You are a Python expert. Fix the following code according to the error. Do not wrap the fixed code in Markdown fences.",
	LangJavaScript: "You are a JavaScript expert. Fix the following code according to the error. Do not wrap the fixed code in Markdown fences.",
	LangSQL:        "You are an SQL expert. Fix the following query according to the error. Do not wrap the fixed query in Markdown fences.",
}

// hinter is implemented by detectors that can tell "no hint" apart from the
// Python default.
type hinter interface {
	Hint(text string) (Language, bool)
}

// LLMGenerator implements Generator on top of a chat Provider.
type LLMGenerator struct {
	provider    Provider
	detector    Detector
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// GeneratorOption configures an LLMGenerator.
type GeneratorOption func(*LLMGenerator)

// WithGeneratorDetector sets the detector used to choose prompts.
// Default: NewKeywordDetector().
func WithGeneratorDetector(d Detector) GeneratorOption {
	return func(g *LLMGenerator) { g.detector = d }
}

// WithGeneratorTemperature sets the sampling temperature. Default: 0.2.
func WithGeneratorTemperature(t float64) GeneratorOption {
	return func(g *LLMGenerator) { g.temperature = t }
}

// WithGeneratorMaxTokens caps the reply length. Default: 1024.
func WithGeneratorMaxTokens(n int) GeneratorOption {
	return func(g *LLMGenerator) { g.maxTokens = n }
}

// WithGeneratorLogger sets the structured logger.
func WithGeneratorLogger(l *slog.Logger) GeneratorOption {
	return func(g *LLMGenerator) { g.logger = l }
}

// NewLLMGenerator creates a Generator that prompts p.
func NewLLMGenerator(p Provider, opts ...GeneratorOption) *LLMGenerator {
	g := &LLMGenerator{
		provider:    p,
		temperature: 0.2,
		maxTokens:   1024,
	}
	for _, o := range opts {
		o(g)
	}
	if g.detector == nil {
		g.detector = NewKeywordDetector()
	}
	if g.logger == nil {
		g.logger = nopLogger
	}
	return g
}

// Generate implements Generator. The reply is returned with fences and line
// numbers removed.
func (g *LLMGenerator) Generate(ctx context.Context, task string) (string, error) {
	lang := g.detector.Detect(task)
	resp, err := g.chat(ctx, generatePrompts[promptLanguage(lang)], "Task: "+task)
	if err != nil {
		return "", fmt.Errorf("generate %s code: %w", lang, err)
	}
	return CleanResponse(resp.Content), nil
}

// Correct implements Generator. The language is detected from the code first
// and the error text second; Python is assumed when neither names one.
func (g *LLMGenerator) Correct(ctx context.Context, code, errText string) (string, error) {
	lang := g.correctionLanguage(code, errText)

	var b strings.Builder
	b.WriteString("Code to fix:\n")
	b.WriteString(code)
	b.WriteString("\n\nError message: ")
	b.WriteString(errText)
	b.WriteString("\n\nReply with the fixed code only, without explanations.")

	resp, err := g.chat(ctx, correctPrompts[promptLanguage(lang)], b.String())
	if err != nil {
		return "", fmt.Errorf("correct %s code: %w", lang, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", nil
	}
	return StripFences(resp.Content), nil
}

func (g *LLMGenerator) chat(ctx context.Context, system, user string) (ChatResponse, error) {
	temp, maxTokens := g.temperature, g.maxTokens
	resp, err := g.provider.Chat(ctx, ChatRequest{
		Messages: []ChatMessage{SystemMessage(system), UserMessage(user)},
		GenerationParams: &GenerationParams{
			Temperature: &temp,
			MaxTokens:   &maxTokens,
		},
	})
	if err != nil {
		g.logger.Warn("llm call failed", "provider", g.provider.Name(), "error", err)
		return ChatResponse{}, err
	}
	g.logger.Debug("llm call completed",
		"provider", g.provider.Name(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)
	return resp, nil
}

func (g *LLMGenerator) correctionLanguage(code, errText string) Language {
	h, ok := g.detector.(hinter)
	if !ok {
		return g.detector.Detect(code)
	}
	if lang, ok := h.Hint(code); ok {
		return lang
	}
	if lang, ok := h.Hint(errText); ok {
		return lang
	}
	return LangPython
}

// promptLanguage maps languages without a dedicated prompt to Python.
func promptLanguage(lang Language) Language {
	if _, ok := generatePrompts[lang]; ok {
		return lang
	}
	return LangPython
}

var _ Generator = (*LLMGenerator)(nil)
