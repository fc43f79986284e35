package codeloop

import "context"

// Generator is the code generation port used by the Loop.
// An error or an empty response is treated as a generation failure,
// never as an execution failure.
type Generator interface {
	// Generate returns a raw model response for a natural-language task.
	Generate(ctx context.Context, task string) (string, error)
	// Correct returns a raw model response repairing code that failed with errText.
	Correct(ctx context.Context, code, errText string) (string, error)
}

// Detector derives the target language of a task from free text.
// Implementations default to LangPython when no hint is present.
type Detector interface {
	Detect(text string) Language
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(text string) Language

func (f DetectorFunc) Detect(text string) Language { return f(text) }

// FixedDetector always reports lang, bypassing detection.
func FixedDetector(lang Language) Detector {
	return DetectorFunc(func(string) Language { return lang })
}
