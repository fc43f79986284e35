package openaicompat

import (
	"errors"
	"testing"

	"github.com/nevindra/codeloop"
)

func TestParseResponse_TextResponse(t *testing.T) {
	resp := ChatResponse{
		ID: "chatcmpl-123",
		Choices: []Choice{{
			Message:      &ChoiceMessage{Role: "assistant", Content: "print(1)"},
			FinishReason: "stop",
		}},
		Usage: &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	out, err := ParseResponse("openai", resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "print(1)" {
		t.Errorf("expected content 'print(1)', got %q", out.Content)
	}
	if out.Usage.InputTokens != 10 || out.Usage.OutputTokens != 5 {
		t.Errorf("unexpected usage: %+v", out.Usage)
	}
}

func TestParseResponse_EmptyChoices(t *testing.T) {
	out, err := ParseResponse("openai", ChatResponse{Usage: &Usage{PromptTokens: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "" {
		t.Errorf("expected empty content, got %q", out.Content)
	}
	if out.Usage.InputTokens != 3 {
		t.Errorf("usage should survive empty choices, got %+v", out.Usage)
	}
}

func TestParseResponse_Refusal(t *testing.T) {
	resp := ChatResponse{Choices: []Choice{{
		Message: &ChoiceMessage{Role: "assistant", Refusal: "I can't help with that."},
	}}}

	_, err := ParseResponse("groq", resp)
	var llmErr *codeloop.ErrLLM
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *ErrLLM, got %v", err)
	}
	if llmErr.Provider != "groq" || llmErr.Message != "refused: I can't help with that." {
		t.Errorf("unexpected error: %+v", llmErr)
	}
}
