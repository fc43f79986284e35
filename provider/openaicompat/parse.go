package openaicompat

import (
	"github.com/nevindra/codeloop"
)

// ParseResponse converts an OpenAI-format ChatResponse to a codeloop
// ChatResponse using choices[0]. A refusal without content is reported as
// an *codeloop.ErrLLM attributed to provider.
func ParseResponse(provider string, resp ChatResponse) (codeloop.ChatResponse, error) {
	var out codeloop.ChatResponse

	if resp.Usage != nil {
		out.Usage = codeloop.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return out, nil
	}

	msg := resp.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		return out, &codeloop.ErrLLM{Provider: provider, Message: "refused: " + msg.Refusal}
	}
	out.Content = msg.Content
	return out, nil
}
