package openaicompat

import "github.com/nevindra/codeloop"

// BuildBody converts codeloop ChatMessages and a model name into an
// OpenAI-format ChatRequest. System messages stay in the messages array.
// Options configure generation parameters (temperature, top_p, etc.).
func BuildBody(messages []codeloop.ChatMessage, model string, opts ...Option) ChatRequest {
	msgs := make([]Message, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, Message{Role: role, Content: m.Content})
	}

	req := ChatRequest{
		Model:    model,
		Messages: msgs,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}
