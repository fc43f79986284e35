package openaicompat

// Option sets a sampling field on every request the provider sends.
type Option func(*ChatRequest)

// WithTemperature overrides the temperature unless the caller's
// GenerationParams set one.
func WithTemperature(t float64) Option {
	return func(r *ChatRequest) { r.Temperature = &t }
}

// WithMaxTokens caps the completion length unless GenerationParams set a cap.
func WithMaxTokens(n int) Option {
	return func(r *ChatRequest) { r.MaxTokens = n }
}

func WithTopP(p float64) Option {
	return func(r *ChatRequest) { r.TopP = &p }
}

// WithStop ends generation at any of the given sequences. A closing code
// fence ("```") keeps replies to a single block.
func WithStop(seqs ...string) Option {
	return func(r *ChatRequest) { r.Stop = seqs }
}

// WithSeed asks backends that support it for reproducible sampling.
func WithSeed(seed int) Option {
	return func(r *ChatRequest) { r.Seed = &seed }
}
