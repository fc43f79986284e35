package codeloop

import (
	"context"
	"sync"
	"time"
)

// rateWindow is a one-minute sliding window of weighted events.
type rateWindow struct {
	limit  int
	events []rateEvent
}

type rateEvent struct {
	at     time.Time
	weight int
}

// prune drops events older than one minute before now.
func (w *rateWindow) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(w.events) && w.events[i].at.Before(cutoff) {
		i++
	}
	w.events = w.events[i:]
}

func (w *rateWindow) total() int {
	n := 0
	for _, e := range w.events {
		n += e.weight
	}
	return n
}

// wait reports how long until the window has room again. Zero means it has
// room now. A window with no limit always has room.
func (w *rateWindow) wait(now time.Time) time.Duration {
	if w.limit <= 0 || w.total() < w.limit {
		return 0
	}
	if len(w.events) == 0 {
		return 0
	}
	return w.events[0].at.Add(time.Minute).Sub(now)
}

func (w *rateWindow) add(now time.Time, weight int) {
	if w.limit > 0 && weight > 0 {
		w.events = append(w.events, rateEvent{at: now, weight: weight})
	}
}

// rateLimitProvider holds each Chat call until both the request and the
// token budgets for the last minute have room.
type rateLimitProvider struct {
	inner Provider

	mu       sync.Mutex
	requests rateWindow
	tokens   rateWindow
}

// RateLimitOption configures WithRateLimit.
type RateLimitOption func(*rateLimitProvider)

// RPM caps requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitProvider) { r.requests.limit = n }
}

// TPM caps tokens per minute, counted from ChatResponse.Usage after each
// call. The call that crosses the budget still completes; later calls wait.
func TPM(n int) RateLimitOption {
	return func(r *rateLimitProvider) { r.tokens.limit = n }
}

// WithRateLimit wraps p with proactive rate limiting for hosted backends.
// Compose it outside WithRetry so retries count against the budget:
//
//	p = codeloop.WithRateLimit(codeloop.WithRetry(p), codeloop.RPM(30))
func WithRateLimit(p Provider, opts ...RateLimitOption) Provider {
	r := &rateLimitProvider{inner: p}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *rateLimitProvider) Name() string { return r.inner.Name() }

func (r *rateLimitProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return ChatResponse{}, err
	}
	resp, err := r.inner.Chat(ctx, req)
	if err == nil {
		r.mu.Lock()
		r.tokens.add(time.Now(), resp.Usage.InputTokens+resp.Usage.OutputTokens)
		r.mu.Unlock()
	}
	return resp, err
}

// acquire blocks until a request may be sent, or ctx ends.
func (r *rateLimitProvider) acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.requests.prune(now)
		r.tokens.prune(now)

		wait := max(r.requests.wait(now), r.tokens.wait(now))
		if wait <= 0 {
			r.requests.add(now, 1)
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

var _ Provider = (*rateLimitProvider)(nil)
