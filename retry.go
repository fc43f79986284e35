package codeloop

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// transientStatus lists the HTTP statuses worth another try: the backend is
// overloaded, rate limiting, or restarting behind a proxy.
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// retryProvider resends Chat calls that fail with a transient *ErrHTTP.
type retryProvider struct {
	inner       Provider
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// RetryOption configures WithRetry.
type RetryOption func(*retryProvider)

// RetryMaxAttempts bounds the number of calls per Chat, first try included.
// Default: 3.
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryProvider) { r.maxAttempts = n }
}

// RetryBaseDelay is the wait before the second call; it doubles after each
// retry and gets up to 50% jitter. Default: 1s.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryProvider) { r.baseDelay = d }
}

// RetryTimeout bounds a whole Chat call including waits. Zero disables it.
func RetryTimeout(d time.Duration) RetryOption {
	return func(r *retryProvider) { r.timeout = d }
}

// RetryLogger logs each retry at WARN and giving up at ERROR.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryProvider) { r.logger = l }
}

// WithRetry wraps p so that 429, 502, 503 and 504 responses are retried with
// exponential backoff. A Retry-After header lengthens the wait, never
// shortens it. Other errors are returned at once.
//
//	llm := codeloop.WithRetry(ollama.New("codellama", ""), codeloop.RetryMaxAttempts(5))
func WithRetry(p Provider, opts ...RetryOption) Provider {
	r := &retryProvider{
		inner:       p,
		maxAttempts: 3,
		baseDelay:   time.Second,
		logger:      nopLogger,
	}
	for _, o := range opts {
		o(r)
	}
	r.maxAttempts = max(r.maxAttempts, 1)
	if r.logger == nil {
		r.logger = nopLogger
	}
	return r
}

func (r *retryProvider) Name() string { return r.inner.Name() }

func (r *retryProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var lastErr error
	for i := range r.maxAttempts {
		resp, err := r.inner.Chat(ctx, req)
		httpErr, transient := asTransient(err)
		if !transient {
			return resp, err
		}
		lastErr = err
		r.logger.Warn("retrying transient error",
			"provider", r.inner.Name(),
			"status", httpErr.Status,
			"attempt", i+1,
			"max_attempts", r.maxAttempts)

		if i == r.maxAttempts-1 {
			break
		}
		wait := max(retryBackoff(r.baseDelay, i), httpErr.RetryAfter)
		if err := sleepCtx(ctx, wait); err != nil {
			return ChatResponse{}, err
		}
	}

	r.logger.Error("all retry attempts exhausted",
		"provider", r.inner.Name(),
		"attempts", r.maxAttempts,
		"error", lastErr)
	return ChatResponse{}, lastErr
}

// asTransient reports whether err is an *ErrHTTP with a retryable status.
func asTransient(err error) (*ErrHTTP, bool) {
	var e *ErrHTTP
	if err == nil || !errors.As(err, &e) {
		return nil, false
	}
	return e, transientStatus[e.Status]
}

// retryBackoff returns base * 2^i plus up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base << i
	if exp <= 0 {
		return 0
	}
	return exp + rand.N(exp/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
