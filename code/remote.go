package code

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nevindra/codeloop"
)

// Remote implements codeloop.Executor by calling a sandbox service that
// serves NewHandler (see cmd/sandbox). Transport failures are reported as
// launch failures so the loop treats them like any other failed attempt.
type Remote struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ codeloop.Executor = (*Remote)(nil)

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithRemoteHTTPClient sets the HTTP client. Default: 60s timeout.
func WithRemoteHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithRemoteRetries sets how many times a request is sent on 5xx or network
// errors, and the initial delay between tries (doubled each retry).
// Default: 3 tries, 500ms.
func WithRemoteRetries(n int, delay time.Duration) RemoteOption {
	return func(r *Remote) {
		if n > 0 {
			r.maxRetries = n
		}
		if delay > 0 {
			r.retryDelay = delay
		}
	}
}

// WithRemoteLogger sets the logger.
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// NewRemote creates an executor for the sandbox service at baseURL.
func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		logger:     nopLogger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Execute implements codeloop.Executor.
func (r *Remote) Execute(ctx context.Context, code string, lang codeloop.Language) codeloop.ExecResult {
	start := time.Now()
	body, err := json.Marshal(executeRequest{Code: code, Language: lang.String()})
	if err != nil {
		return codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("marshal request: %v", err))
	}

	resp, err := r.doExecute(ctx, body)
	if err != nil {
		r.logger.Warn("code: remote execute", "url", r.baseURL, "error", err)
		res := codeloop.Fail(codeloop.KindLaunch, err.Error())
		res.Duration = time.Since(start)
		return res
	}
	res := resp.ExecResult
	res.Duration = time.Duration(resp.DurationMs) * time.Millisecond
	return res
}

func (r *Remote) doExecute(ctx context.Context, body []byte) (executeResponse, error) {
	var lastErr error
	delay := r.retryDelay

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return executeResponse{}, ctx.Err()
			}
		}

		resp, err := r.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		if !isTransient(err) {
			return executeResponse{}, err
		}
		lastErr = err
	}
	return executeResponse{}, fmt.Errorf("sandbox unreachable after %d attempts: %w", r.maxRetries, lastErr)
}

func (r *Remote) doOnce(ctx context.Context, body []byte) (executeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return executeResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return executeResponse{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return executeResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return executeResponse{}, &serverError{code: resp.StatusCode, body: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return executeResponse{}, fmt.Errorf("sandbox returned %d: %s", resp.StatusCode, respBody)
	}

	var out executeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return executeResponse{}, fmt.Errorf("parse response: %w", err)
	}
	return out, nil
}

// serverError is a 5xx response from the sandbox service.
type serverError struct {
	code int
	body string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("sandbox returned %d: %s", e.code, e.body)
}

func isTransient(err error) bool {
	var se *serverError
	if errors.As(err, &se) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}
