package codeloop

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrGenerationFailed means the Generator returned nothing usable.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrEmptyCode means a candidate was empty after cleanup.
	ErrEmptyCode = errors.New("empty code")
	// ErrExhausted means every allowed attempt failed.
	ErrExhausted = errors.New("attempts exhausted")
)

// RejectedError ends a run before any candidate could be executed successfully
// or at all. It wraps ErrGenerationFailed or ErrEmptyCode.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string { return e.Reason }
func (e *RejectedError) Unwrap() error { return e.Err }

// ExhaustedError ends a run whose every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     ExecResult
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("Échec après %d tentatives. Dernière erreur :\n%s", e.Attempts, e.Last.Message)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// ExecError is the error form of a failed ExecResult.
type ExecError struct {
	Kind    ErrorKind
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrLLM is a provider-side failure that is not an HTTP status error.
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx response from a provider backend.
type ErrHTTP struct {
	Status int
	Body   string
	// RetryAfter is the server-requested wait parsed from the Retry-After header.
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header value in delta-seconds or
// HTTP-date form. Unparseable or past values yield 0.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
