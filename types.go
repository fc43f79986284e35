package codeloop

import (
	"fmt"
	"strings"
	"time"
)

// --- Language ---

// Language identifies how a candidate is executed.
type Language int

const (
	LangUnknown Language = iota
	LangPython
	LangJavaScript
	LangSQL
)

// String returns the canonical lowercase name ("python", "javascript", "sql").
func (l Language) String() string {
	switch l {
	case LangPython:
		return "python"
	case LangJavaScript:
		return "javascript"
	case LangSQL:
		return "sql"
	default:
		return "unknown"
	}
}

// ParseLanguage maps a language name or common alias to a Language.
// Matching is case-insensitive.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py", "python3":
		return LangPython, nil
	case "javascript", "js", "node", "nodejs":
		return LangJavaScript, nil
	case "sql", "sqlite":
		return LangSQL, nil
	}
	return LangUnknown, fmt.Errorf("unknown language %q", s)
}

// Candidate is code proposed for execution together with its language.
type Candidate struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
}

// --- Execution results ---

// ErrorKind classifies a failed execution.
type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindRuntime ErrorKind = "runtime-error"
	KindSyntax  ErrorKind = "syntax-error"
	KindLaunch  ErrorKind = "launch-failure"
)

// ExecResult is the outcome of one Executor call. A successful result has
// OK set and carries Output; a failed one carries Kind and Message.
type ExecResult struct {
	OK       bool          `json:"ok"`
	Output   string        `json:"output,omitempty"`
	Kind     ErrorKind     `json:"kind,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"-"`
}

// Ok returns a successful result.
func Ok(output string) ExecResult {
	return ExecResult{OK: true, Output: output}
}

// Fail returns a failed result of the given kind.
func Fail(kind ErrorKind, message string) ExecResult {
	return ExecResult{Kind: kind, Message: message}
}

// Err returns nil for a successful result and an *ExecError otherwise.
func (r ExecResult) Err() error {
	if r.OK {
		return nil
	}
	return &ExecError{Kind: r.Kind, Message: r.Message}
}

// Attempt is one executed candidate and its failing result.
type Attempt struct {
	Index     int        `json:"index"`
	Candidate Candidate  `json:"candidate"`
	Result    ExecResult `json:"result"`
}

// --- Run outcome ---

// OutcomeStatus is the terminal state of a Loop run.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeExhausted OutcomeStatus = "exhausted"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// Outcome describes how a Loop run ended.
type Outcome struct {
	RunID  string        `json:"run_id"`
	Status OutcomeStatus `json:"status"`
	// Code is the final candidate source. Set only on success.
	Code     string   `json:"code,omitempty"`
	Language Language `json:"language"`
	// Output is what the final candidate printed. Set only on success.
	Output string `json:"output,omitempty"`
	// Reason explains a rejection.
	Reason string `json:"reason,omitempty"`
	// Last is the final failed execution of an exhausted run.
	Last ExecResult `json:"last,omitempty"`
	// Attempts counts executor invocations.
	Attempts int         `json:"attempts"`
	Log      *AttemptLog `json:"-"`
	// Err is nil on success and a *RejectedError or *ExhaustedError otherwise.
	Err error `json:"-"`
}
