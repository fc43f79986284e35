package codeloop

// AttemptLog is the append-only history of one Loop run: every failed
// attempt and every corrected candidate the generator produced.
// Entries are never removed or modified once appended.
type AttemptLog struct {
	errors      []Attempt
	corrections []string
}

// NewAttemptLog returns an empty log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{}
}

// Record appends a failed attempt.
func (l *AttemptLog) Record(a Attempt) {
	l.errors = append(l.errors, a)
}

// AddCorrection appends a corrected candidate.
func (l *AttemptLog) AddCorrection(code string) {
	l.corrections = append(l.corrections, code)
}

// Errors returns a copy of the failed attempts in order.
func (l *AttemptLog) Errors() []Attempt {
	out := make([]Attempt, len(l.errors))
	copy(out, l.errors)
	return out
}

// Corrections returns a copy of the corrected candidates in order.
func (l *AttemptLog) Corrections() []string {
	out := make([]string, len(l.corrections))
	copy(out, l.corrections)
	return out
}

// Len returns the number of recorded failed attempts.
func (l *AttemptLog) Len() int { return len(l.errors) }
