package codeloop

import "github.com/google/uuid"

// NewID returns a UUIDv7 string. Later IDs sort after earlier ones, so run
// IDs and scratch file names order by creation time. If the v7 generator
// fails a random v4 ID is returned instead.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
