package codeloop

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatal("IDs must be unique")
	}
	if a >= b {
		t.Errorf("IDs should sort by creation: %s >= %s", a, b)
	}
	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("not a UUID: %v", err)
	}
	if id.Version() != 7 {
		t.Errorf("got version %d, want 7", id.Version())
	}
}
