// Package identity derives stable agent-local identifiers from shared
// hub identifiers.
package identity

import (
	"github.com/google/uuid"
)

// Derive maps a shared hub identifier into an identifier local to one
// agent. It is a pure one-way function: the same (agent, shared) pair
// always yields the same result, including across process restarts, and
// distinct agents get unrelated results for the same shared id. The
// original shared id cannot be recovered from the output; routing back
// to the hub goes through explicit lookup records instead.
func Derive(agentID uuid.UUID, sharedID string) uuid.UUID {
	return uuid.NewSHA1(agentID, []byte(sharedID))
}

// New generates a time-ordered UUID v7 for freshly allocated records.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
