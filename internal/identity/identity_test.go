package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestDeriveDeterministic(t *testing.T) {
	agent := uuid.New()
	shared := uuid.New().String()

	a := Derive(agent, shared)
	b := Derive(agent, shared)
	if a != b {
		t.Fatalf("expected identical derivations, got %s and %s", a, b)
	}
}

func TestDeriveIsolatesAgents(t *testing.T) {
	shared := uuid.New().String()

	a := Derive(uuid.New(), shared)
	b := Derive(uuid.New(), shared)
	if a == b {
		t.Fatal("two agents derived the same local id for one shared id")
	}
}

func TestDeriveSeparatesSharedIDs(t *testing.T) {
	agent := uuid.New()

	a := Derive(agent, "channel-one")
	b := Derive(agent, "channel-two")
	if a == b {
		t.Fatal("distinct shared ids collided for one agent")
	}
}

func TestDeriveIsNotIdentity(t *testing.T) {
	agent := uuid.New()
	shared := uuid.New()

	derived := Derive(agent, shared.String())
	if derived == shared || derived == agent {
		t.Fatal("derived id must not echo its inputs")
	}
}

func TestNewIsUnique(t *testing.T) {
	if New() == New() {
		t.Fatal("expected distinct generated ids")
	}
}
