package admin

import (
	"errors"
	"testing"
)

func TestGateAuthorizesConfiguredKey(t *testing.T) {
	gate, err := NewGate("s3cret-admin-key")
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	identity, err := gate.Authorize("s3cret-admin-key")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if identity != Identity {
		t.Fatalf("unexpected identity %q", identity)
	}
}

func TestGateDeniesWrongKey(t *testing.T) {
	gate, _ := NewGate("s3cret-admin-key")
	if _, err := gate.Authorize("guess"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := gate.Authorize(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty key, got %v", err)
	}
}

func TestUnconfiguredGateDeniesEverything(t *testing.T) {
	gate, _ := NewGate("")
	if _, err := gate.Authorize("anything"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unconfigured gate must deny, got %v", err)
	}
}
