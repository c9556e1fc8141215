// Package admin implements the approval gate for admin-path operations. It
// is a shared-secret check, deliberately distinct from end-user
// authentication: approving or issuing a top-up never relies on a user token.
package admin

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized indicates the caller presented a missing or wrong admin key.
var ErrUnauthorized = errors.New("admin key unauthorized")

// Identity is the audit label recorded for gate-authorized operations.
const Identity = "admin"

// Gate authorizes admin-path calls against a server-held secret. An
// unconfigured secret denies every caller; it never silently allows.
type Gate struct {
	hash []byte
}

// NewGate hashes the configured admin key at construction so the plaintext
// secret is not retained in memory.
func NewGate(secret string) (*Gate, error) {
	if secret == "" {
		return &Gate{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: hash}, nil
}

// Authorize checks the caller-supplied key and returns the admin identity on
// success.
func (g *Gate) Authorize(providedKey string) (string, error) {
	if g == nil || len(g.hash) == 0 || providedKey == "" {
		return "", ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(providedKey)); err != nil {
		return "", ErrUnauthorized
	}
	return Identity, nil
}
