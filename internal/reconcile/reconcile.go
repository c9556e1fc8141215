// Package reconcile holds the funding error taxonomy and the rules shared by
// both request flavors: amount bounds and credit-target card resolution.
package reconcile

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/card"
)

var (
	// ErrInvalidAmount rejects amounts outside the accepted funding range.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound covers requests and cards absent or not owned by the caller.
	ErrNotFound = errors.New("request not found")

	// ErrConflict rejects transitions out of a terminal state and duplicate
	// credit attempts.
	ErrConflict = errors.New("conflicting status transition")

	// ErrExpired rejects status changes on a request past its expiry.
	ErrExpired = errors.New("request expired")

	// ErrNoEligibleCard indicates the owner has no active card to credit;
	// the request stays pending.
	ErrNoEligibleCard = errors.New("no eligible card")

	// ErrFingerprintExhausted indicates fingerprint generation kept
	// colliding with concurrently pending requests.
	ErrFingerprintExhausted = errors.New("could not mint a unique amount fingerprint")
)

var (
	// MinAmount is the smallest accepted funding amount in dollars.
	MinAmount = decimal.NewFromInt(1)
	// MaxAmount is the largest accepted funding amount in dollars.
	MaxAmount = decimal.NewFromInt(100_000)
)

// ValidateAmount enforces the funding amount bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if amount.LessThan(MinAmount) || amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// ResolveCard picks the credit target for a funding request. An explicit
// cardID must exist, belong to the owner, and be active; without one the
// owner's oldest-created active card is used.
func ResolveCard(ctx context.Context, cards card.Repository, ownerEmail, cardID string) (card.Card, error) {
	if cardID == "" {
		c, err := cards.OldestActive(ctx, ownerEmail)
		if err != nil {
			if errors.Is(err, card.ErrNoActiveCard) {
				return card.Card{}, ErrNoEligibleCard
			}
			return card.Card{}, err
		}
		return c, nil
	}

	c, err := cards.Get(ctx, cardID)
	if err != nil {
		if errors.Is(err, card.ErrNotFound) {
			return card.Card{}, ErrNotFound
		}
		return card.Card{}, err
	}
	if c.UserEmail != ownerEmail {
		// Never reveal another user's card.
		return card.Card{}, ErrNotFound
	}
	if c.Status != card.StatusActive {
		return card.Card{}, ErrNoEligibleCard
	}
	return c, nil
}
