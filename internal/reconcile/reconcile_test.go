package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/card"
)

func TestValidateAmountBounds(t *testing.T) {
	cases := []struct {
		amount string
		ok     bool
	}{
		{"0", false},
		{"-5", false},
		{"0.5", false},
		{"1", true},
		{"100", true},
		{"100000", true},
		{"100000.01", false},
	}
	for _, tc := range cases {
		err := ValidateAmount(decimal.RequireFromString(tc.amount))
		if tc.ok && err != nil {
			t.Errorf("amount %s: unexpected error %v", tc.amount, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", tc.amount, err)
		}
	}
}

func seedCard(t *testing.T, cards card.Repository, email, status string, createdAt time.Time) card.Card {
	t.Helper()
	c := card.Card{
		ID:        uuid.NewString(),
		UserEmail: email,
		Balance:   decimal.Zero,
		Status:    status,
		CreatedAt: createdAt,
	}
	if err := cards.Create(context.Background(), c); err != nil {
		t.Fatalf("seed card: %v", err)
	}
	return c
}

func TestResolveCardOldestActiveFallback(t *testing.T) {
	ctx := context.Background()
	cards := card.NewMemoryRepository()

	base := time.Now().UTC()
	oldest := seedCard(t, cards, "u@kredo.io", card.StatusActive, base.Add(-48*time.Hour))
	seedCard(t, cards, "u@kredo.io", card.StatusActive, base)
	seedCard(t, cards, "u@kredo.io", card.StatusFrozen, base.Add(-72*time.Hour))

	got, err := ResolveCard(ctx, cards, "u@kredo.io", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != oldest.ID {
		t.Fatalf("expected oldest active card %s, got %s", oldest.ID, got.ID)
	}
}

func TestResolveCardNoEligible(t *testing.T) {
	cards := card.NewMemoryRepository()
	seedCard(t, cards, "u@kredo.io", card.StatusFrozen, time.Now().UTC())

	_, err := ResolveCard(context.Background(), cards, "u@kredo.io", "")
	if !errors.Is(err, ErrNoEligibleCard) {
		t.Fatalf("expected ErrNoEligibleCard, got %v", err)
	}
}

func TestResolveCardOwnershipIsolation(t *testing.T) {
	cards := card.NewMemoryRepository()
	foreign := seedCard(t, cards, "owner@kredo.io", card.StatusActive, time.Now().UTC())

	_, err := ResolveCard(context.Background(), cards, "intruder@kredo.io", foreign.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign card, got %v", err)
	}
}

func TestResolveCardExplicitInactive(t *testing.T) {
	cards := card.NewMemoryRepository()
	frozen := seedCard(t, cards, "u@kredo.io", card.StatusFrozen, time.Now().UTC())

	_, err := ResolveCard(context.Background(), cards, "u@kredo.io", frozen.ID)
	if !errors.Is(err, ErrNoEligibleCard) {
		t.Fatalf("expected ErrNoEligibleCard, got %v", err)
	}
}
