package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/card"
)

func newTestCard(t *testing.T, cards card.Repository, email, balance string) card.Card {
	t.Helper()
	c := card.Card{
		ID:        uuid.NewString(),
		UserEmail: email,
		Balance:   decimal.RequireFromString(balance),
		Status:    card.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := cards.Create(context.Background(), c); err != nil {
		t.Fatalf("create card: %v", err)
	}
	return c
}

func TestApplyCreditIncrementsBalanceOnce(t *testing.T) {
	ctx := context.Background()
	cards := card.NewMemoryRepository()
	l := NewInMemory(cards)

	c := newTestCard(t, cards, "user@kredo.io", "50.00")

	credit := Credit{
		RequestID: "req-1",
		CardID:    c.ID,
		UserEmail: c.UserEmail,
		Type:      TypeTopup,
		Amount:    decimal.RequireFromString("100"),
		Merchant:  MerchantDeposit,
		At:        time.Now().UTC(),
	}

	entry, err := l.ApplyCredit(ctx, credit)
	if err != nil {
		t.Fatalf("apply credit: %v", err)
	}
	if entry.Status != StatusCompleted {
		t.Fatalf("unexpected entry status %q", entry.Status)
	}

	updated, err := cards.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected balance 150.00, got %s", updated.Balance)
	}

	// Second application must be rejected and leave the balance alone.
	dup, err := l.ApplyCredit(ctx, credit)
	if !errors.Is(err, ErrAlreadyCredited) {
		t.Fatalf("expected ErrAlreadyCredited, got %v", err)
	}
	if dup.ID != entry.ID {
		t.Fatalf("duplicate should return the original entry")
	}
	updated, _ = cards.Get(ctx, c.ID)
	if !updated.Balance.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("balance changed on duplicate credit: %s", updated.Balance)
	}
}

func TestApplyCreditRejectsForeignCard(t *testing.T) {
	ctx := context.Background()
	cards := card.NewMemoryRepository()
	l := NewInMemory(cards)

	c := newTestCard(t, cards, "owner@kredo.io", "0")

	_, err := l.ApplyCredit(ctx, Credit{
		RequestID: "req-2",
		CardID:    c.ID,
		UserEmail: "intruder@kredo.io",
		Type:      TypeTopup,
		Amount:    decimal.NewFromInt(10),
		At:        time.Now().UTC(),
	})
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestApplyCreditRejectsNonPositiveAmount(t *testing.T) {
	cards := card.NewMemoryRepository()
	l := NewInMemory(cards)

	_, err := l.ApplyCredit(context.Background(), Credit{
		RequestID: "req-3",
		Amount:    decimal.Zero,
	})
	if !errors.Is(err, ErrInvalidCredit) {
		t.Fatalf("expected ErrInvalidCredit, got %v", err)
	}
}

func TestApplyCreditConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	cards := card.NewMemoryRepository()
	l := NewInMemory(cards)

	c := newTestCard(t, cards, "racer@kredo.io", "0")

	const workers = 16
	var wg sync.WaitGroup
	var applied int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ApplyCredit(ctx, Credit{
				RequestID: "race-req",
				CardID:    c.ID,
				UserEmail: c.UserEmail,
				Type:      TypeTopup,
				Amount:    decimal.NewFromInt(25),
				At:        time.Now().UTC(),
			})
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyCredited) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("expected exactly one successful credit, got %d", applied)
	}
	updated, _ := cards.Get(ctx, c.ID)
	if !updated.Balance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected balance 25 after %d racers, got %s", workers, updated.Balance)
	}
}

func TestConcurrentCreditsDifferentRequests(t *testing.T) {
	ctx := context.Background()
	cards := card.NewMemoryRepository()
	l := NewInMemory(cards)

	c := newTestCard(t, cards, "busy@kredo.io", "0")

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.ApplyCredit(ctx, Credit{
				RequestID: fmt.Sprintf("req-%d", i),
				CardID:    c.ID,
				UserEmail: c.UserEmail,
				Type:      TypeTopup,
				Amount:    decimal.NewFromInt(500),
				At:        time.Now().UTC(),
			})
			if err != nil {
				t.Errorf("credit %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	updated, _ := cards.Get(ctx, c.ID)
	if !updated.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected balance 5000, got %s", updated.Balance)
	}
}
