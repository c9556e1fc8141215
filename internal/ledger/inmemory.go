package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/card"
)

type inMemoryLedger struct {
	mu        sync.Mutex
	cards     card.Repository
	byRequest map[string]Entry
}

// NewInMemory creates a concurrency-safe in-memory ledger over the provided
// card repository. Useful for unit tests and database-less development.
func NewInMemory(cards card.Repository) Ledger {
	return &inMemoryLedger{cards: cards, byRequest: make(map[string]Entry)}
}

func (l *inMemoryLedger) ApplyCredit(ctx context.Context, credit Credit) (Entry, error) {
	if credit.Amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidCredit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byRequest[credit.RequestID]; ok {
		return existing, ErrAlreadyCredited
	}

	target, err := l.cards.Get(ctx, credit.CardID)
	if err != nil {
		if errors.Is(err, card.ErrNotFound) {
			return Entry{}, ErrCardNotFound
		}
		return Entry{}, err
	}
	if target.UserEmail != credit.UserEmail {
		return Entry{}, ErrCardNotFound
	}

	if _, err := l.cards.Credit(ctx, credit.CardID, credit.Amount, credit.At); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		RequestID: credit.RequestID,
		CardID:    credit.CardID,
		UserEmail: credit.UserEmail,
		Type:      credit.Type,
		Amount:    credit.Amount,
		Merchant:  credit.Merchant,
		Timestamp: credit.At.UTC(),
		Status:    StatusCompleted,
	}
	l.byRequest[credit.RequestID] = entry
	return entry, nil
}

func (l *inMemoryLedger) EntryForRequest(_ context.Context, requestID string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.byRequest[requestID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}
