package card

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Card
}

// NewMemoryRepository constructs an in-memory repository for tests and
// database-less development.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Card)}
}

func (r *memoryRepository) Create(_ context.Context, c Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[c.ID]; exists {
		return errors.New("card exists")
	}
	r.storage[c.ID] = c
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.storage[id]
	if !ok {
		return Card{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) OldestActive(_ context.Context, ownerEmail string) (Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Card
	found := false
	for _, c := range r.storage {
		if c.UserEmail != ownerEmail || c.Status != StatusActive {
			continue
		}
		if !found || c.CreatedAt.Before(best.CreatedAt) {
			best = c
			found = true
		}
	}
	if !found {
		return Card{}, ErrNoActiveCard
	}
	return best, nil
}

func (r *memoryRepository) Credit(_ context.Context, id string, amount decimal.Decimal, at time.Time) (Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.storage[id]
	if !ok {
		return Card{}, ErrNotFound
	}
	c.Balance = c.Balance.Add(amount)
	c.LastUsed = at.UTC()
	r.storage[id] = c
	return c, nil
}
