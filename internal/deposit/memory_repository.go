package deposit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kredo-pay/kredo_pay/internal/reconcile"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Request
}

// NewMemoryRepository constructs an in-memory repository for tests and
// database-less development.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Request)}
}

func (r *memoryRepository) Create(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[req.ID]; exists {
		return errors.New("deposit request exists")
	}
	for _, other := range r.storage {
		if other.Status == StatusPending &&
			other.WalletAddress == req.WalletAddress &&
			other.ExactAmount.Equal(req.ExactAmount) {
			return ErrFingerprintTaken
		}
	}
	r.storage[req.ID] = req
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id, ownerEmail string) (Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.storage[id]
	if !ok || req.UserEmail != ownerEmail {
		return Request{}, reconcile.ErrNotFound
	}
	return req, nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerEmail string, limit int) ([]Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var out []Request
	for _, req := range r.storage {
		if req.UserEmail == ownerEmail {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) Transition(_ context.Context, id, ownerEmail string, from Status, upd StatusUpdate) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.storage[id]
	if !ok || req.UserEmail != ownerEmail {
		return Request{}, reconcile.ErrNotFound
	}
	if req.Status != from {
		return Request{}, reconcile.ErrConflict
	}
	req.Status = upd.To
	if upd.CompletedAt != nil {
		t := upd.CompletedAt.UTC()
		req.CompletedAt = &t
	}
	if upd.TransactionHash != "" {
		req.TransactionHash = upd.TransactionHash
	}
	r.storage[id] = req
	return req, nil
}

func (r *memoryRepository) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var swept int64
	for id, req := range r.storage {
		if req.Status == StatusPending && req.ExpiresAt.Before(now) {
			req.Status = StatusExpired
			r.storage[id] = req
			swept++
		}
	}
	return swept, nil
}
