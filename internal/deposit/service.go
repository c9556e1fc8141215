package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/card"
	"github.com/kredo-pay/kredo_pay/internal/fingerprint"
	"github.com/kredo-pay/kredo_pay/internal/ledger"
	"github.com/kredo-pay/kredo_pay/internal/notification"
	"github.com/kredo-pay/kredo_pay/internal/reconcile"
)

// ErrInvalidStatus rejects status values outside the deposit lifecycle.
var ErrInvalidStatus = errors.New("invalid deposit status")

const (
	defaultCurrency = "USDT"
	// fingerprint regeneration attempts before giving up on a crowded
	// wallet address
	maxMintAttempts = 5
)

// Service coordinates deposit request creation and reconciliation.
type Service struct {
	repo          Repository
	cards         card.Repository
	ledger        ledger.Ledger
	gen           *fingerprint.Generator
	notifier      notification.Notifier
	walletAddress string
	now           func() time.Time
}

// NewService builds a deposit service. walletAddress is the shared
// destination users transfer to.
func NewService(repo Repository, cards card.Repository, ledgerBackend ledger.Ledger, notifier notification.Notifier, walletAddress string) (*Service, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("deposit wallet address is required")
	}
	if notifier == nil {
		notifier = notification.Noop{}
	}
	return &Service{
		repo:          repo,
		cards:         cards,
		ledger:        ledgerBackend,
		gen:           fingerprint.NewGenerator("DEP"),
		notifier:      notifier,
		walletAddress: walletAddress,
		now:           time.Now,
	}, nil
}

// CreateInput captures the data required to open a deposit request.
type CreateInput struct {
	OwnerEmail string
	Amount     decimal.Decimal
	CardID     string
	Currency   string
}

// Create validates the amount, mints a fingerprint unique among pending
// requests at the wallet address, and persists a pending request.
func (s *Service) Create(ctx context.Context, input CreateInput) (Request, error) {
	if err := reconcile.ValidateAmount(input.Amount); err != nil {
		return Request{}, err
	}
	if input.CardID != "" {
		// Fail fast on a card the credit step could never use.
		if _, err := reconcile.ResolveCard(ctx, s.cards, input.OwnerEmail, input.CardID); err != nil {
			return Request{}, err
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.now().UTC()
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		fp, err := s.gen.Generate(input.Amount)
		if err != nil {
			return Request{}, err
		}

		req := Request{
			ID:              uuid.NewString(),
			UserEmail:       input.OwnerEmail,
			RequestedAmount: input.Amount,
			ExactAmount:     fp.ExactAmount,
			DecimalCode:     fp.DecimalCode,
			Currency:        currency,
			UniqueCode:      fp.UniqueCode,
			WalletAddress:   s.walletAddress,
			Status:          StatusPending,
			CardID:          input.CardID,
			CreatedAt:       now,
			ExpiresAt:       now.Add(RequestTTL),
		}

		err = s.repo.Create(ctx, req)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, ErrFingerprintTaken) {
			return Request{}, err
		}
	}
	return Request{}, reconcile.ErrFingerprintExhausted
}

// Get fetches an owner-scoped request.
func (s *Service) Get(ctx context.Context, id, ownerEmail string) (Request, error) {
	return s.repo.Get(ctx, id, ownerEmail)
}

// List returns the owner's requests, newest first.
func (s *Service) List(ctx context.Context, ownerEmail string, limit int) ([]Request, error) {
	return s.repo.ListByOwner(ctx, ownerEmail, limit)
}

// UpdateStatusInput carries an optional status change and an optional
// transaction-hash hint.
type UpdateStatusInput struct {
	Status          string
	TransactionHash string
}

// UpdateStatus drives the deposit state machine. A transition into completed
// performs the balance credit; a transaction hash alone attaches evidence
// without changing status. Requests past expiry are actively expired and the
// caller's change refused.
func (s *Service) UpdateStatus(ctx context.Context, id, ownerEmail string, input UpdateStatusInput) (Request, error) {
	var to Status
	if input.Status != "" {
		to = Status(input.Status)
		if !to.Valid() {
			return Request{}, ErrInvalidStatus
		}
	}

	req, err := s.repo.Get(ctx, id, ownerEmail)
	if err != nil {
		return Request{}, err
	}
	if req.Status.Terminal() {
		return Request{}, reconcile.ErrConflict
	}

	now := s.now().UTC()
	if now.After(req.ExpiresAt) && to != StatusExpired {
		if _, expErr := s.repo.Transition(ctx, id, ownerEmail, StatusPending, StatusUpdate{To: StatusExpired}); expErr != nil && !errors.Is(expErr, reconcile.ErrConflict) {
			return Request{}, expErr
		}
		return Request{}, reconcile.ErrExpired
	}

	switch to {
	case "", StatusPending:
		if input.TransactionHash == "" {
			return req, nil
		}
		return s.repo.Transition(ctx, id, ownerEmail, StatusPending, StatusUpdate{
			To:              StatusPending,
			TransactionHash: input.TransactionHash,
		})
	case StatusFailed, StatusExpired:
		return s.repo.Transition(ctx, id, ownerEmail, StatusPending, StatusUpdate{
			To:              to,
			TransactionHash: input.TransactionHash,
		})
	case StatusCompleted:
		return s.complete(ctx, req, input.TransactionHash, now)
	default:
		return Request{}, ErrInvalidStatus
	}
}

// complete credits the card and marks the request completed. The credit is
// applied first: its request-id key makes it exactly-once, and a failure
// after crediting leaves the request pending and safely retryable.
func (s *Service) complete(ctx context.Context, req Request, hash string, now time.Time) (Request, error) {
	target, err := reconcile.ResolveCard(ctx, s.cards, req.UserEmail, req.CardID)
	if err != nil {
		return Request{}, err
	}

	_, err = s.ledger.ApplyCredit(ctx, ledger.Credit{
		RequestID: req.ID,
		CardID:    target.ID,
		UserEmail: req.UserEmail,
		Type:      ledger.TypeTopup,
		Amount:    req.RequestedAmount,
		Merchant:  ledger.MerchantDeposit,
		At:        now,
	})
	if err != nil && !errors.Is(err, ledger.ErrAlreadyCredited) {
		return Request{}, err
	}

	completedAt := now
	updated, err := s.repo.Transition(ctx, req.ID, req.UserEmail, StatusPending, StatusUpdate{
		To:              StatusCompleted,
		CompletedAt:     &completedAt,
		TransactionHash: hash,
	})
	if err != nil {
		return Request{}, err
	}

	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindDepositCompleted,
		Destination: req.UserEmail,
		Body:        fmt.Sprintf("deposit %s credited %s %s", req.ID, req.RequestedAmount, req.Currency),
	})
	return updated, nil
}

// ExpireStale sweeps pending requests past expiry. Invoked by the periodic
// sweeper.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	return s.repo.ExpireStale(ctx, s.now().UTC())
}
