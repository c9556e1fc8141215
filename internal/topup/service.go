package topup

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

const (
	defaultCurrency = "USDT"
	maxMintAttempts = 5

	// expiredReason is written when the sweeper rejects a stale request.
	expiredReason = "expired before review"
)

// Service coordinates internal top-up creation, verification, and the
// admin-issued approve+credit+complete flow.
type Service struct {
	repo          Repository
	cards         card.Repository
	ledger        ledger.Ledger
	gen           *fingerprint.Generator
	notifier      notification.Notifier
	walletAddress string
	now           func() time.Time
}

// NewService builds a top-up service. walletAddress is the shared Solana
// destination address.
func NewService(repo Repository, cards card.Repository, ledgerBackend ledger.Ledger, notifier notification.Notifier, walletAddress string) (*Service, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("topup wallet address is required")
	}
	if notifier == nil {
		notifier = notification.Noop{}
	}
	return &Service{
		repo:          repo,
		cards:         cards,
		ledger:        ledgerBackend,
		gen:           fingerprint.NewGenerator("TOP"),
		notifier:      notifier,
		walletAddress: walletAddress,
		now:           time.Now,
	}, nil
}

// CreateInput captures the data required to open a top-up request.
type CreateInput struct {
	OwnerEmail        string
	Amount            decimal.Decimal
	CardID            string
	Currency          string
	UserWalletAddress string
	TopupMethod       string
}

// Create validates the amount, mints a fingerprint unique among pending
// requests at the shared address, and persists a pending request.
func (s *Service) Create(ctx context.Context, input CreateInput) (Request, error) {
	if err := reconcile.ValidateAmount(input.Amount); err != nil {
		return Request{}, err
	}
	if input.CardID != "" {
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
			ID:                  uuid.NewString(),
			UserEmail:           input.OwnerEmail,
			RequestedAmount:     input.Amount,
			ExactAmount:         fp.ExactAmount,
			DecimalCode:         fp.DecimalCode,
			Currency:            currency,
			UniqueCode:          fp.UniqueCode,
			UserWalletAddress:   input.UserWalletAddress,
			SolanaWalletAddress: s.walletAddress,
			TopupMethod:         input.TopupMethod,
			Status:              StatusPending,
			CardID:              input.CardID,
			CreatedAt:           now,
			ExpiresAt:           now.Add(RequestTTL),
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

// GetAny fetches a request by id alone; callers must have passed the admin
// gate.
func (s *Service) GetAny(ctx context.Context, id string) (Request, error) {
	return s.repo.GetAny(ctx, id)
}

// List returns the owner's requests, newest first.
func (s *Service) List(ctx context.Context, ownerEmail string, limit int) ([]Request, error) {
	return s.repo.ListByOwner(ctx, ownerEmail, limit)
}

// SubmitHash attaches the user-claimed transaction hash. A pending request
// moves to verifying; a verifying one just updates the hash. The hash is
// evidence for the reviewer, never authorization to credit.
func (s *Service) SubmitHash(ctx context.Context, id, ownerEmail, hash string) (Request, error) {
	req, err := s.repo.Get(ctx, id, ownerEmail)
	if err != nil {
		return Request{}, err
	}
	if req.Status.Terminal() {
		return Request{}, reconcile.ErrConflict
	}

	now := s.now().UTC()
	switch req.Status {
	case StatusPending:
		if now.After(req.ExpiresAt) {
			if _, expErr := s.expire(ctx, id); expErr != nil && !errors.Is(expErr, reconcile.ErrConflict) {
				return Request{}, expErr
			}
			return Request{}, reconcile.ErrExpired
		}
		return s.repo.Transition(ctx, id, StatusPending, StatusUpdate{To: StatusVerifying, TransactionHash: hash})
	case StatusVerifying:
		return s.repo.Transition(ctx, id, StatusVerifying, StatusUpdate{To: StatusVerifying, TransactionHash: hash})
	default:
		// A hash on an approved request changes nothing the admin has not
		// already decided.
		return Request{}, reconcile.ErrConflict
	}
}

// IssueInput carries the admin issue parameters.
type IssueInput struct {
	ApprovedBy      string
	TransactionHash string
	AdminNotes      string
}

// Issue is the admin operation composing approve, credit, and complete as
// one idempotent call. Issuing an already-completed request returns the
// existing record without a second credit; a rejected request conflicts.
// A crash between steps is recoverable: re-issuing an approved request skips
// approval, takes the duplicate-credit path if the credit landed, and
// finishes the completion write.
func (s *Service) Issue(ctx context.Context, id string, input IssueInput) (Request, error) {
	req, err := s.repo.GetAny(ctx, id)
	if err != nil {
		return Request{}, err
	}

	now := s.now().UTC()
	switch req.Status {
	case StatusCompleted:
		return req, nil
	case StatusRejected:
		return Request{}, reconcile.ErrConflict
	case StatusPending:
		if now.After(req.ExpiresAt) {
			if _, expErr := s.expire(ctx, id); expErr != nil && !errors.Is(expErr, reconcile.ErrConflict) {
				return Request{}, expErr
			}
			return Request{}, reconcile.ErrExpired
		}
		req, err = s.approve(ctx, id, StatusPending, input, now)
	case StatusVerifying:
		req, err = s.approve(ctx, id, StatusVerifying, input, now)
	case StatusApproved:
		// Prior issue attempt crashed between approve and complete.
	default:
		return Request{}, reconcile.ErrConflict
	}
	if err != nil {
		if errors.Is(err, reconcile.ErrConflict) {
			// Lost the approval race; whoever won drives completion.
			if current, getErr := s.repo.GetAny(ctx, id); getErr == nil && current.Status == StatusCompleted {
				return current, nil
			}
		}
		return Request{}, err
	}

	return s.credit(ctx, req)
}

func (s *Service) approve(ctx context.Context, id string, from Status, input IssueInput, now time.Time) (Request, error) {
	approvedAt := now
	return s.repo.Transition(ctx, id, from, StatusUpdate{
		To:              StatusApproved,
		ApprovedAt:      &approvedAt,
		ApprovedBy:      input.ApprovedBy,
		AdminNotes:      input.AdminNotes,
		TransactionHash: input.TransactionHash,
	})
}

// credit applies the balance credit and finishes approved -> completed.
func (s *Service) credit(ctx context.Context, req Request) (Request, error) {
	target, err := reconcile.ResolveCard(ctx, s.cards, req.UserEmail, req.CardID)
	if err != nil {
		return Request{}, err
	}

	now := s.now().UTC()
	_, err = s.ledger.ApplyCredit(ctx, ledger.Credit{
		RequestID: req.ID,
		CardID:    target.ID,
		UserEmail: req.UserEmail,
		Type:      ledger.TypeTopupInternal,
		Amount:    req.RequestedAmount,
		Merchant:  ledger.MerchantInternalTopup,
		At:        now,
	})
	if err != nil && !errors.Is(err, ledger.ErrAlreadyCredited) {
		return Request{}, err
	}

	completedAt := now
	updated, err := s.repo.Transition(ctx, req.ID, StatusApproved, StatusUpdate{
		To:          StatusCompleted,
		CompletedAt: &completedAt,
	})
	if err != nil {
		return Request{}, err
	}

	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTopupCompleted,
		Destination: req.UserEmail,
		Body:        fmt.Sprintf("top-up %s credited %s %s", req.ID, req.RequestedAmount, req.Currency),
	})
	return updated, nil
}

// RejectInput carries the admin rejection parameters.
type RejectInput struct {
	Reason     string
	AdminNotes string
}

// Reject moves a pending or verifying request to rejected. Approved and
// terminal requests conflict.
func (s *Service) Reject(ctx context.Context, id string, input RejectInput) (Request, error) {
	req, err := s.repo.GetAny(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending && req.Status != StatusVerifying {
		return Request{}, reconcile.ErrConflict
	}

	rejectedAt := s.now().UTC()
	updated, err := s.repo.Transition(ctx, id, req.Status, StatusUpdate{
		To:              StatusRejected,
		RejectedAt:      &rejectedAt,
		RejectionReason: input.Reason,
		AdminNotes:      input.AdminNotes,
	})
	if err != nil {
		return Request{}, err
	}

	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTopupRejected,
		Destination: req.UserEmail,
		Body:        fmt.Sprintf("top-up %s rejected: %s", req.ID, input.Reason),
	})
	return updated, nil
}

// ExpireStale rejects pending requests past expiry. Verifying requests stay
// open for admin review. Invoked by the periodic sweeper.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	return s.repo.RejectStalePending(ctx, s.now().UTC(), expiredReason)
}

func (s *Service) expire(ctx context.Context, id string) (Request, error) {
	rejectedAt := s.now().UTC()
	return s.repo.Transition(ctx, id, StatusPending, StatusUpdate{
		To:              StatusRejected,
		RejectedAt:      &rejectedAt,
		RejectionReason: expiredReason,
	})
}
