package topup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/card"
	"github.com/kredo-pay/kredo_pay/internal/ledger"
	"github.com/kredo-pay/kredo_pay/internal/reconcile"
)

const testSolanaWallet = "3nQf8yTb1KpLm6XwCzRv9JdHs2EaG5oUi7VrN4kWqPst"

type fixture struct {
	svc    *Service
	cards  card.Repository
	ledger ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cards := card.NewMemoryRepository()
	ledgerBackend := ledger.NewInMemory(cards)
	svc, err := NewService(NewMemoryRepository(), cards, ledgerBackend, nil, testSolanaWallet)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, cards: cards, ledger: ledgerBackend}
}

func (f *fixture) seedCard(t *testing.T, email, balance string) card.Card {
	t.Helper()
	c := card.Card{
		ID:        uuid.NewString(),
		UserEmail: email,
		Balance:   decimal.RequireFromString(balance),
		Status:    card.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.cards.Create(context.Background(), c); err != nil {
		t.Fatalf("seed card: %v", err)
	}
	return c
}

func (f *fixture) createRequest(t *testing.T, email string, amount int64) Request {
	t.Helper()
	req, err := f.svc.Create(context.Background(), CreateInput{
		OwnerEmail:        email,
		Amount:            decimal.NewFromInt(amount),
		UserWalletAddress: "FvK9sRw2mQxT7aPz4cLbYh8NdUj3eWi6oB1rG5nHtkXy",
		TopupMethod:       "crypto_transfer",
	})
	if err != nil {
		t.Fatalf("create topup: %v", err)
	}
	return req
}

func TestSubmitHashMovesPendingToVerifying(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.createRequest(t, "u@kredo.io", 50)
	updated, err := f.svc.SubmitHash(ctx, req.ID, "u@kredo.io", "5JvQw8j3JH2mK9sL")
	if err != nil {
		t.Fatalf("submit hash: %v", err)
	}
	if updated.Status != StatusVerifying {
		t.Fatalf("expected verifying, got %s", updated.Status)
	}
	if updated.TransactionHash != "5JvQw8j3JH2mK9sL" {
		t.Fatalf("hash not attached")
	}

	// Resubmission replaces the hash without changing state.
	updated, err = f.svc.SubmitHash(ctx, req.ID, "u@kredo.io", "9XyZw1a2b3c4d5e6")
	if err != nil {
		t.Fatalf("resubmit hash: %v", err)
	}
	if updated.Status != StatusVerifying {
		t.Fatalf("expected verifying after resubmit, got %s", updated.Status)
	}
}

func TestIssueIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.seedCard(t, "u@kredo.io", "0")
	req := f.createRequest(t, "u@kredo.io", 200)

	if _, err := f.svc.SubmitHash(ctx, req.ID, "u@kredo.io", "5JvQw8j3JH2mK9sL"); err != nil {
		t.Fatalf("submit hash: %v", err)
	}

	issued, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops@kredo.io"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", issued.Status)
	}
	if issued.ApprovedBy != "ops@kredo.io" {
		t.Fatalf("expected approver recorded, got %q", issued.ApprovedBy)
	}
	if issued.ApprovedAt == nil || issued.CompletedAt == nil {
		t.Fatal("expected approval and completion timestamps")
	}
	if issued.CompletedAt.Before(*issued.ApprovedAt) {
		t.Fatal("completedAt must not precede approvedAt")
	}

	got, _ := f.cards.Get(ctx, target.ID)
	if !got.Balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected balance 200, got %s", got.Balance)
	}

	// Second issue returns the same record and credits nothing.
	again, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops2@kredo.io"})
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if again.Status != StatusCompleted || again.ApprovedBy != "ops@kredo.io" {
		t.Fatalf("reissue should return the original record")
	}
	got, _ = f.cards.Get(ctx, target.ID)
	if !got.Balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("balance changed on reissue: %s", got.Balance)
	}

	entry, err := f.ledger.EntryForRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("ledger entry: %v", err)
	}
	if entry.Type != ledger.TypeTopupInternal {
		t.Fatalf("expected topup_internal entry, got %s", entry.Type)
	}
}

func TestIssueDirectlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedCard(t, "u@kredo.io", "10")
	req := f.createRequest(t, "u@kredo.io", 40)

	issued, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops@kredo.io"})
	if err != nil {
		t.Fatalf("issue from pending: %v", err)
	}
	if issued.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", issued.Status)
	}
}

func TestIssueRecoversFromApprovedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.seedCard(t, "u@kredo.io", "0")
	req := f.createRequest(t, "u@kredo.io", 75)

	// Simulate a crash after approval but before credit/completion.
	approvedAt := time.Now().UTC()
	if _, err := f.svc.repo.Transition(ctx, req.ID, StatusPending, StatusUpdate{
		To:         StatusApproved,
		ApprovedAt: &approvedAt,
		ApprovedBy: "ops@kredo.io",
	}); err != nil {
		t.Fatalf("force approve: %v", err)
	}

	issued, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops2@kredo.io"})
	if err != nil {
		t.Fatalf("issue retry: %v", err)
	}
	if issued.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", issued.Status)
	}
	if issued.ApprovedBy != "ops@kredo.io" {
		t.Fatalf("retry must not overwrite the original approver")
	}

	got, _ := f.cards.Get(ctx, target.ID)
	if !got.Balance.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected balance 75, got %s", got.Balance)
	}
}

func TestRejectFromPendingAndVerifying(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.createRequest(t, "u@kredo.io", 30)
	rejected, err := f.svc.Reject(ctx, pending.ID, RejectInput{Reason: "no matching transfer"})
	if err != nil {
		t.Fatalf("reject pending: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.RejectionReason != "no matching transfer" {
		t.Fatalf("unexpected rejection record: %+v", rejected)
	}
	if rejected.RejectedAt == nil {
		t.Fatal("expected rejectedAt timestamp")
	}

	// Rejected is terminal: issuing or re-rejecting conflicts.
	if _, err := f.svc.Issue(ctx, pending.ID, IssueInput{}); !errors.Is(err, reconcile.ErrConflict) {
		t.Fatalf("expected ErrConflict issuing rejected request, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, pending.ID, RejectInput{Reason: "again"}); !errors.Is(err, reconcile.ErrConflict) {
		t.Fatalf("expected ErrConflict re-rejecting, got %v", err)
	}
}

func TestRejectCompletedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedCard(t, "u@kredo.io", "0")
	req := f.createRequest(t, "u@kredo.io", 60)
	if _, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops@kredo.io"}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := f.svc.Reject(ctx, req.ID, RejectInput{Reason: "too late"}); !errors.Is(err, reconcile.ErrConflict) {
		t.Fatalf("expected ErrConflict rejecting completed request, got %v", err)
	}
}

func TestIssueWithoutEligibleCardLeavesRequestRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.createRequest(t, "u@kredo.io", 25)
	_, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops@kredo.io"})
	if !errors.Is(err, reconcile.ErrNoEligibleCard) {
		t.Fatalf("expected ErrNoEligibleCard, got %v", err)
	}

	// Once a card exists, the retry drives the approved request home.
	target := f.seedCard(t, "u@kredo.io", "0")
	issued, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops@kredo.io"})
	if err != nil {
		t.Fatalf("issue retry: %v", err)
	}
	if issued.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", issued.Status)
	}
	got, _ := f.cards.Get(ctx, target.ID)
	if !got.Balance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected balance 25, got %s", got.Balance)
	}
}

func TestStalePendingExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedCard(t, "u@kredo.io", "0")
	req := f.createRequest(t, "u@kredo.io", 25)
	f.svc.now = func() time.Time { return req.ExpiresAt.Add(time.Minute) }

	_, err := f.svc.Issue(ctx, req.ID, IssueInput{ApprovedBy: "ops@kredo.io"})
	if !errors.Is(err, reconcile.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	stored, _ := f.svc.GetAny(ctx, req.ID)
	if stored.Status != StatusRejected || stored.RejectionReason != expiredReason {
		t.Fatalf("stale request should be rejected as expired, got %+v", stored)
	}
}

func TestSweeperRejectsStalePendingOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.createRequest(t, "u@kredo.io", 25)
	verifying := f.createRequest(t, "u@kredo.io", 35)
	if _, err := f.svc.SubmitHash(ctx, verifying.ID, "u@kredo.io", "5JvQw8j3JH2mK9sL"); err != nil {
		t.Fatalf("submit hash: %v", err)
	}

	f.svc.now = func() time.Time { return stale.ExpiresAt.Add(time.Minute) }
	swept, err := f.svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept request, got %d", swept)
	}

	v, _ := f.svc.GetAny(ctx, verifying.ID)
	if v.Status != StatusVerifying {
		t.Fatalf("verifying request must survive the sweep, got %s", v.Status)
	}
}

func TestTopupOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.createRequest(t, "owner@kredo.io", 25)
	if _, err := f.svc.Get(ctx, req.ID, "intruder@kredo.io"); !errors.Is(err, reconcile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.SubmitHash(ctx, req.ID, "intruder@kredo.io", "5JvQw8j3JH2mK9sL"); !errors.Is(err, reconcile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
