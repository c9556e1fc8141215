package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyCredited indicates a ledger entry already exists for the
	// funding request, so the credit must not be applied again.
	ErrAlreadyCredited = errors.New("request already credited")

	// ErrCardNotFound indicates the credit target card is missing or not
	// owned by the request's user.
	ErrCardNotFound = errors.New("credit target card not found")

	// ErrInvalidCredit indicates a non-positive credit amount.
	ErrInvalidCredit = errors.New("invalid credit amount")

	// ErrEntryNotFound indicates no ledger entry references the request id.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

const (
	// TypeTopup labels entries produced by self-service deposits.
	TypeTopup = "topup"
	// TypeTopupInternal labels entries produced by admin-issued top-ups.
	TypeTopupInternal = "topup_internal"

	// StatusCompleted is the only status a funding entry is written with.
	StatusCompleted = "completed"

	// MerchantDeposit is the human label on self-service deposit entries.
	MerchantDeposit = "Kredo Deposit"
	// MerchantInternalTopup is the human label on admin-issued entries.
	MerchantInternalTopup = "Kredo Internal Top-Up"
)

// Entry is one immutable record of a balance-affecting funding event.
// RequestID is the idempotency key: at most one entry exists per funding
// request.
type Entry struct {
	ID        string
	RequestID string
	CardID    string
	UserEmail string
	Type      string
	Amount    decimal.Decimal
	Merchant  string
	Timestamp time.Time
	Status    string
}

// Credit describes a funding credit to apply. Amount carries the requested
// amount, never the fingerprinted exact amount.
type Credit struct {
	RequestID string
	CardID    string
	UserEmail string
	Type      string
	Amount    decimal.Decimal
	Merchant  string
	At        time.Time
}

// Ledger applies funding credits exactly once. ApplyCredit appends the
// ledger entry and increments the card balance as one unit: the entry
// append, keyed by request id, is the sole authorization to touch the
// balance, so a retry or a concurrent duplicate observes ErrAlreadyCredited
// and changes nothing.
type Ledger interface {
	ApplyCredit(ctx context.Context, credit Credit) (Entry, error)
	EntryForRequest(ctx context.Context, requestID string) (Entry, error)
}
