package topup

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the internal top-up lifecycle state. Unlike deposits, top-ups
// pass through an explicit admin approval before completion; a request that
// goes stale is rejected, never auto-completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// RequestTTL is how long a top-up request stays fundable while pending.
const RequestTTL = 24 * time.Hour

// Request is an admin-issued internal top-up request. It carries the same
// amount fingerprint as a deposit plus the sender-claimed source wallet and
// the admin review trail.
type Request struct {
	ID                  string
	UserEmail           string
	RequestedAmount     decimal.Decimal
	ExactAmount         decimal.Decimal
	DecimalCode         string
	Currency            string
	UniqueCode          string
	UserWalletAddress   string
	SolanaWalletAddress string
	TopupMethod         string
	Status              Status
	CardID              string
	CreatedAt           time.Time
	ExpiresAt           time.Time
	CompletedAt         *time.Time
	ApprovedAt          *time.Time
	ApprovedBy          string
	RejectedAt          *time.Time
	RejectionReason     string
	AdminNotes          string
	TransactionHash     string
}

// StatusUpdate carries the fields a transition may set. String fields are
// applied only when non-empty, timestamps only when non-nil.
type StatusUpdate struct {
	To              Status
	CompletedAt     *time.Time
	ApprovedAt      *time.Time
	ApprovedBy      string
	RejectedAt      *time.Time
	RejectionReason string
	AdminNotes      string
	TransactionHash string
}
