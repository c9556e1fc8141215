package deposit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the deposit request lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// Valid reports whether the status is one a caller may request.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// RequestTTL is how long a deposit request stays fundable.
const RequestTTL = 24 * time.Hour

// Request is a self-service deposit funding request. ExactAmount is the
// fingerprinted transfer amount (RequestedAmount plus DecimalCode
// thousandths); RequestedAmount is what gets credited. CardID empty means
// "owner's oldest active card". Requests are never hard-deleted.
type Request struct {
	ID              string
	UserEmail       string
	RequestedAmount decimal.Decimal
	ExactAmount     decimal.Decimal
	DecimalCode     string
	Currency        string
	UniqueCode      string
	WalletAddress   string
	Status          Status
	CardID          string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	CompletedAt     *time.Time
	TransactionHash string
}

// StatusUpdate carries the fields a transition may set. TransactionHash is
// applied only when non-empty.
type StatusUpdate struct {
	To              Status
	CompletedAt     *time.Time
	TransactionHash string
}
