package card

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StatusActive marks a card eligible to receive funding credits.
	StatusActive = "active"
	// StatusFrozen marks a card that keeps its balance but accepts no credits.
	StatusFrozen = "frozen"
)

var (
	// ErrNotFound indicates the card does not exist or is not visible to the caller.
	ErrNotFound = errors.New("card not found")

	// ErrNoActiveCard indicates the owner has no active card to credit.
	ErrNoActiveCard = errors.New("no active card for owner")
)

// Card is the virtual card whose balance this engine credits. Balance is the
// authoritative spendable amount; only the ledger applier may increment it
// for funding events.
type Card struct {
	ID        string
	UserEmail string
	Balance   decimal.Decimal
	Status    string
	LastUsed  time.Time
	CreatedAt time.Time
}
