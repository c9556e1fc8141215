package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists funding entries in PostgreSQL. A unique constraint
// on transactions.request_id makes the entry insert the exactly-once claim;
// the balance increment rides in the same transaction so a completed request
// can never exist without its ledger entry.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// ApplyCredit inserts the ledger entry and increments the card balance in a
// single database transaction.
func (l *PostgresLedger) ApplyCredit(ctx context.Context, credit Credit) (Entry, error) {
	if credit.Amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidCredit
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entryID := uuid.NewString()
	tag, err := tx.Exec(ctx, `INSERT INTO transactions (id, request_id, card_id, user_email, type, amount, merchant, created_at, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (request_id) DO NOTHING`,
		entryID, credit.RequestID, credit.CardID, credit.UserEmail, credit.Type,
		credit.Amount.String(), credit.Merchant, credit.At.UTC(), StatusCompleted)
	if err != nil {
		return Entry{}, err
	}
	if tag.RowsAffected() == 0 {
		existing, lookupErr := l.EntryForRequest(ctx, credit.RequestID)
		if lookupErr != nil {
			return Entry{}, lookupErr
		}
		return existing, ErrAlreadyCredited
	}

	creditTag, err := tx.Exec(ctx, `UPDATE virtual_cards
        SET balance = balance + $2, last_used = $3
        WHERE id = $1 AND user_email = $4`,
		credit.CardID, credit.Amount.String(), credit.At.UTC(), credit.UserEmail)
	if err != nil {
		return Entry{}, err
	}
	if creditTag.RowsAffected() == 0 {
		// Rolls back the entry insert as well.
		return Entry{}, ErrCardNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:        entryID,
		RequestID: credit.RequestID,
		CardID:    credit.CardID,
		UserEmail: credit.UserEmail,
		Type:      credit.Type,
		Amount:    credit.Amount,
		Merchant:  credit.Merchant,
		Timestamp: credit.At.UTC(),
		Status:    StatusCompleted,
	}, nil
}

// EntryForRequest returns the entry referencing the funding request, if any.
func (l *PostgresLedger) EntryForRequest(ctx context.Context, requestID string) (Entry, error) {
	row := l.db.QueryRow(ctx, `SELECT id, request_id, card_id, user_email, type, amount::text, merchant, created_at, status
        FROM transactions WHERE request_id = $1`, requestID)

	var e Entry
	var amount string
	var createdAt time.Time
	if err := row.Scan(&e.ID, &e.RequestID, &e.CardID, &e.UserEmail, &e.Type, &amount, &e.Merchant, &createdAt, &e.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Entry{}, err
	}
	e.Amount = parsed
	e.Timestamp = createdAt.UTC()
	return e, nil
}
