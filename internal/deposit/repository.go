package deposit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kredo-pay/kredo_pay/internal/reconcile"
)

// ErrFingerprintTaken indicates another pending request at the same wallet
// address already uses the generated exact amount.
var ErrFingerprintTaken = errors.New("exact amount already pending at wallet address")

// Repository persists deposit requests. All reads and transitions are scoped
// by (id, ownerEmail); there is no admin path for deposits.
type Repository interface {
	Create(ctx context.Context, req Request) error
	Get(ctx context.Context, id, ownerEmail string) (Request, error)
	ListByOwner(ctx context.Context, ownerEmail string, limit int) ([]Request, error)
	// Transition performs a conditional status write: it succeeds only if
	// the stored status still equals from. A request in any other state
	// yields reconcile.ErrConflict; success is the caller's sole
	// authorization to treat the transition as won.
	Transition(ctx context.Context, id, ownerEmail string, from Status, upd StatusUpdate) (Request, error)
	// ExpireStale flips every pending request past its expiry to expired
	// and reports how many were swept.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// PostgresRepository stores deposit requests in PostgreSQL. A partial unique
// index on (wallet_address, exact_amount) WHERE status = 'pending' enforces
// fingerprint uniqueness among concurrently pending requests.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const depositColumns = `id, user_email, requested_amount::text, exact_amount::text, decimal_code,
        currency, unique_code, wallet_address, status, COALESCE(card_id, ''), created_at, expires_at,
        completed_at, COALESCE(transaction_hash, '')`

// Create inserts a pending deposit request.
func (r *PostgresRepository) Create(ctx context.Context, req Request) error {
	_, err := r.db.Exec(ctx, `INSERT INTO deposit_requests
        (id, user_email, requested_amount, exact_amount, decimal_code, currency, unique_code,
         wallet_address, status, card_id, created_at, expires_at, transaction_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, NULLIF($13, ''))`,
		req.ID, req.UserEmail, req.RequestedAmount.String(), req.ExactAmount.String(),
		req.DecimalCode, req.Currency, req.UniqueCode, req.WalletAddress, req.Status,
		req.CardID, req.CreatedAt.UTC(), req.ExpiresAt.UTC(), req.TransactionHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrFingerprintTaken
	}
	return err
}

// Get fetches a request scoped to its owner.
func (r *PostgresRepository) Get(ctx context.Context, id, ownerEmail string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+depositColumns+`
        FROM deposit_requests WHERE id = $1 AND user_email = $2`, id, ownerEmail)
	return scanRequest(row)
}

// ListByOwner returns the owner's requests, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerEmail string, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+depositColumns+`
        FROM deposit_requests WHERE user_email = $1
        ORDER BY created_at DESC LIMIT $2`, ownerEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Transition performs the conditional status write.
func (r *PostgresRepository) Transition(ctx context.Context, id, ownerEmail string, from Status, upd StatusUpdate) (Request, error) {
	row := r.db.QueryRow(ctx, `UPDATE deposit_requests
        SET status = $4,
            completed_at = COALESCE($5, completed_at),
            transaction_hash = COALESCE(NULLIF($6, ''), transaction_hash)
        WHERE id = $1 AND user_email = $2 AND status = $3
        RETURNING `+depositColumns,
		id, ownerEmail, from, upd.To, upd.CompletedAt, upd.TransactionHash)

	req, err := scanRequest(row)
	if errors.Is(err, reconcile.ErrNotFound) {
		// Distinguish a missing request from a lost conditional write.
		if _, getErr := r.Get(ctx, id, ownerEmail); getErr != nil {
			return Request{}, getErr
		}
		return Request{}, reconcile.ErrConflict
	}
	return req, err
}

// ExpireStale sweeps pending requests past expiry.
func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE deposit_requests SET status = $1
        WHERE status = $2 AND expires_at < $3`, StatusExpired, StatusPending, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var requested, exact string
	var createdAt, expiresAt time.Time
	var completedAt *time.Time
	if err := row.Scan(&req.ID, &req.UserEmail, &requested, &exact, &req.DecimalCode,
		&req.Currency, &req.UniqueCode, &req.WalletAddress, &req.Status, &req.CardID,
		&createdAt, &expiresAt, &completedAt, &req.TransactionHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, reconcile.ErrNotFound
		}
		return Request{}, err
	}

	var err error
	if req.RequestedAmount, err = decimal.NewFromString(requested); err != nil {
		return Request{}, err
	}
	if req.ExactAmount, err = decimal.NewFromString(exact); err != nil {
		return Request{}, err
	}
	req.CreatedAt = createdAt.UTC()
	req.ExpiresAt = expiresAt.UTC()
	if completedAt != nil {
		t := completedAt.UTC()
		req.CompletedAt = &t
	}
	return req, nil
}
