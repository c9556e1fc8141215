package topup

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

// Repository persists internal top-up requests. Get is owner-scoped for the
// user path; GetAny and Transition are id-scoped for the admin path, which
// authenticates with the admin gate instead of user identity.
type Repository interface {
	Create(ctx context.Context, req Request) error
	Get(ctx context.Context, id, ownerEmail string) (Request, error)
	GetAny(ctx context.Context, id string) (Request, error)
	ListByOwner(ctx context.Context, ownerEmail string, limit int) ([]Request, error)
	// Transition performs a conditional status write succeeding only if the
	// stored status still equals from; otherwise reconcile.ErrConflict.
	Transition(ctx context.Context, id string, from Status, upd StatusUpdate) (Request, error)
	// RejectStalePending rejects pending requests past expiry with the
	// given reason and reports how many were swept.
	RejectStalePending(ctx context.Context, now time.Time, reason string) (int64, error)
}

// PostgresRepository stores top-up requests in PostgreSQL. The same partial
// unique index discipline as deposits guards pending fingerprints.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const topupColumns = `id, user_email, requested_amount::text, exact_amount::text, decimal_code,
        currency, unique_code, user_wallet_address, solana_wallet_address, topup_method, status,
        COALESCE(card_id, ''), created_at, expires_at, completed_at, approved_at, COALESCE(approved_by, ''),
        rejected_at, COALESCE(rejection_reason, ''), COALESCE(admin_notes, ''), COALESCE(transaction_hash, '')`

// Create inserts a pending top-up request.
func (r *PostgresRepository) Create(ctx context.Context, req Request) error {
	_, err := r.db.Exec(ctx, `INSERT INTO internal_topup_requests
        (id, user_email, requested_amount, exact_amount, decimal_code, currency, unique_code,
         user_wallet_address, solana_wallet_address, topup_method, status, card_id, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14)`,
		req.ID, req.UserEmail, req.RequestedAmount.String(), req.ExactAmount.String(),
		req.DecimalCode, req.Currency, req.UniqueCode, req.UserWalletAddress,
		req.SolanaWalletAddress, req.TopupMethod, req.Status, req.CardID,
		req.CreatedAt.UTC(), req.ExpiresAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrFingerprintTaken
	}
	return err
}

// Get fetches a request scoped to its owner.
func (r *PostgresRepository) Get(ctx context.Context, id, ownerEmail string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+topupColumns+`
        FROM internal_topup_requests WHERE id = $1 AND user_email = $2`, id, ownerEmail)
	return scanRequest(row)
}

// GetAny fetches a request by id alone (admin path).
func (r *PostgresRepository) GetAny(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+topupColumns+`
        FROM internal_topup_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// ListByOwner returns the owner's requests, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerEmail string, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+topupColumns+`
        FROM internal_topup_requests WHERE user_email = $1
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
func (r *PostgresRepository) Transition(ctx context.Context, id string, from Status, upd StatusUpdate) (Request, error) {
	row := r.db.QueryRow(ctx, `UPDATE internal_topup_requests
        SET status = $3,
            completed_at = COALESCE($4, completed_at),
            approved_at = COALESCE($5, approved_at),
            approved_by = COALESCE(NULLIF($6, ''), approved_by),
            rejected_at = COALESCE($7, rejected_at),
            rejection_reason = COALESCE(NULLIF($8, ''), rejection_reason),
            admin_notes = COALESCE(NULLIF($9, ''), admin_notes),
            transaction_hash = COALESCE(NULLIF($10, ''), transaction_hash)
        WHERE id = $1 AND status = $2
        RETURNING `+topupColumns,
		id, from, upd.To, upd.CompletedAt, upd.ApprovedAt, upd.ApprovedBy,
		upd.RejectedAt, upd.RejectionReason, upd.AdminNotes, upd.TransactionHash)

	req, err := scanRequest(row)
	if errors.Is(err, reconcile.ErrNotFound) {
		if _, getErr := r.GetAny(ctx, id); getErr != nil {
			return Request{}, getErr
		}
		return Request{}, reconcile.ErrConflict
	}
	return req, err
}

// RejectStalePending sweeps pending requests past expiry into rejected.
func (r *PostgresRepository) RejectStalePending(ctx context.Context, now time.Time, reason string) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE internal_topup_requests
        SET status = $1, rejected_at = $2, rejection_reason = $3
        WHERE status = $4 AND expires_at < $2`,
		StatusRejected, now.UTC(), reason, StatusPending)
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
	var completedAt, approvedAt, rejectedAt *time.Time
	if err := row.Scan(&req.ID, &req.UserEmail, &requested, &exact, &req.DecimalCode,
		&req.Currency, &req.UniqueCode, &req.UserWalletAddress, &req.SolanaWalletAddress,
		&req.TopupMethod, &req.Status, &req.CardID, &createdAt, &expiresAt,
		&completedAt, &approvedAt, &req.ApprovedBy, &rejectedAt, &req.RejectionReason,
		&req.AdminNotes, &req.TransactionHash); err != nil {
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
	req.CompletedAt = toUTC(completedAt)
	req.ApprovedAt = toUTC(approvedAt)
	req.RejectedAt = toUTC(rejectedAt)
	return req, nil
}

func toUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
