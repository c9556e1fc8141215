package card

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists virtual cards.
type Repository interface {
	Create(ctx context.Context, c Card) error
	Get(ctx context.Context, id string) (Card, error)
	// OldestActive returns the owner's oldest-created active card, the
	// fallback target when a funding request names no card.
	OldestActive(ctx context.Context, ownerEmail string) (Card, error)
	// Credit atomically increments the balance and bumps LastUsed. The
	// increment happens at the store, never read-modify-write in the
	// application, so concurrent credits cannot lose updates.
	Credit(ctx context.Context, id string, amount decimal.Decimal, at time.Time) (Card, error)
}

// PostgresRepository stores cards in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a card record.
func (r *PostgresRepository) Create(ctx context.Context, c Card) error {
	_, err := r.db.Exec(ctx, `INSERT INTO virtual_cards (id, user_email, balance, status, last_used, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserEmail, c.Balance.String(), c.Status, c.LastUsed.UTC(), c.CreatedAt.UTC())
	return err
}

// Get fetches a card by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Card, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_email, balance::text, status, last_used, created_at
        FROM virtual_cards WHERE id = $1`, id)
	return scanCard(row)
}

// OldestActive fetches the owner's oldest active card.
func (r *PostgresRepository) OldestActive(ctx context.Context, ownerEmail string) (Card, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_email, balance::text, status, last_used, created_at
        FROM virtual_cards WHERE user_email = $1 AND status = $2
        ORDER BY created_at ASC LIMIT 1`, ownerEmail, StatusActive)
	c, err := scanCard(row)
	if errors.Is(err, ErrNotFound) {
		return Card{}, ErrNoActiveCard
	}
	return c, err
}

// Credit applies an atomic balance increment.
func (r *PostgresRepository) Credit(ctx context.Context, id string, amount decimal.Decimal, at time.Time) (Card, error) {
	row := r.db.QueryRow(ctx, `UPDATE virtual_cards
        SET balance = balance + $2, last_used = $3
        WHERE id = $1
        RETURNING id, user_email, balance::text, status, last_used, created_at`,
		id, amount.String(), at.UTC())
	return scanCard(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (Card, error) {
	var c Card
	var balance string
	var lastUsed, createdAt time.Time
	if err := row.Scan(&c.ID, &c.UserEmail, &balance, &c.Status, &lastUsed, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return Card{}, err
	}
	c.Balance = parsed
	c.LastUsed = lastUsed.UTC()
	c.CreatedAt = createdAt.UTC()
	return c, nil
}
