package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LedgerRepo holds per-user credit balances. A balance never goes below
// zero: deductions are single guarded statements, so concurrent jobs for
// the same user cannot overdraw.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// GetOrCreateBalance returns the user's balance, creating a zero-credit
// row on first sight.
func (r *LedgerRepo) GetOrCreateBalance(ctx context.Context, userID string) (int, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, credits) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return 0, err
	}

	var credits int
	err = r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// DeductOne atomically spends one credit. It reports false when the user
// has no credit left; the balance is never driven negative.
func (r *LedgerRepo) DeductOne(ctx context.Context, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET credits = credits - 1, updated_at = now()
		 WHERE id = $1 AND credits >= 1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Add grants n credits to the user, creating the row if needed.
func (r *LedgerRepo) Add(ctx context.Context, userID string, n int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, credits) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET credits = users.credits + $2, updated_at = now()`,
		userID, n)
	return err
}

// AddTx grants n credits inside an existing transaction. Used by payment
// settlement so the credit grant and the paid transition commit together.
func (r *LedgerRepo) AddTx(ctx context.Context, tx pgx.Tx, userID string, n int) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO users (id, credits) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET credits = users.credits + $2, updated_at = now()`,
		userID, n)
	return err
}
