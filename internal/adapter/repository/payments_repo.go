package repository

import (
	"context"
	"errors"

	"flash-resume/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentsRepo persists PIX payments and credit plans.
type PaymentsRepo struct {
	pool   *pgxpool.Pool
	ledger *LedgerRepo
}

func NewPaymentsRepo(pool *pgxpool.Pool, ledger *LedgerRepo) *PaymentsRepo {
	return &PaymentsRepo{pool: pool, ledger: ledger}
}

func (r *PaymentsRepo) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments
		(id, user_id, provider_id, amount_cents, credits_purchased, status, br_code, br_code_base64, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.UserID, p.ProviderID, p.AmountCents, p.CreditsPurchased,
		p.Status, p.BRCode, p.BRCodeBase64, p.CreatedAt, p.ExpiresAt)
	return err
}

func (r *PaymentsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return r.scanOne(r.pool.QueryRow(ctx, paymentColumns+` WHERE id = $1`, id))
}

func (r *PaymentsRepo) GetByProviderID(ctx context.Context, providerID string) (*domain.Payment, error) {
	return r.scanOne(r.pool.QueryRow(ctx, paymentColumns+` WHERE provider_id = $1`, providerID))
}

// UpdateStatus records a non-paid status change (expired, cancelled).
// Paid transitions go through MarkPaidAndCredit instead.
func (r *PaymentsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $2 WHERE id = $1 AND status = 'PENDING'`, id, status)
	return err
}

// MarkPaidAndCredit flips the payment to PAID and grants its credits in
// one transaction. The guarded UPDATE makes replayed confirmations
// no-ops: only the first caller gets a row back and credits the user.
func (r *PaymentsRepo) MarkPaidAndCredit(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var userID string
	var credits int
	err = tx.QueryRow(ctx,
		`UPDATE payments SET status = 'PAID' WHERE id = $1 AND status <> 'PAID'
		 RETURNING user_id, credits_purchased`, id).Scan(&userID, &credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := r.ledger.AddTx(ctx, tx, userID, credits); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// ActivePlans lists purchasable credit plans, cheapest first.
func (r *PaymentsRepo) ActivePlans(ctx context.Context) ([]domain.CreditPlan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, credits_amount, price_brl_cents, active
		 FROM credit_plans WHERE active ORDER BY price_brl_cents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.CreditPlan
	for rows.Next() {
		var p domain.CreditPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.CreditsAmount, &p.PriceCents, &p.Active); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

var ErrPlanNotFound = errors.New("credit plan not found")

func (r *PaymentsRepo) GetPlan(ctx context.Context, id string) (*domain.CreditPlan, error) {
	var p domain.CreditPlan
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, credits_amount, price_brl_cents, active
		 FROM credit_plans WHERE id = $1 AND active`, id).
		Scan(&p.ID, &p.Name, &p.CreditsAmount, &p.PriceCents, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const paymentColumns = `SELECT id, user_id, provider_id, amount_cents, credits_purchased,
	status, br_code, br_code_base64, created_at, expires_at FROM payments`

func (r *PaymentsRepo) scanOne(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.ProviderID, &p.AmountCents, &p.CreditsPurchased,
		&p.Status, &p.BRCode, &p.BRCodeBase64, &p.CreatedAt, &p.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
