package migration

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
)

// RunMigrations executes all necessary database migrations on startup
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("Starting database migrations")

	migrations := []Migration{
		{Name: "create_users", Up: createUsers},
		{Name: "create_credit_plans", Up: createCreditPlans},
		{Name: "create_payments", Up: createPayments},
		{Name: "create_resume_jobs", Up: createResumeJobs},
		{Name: "seed_credit_plans", Up: seedCreditPlans},
	}

	for _, m := range migrations {
		if err := m.Up(ctx, pool); err != nil {
			slog.Error("Migration failed", "name", m.Name, "error", err)
			return err
		}
		slog.Info("Migration completed", "name", m.Name)
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// Migration represents a database migration
type Migration struct {
	Name string
	Up   func(ctx context.Context, pool *pgxpool.Pool) error
}

func createUsers(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

func createCreditPlans(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS credit_plans (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			credits_amount INTEGER NOT NULL,
			price_brl_cents INTEGER NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

func createPayments(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			provider_id TEXT NOT NULL UNIQUE,
			amount_cents INTEGER NOT NULL,
			credits_purchased INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			br_code TEXT NOT NULL DEFAULT '',
			br_code_base64 TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_payments_user ON payments (user_id);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

func createResumeJobs(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS resume_jobs (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			mode TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			profile_url TEXT NOT NULL DEFAULT '',
			job_posting_url TEXT NOT NULL DEFAULT '',
			profile_data JSONB,
			job_posting_data JSONB,
			code_activity_data JSONB,
			generated_data JSONB,
			html_url TEXT NOT NULL DEFAULT '',
			pdf_url TEXT NOT NULL DEFAULT '',
			cover_url TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_resume_jobs_user_status ON resume_jobs (user_id, status);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// seedCreditPlans upserts the purchasable plans under fixed ids so
// re-running the seed refreshes prices instead of duplicating rows.
func seedCreditPlans(ctx context.Context, pool *pgxpool.Pool) error {
	plans := []struct {
		id      string
		name    string
		credits int
		cents   int
	}{
		{"a1b2c3d4-e5f6-7890-abcd-ef1234567890", "Starter", 1, 1000},
		{"b2c3d4e5-f6a7-8901-bcde-f12345678901", "Silver", 2, 1900},
		{"c3d4e5f6-a7b8-9012-cdef-123456789012", "Gold", 3, 2800},
	}

	for _, p := range plans {
		_, err := pool.Exec(ctx, `
			INSERT INTO credit_plans (id, name, credits_amount, price_brl_cents, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				credits_amount = EXCLUDED.credits_amount,
				price_brl_cents = EXCLUDED.price_brl_cents,
				active = TRUE`,
			p.id, p.name, p.credits, p.cents)
		if err != nil {
			return err
		}
	}
	return nil
}
