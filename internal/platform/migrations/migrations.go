// Package migrations holds the database schema as ordered SQL statements
// applied at startup. Statements are idempotent so re-applying on every boot
// is safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS app_users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		plan_tier TEXT NOT NULL DEFAULT 'FREE',
		onboarded_at TIMESTAMPTZ,
		monthly_export_count INTEGER NOT NULL DEFAULT 0,
		export_count_reset_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_user_preferences (
		user_id TEXT PRIMARY KEY REFERENCES app_users(id) ON DELETE CASCADE,
		currency TEXT NOT NULL DEFAULT '',
		locale TEXT NOT NULL DEFAULT '',
		week_start TEXT NOT NULL DEFAULT '',
		default_driver_id TEXT NOT NULL DEFAULT '',
		default_vehicle_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_drivers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		is_self BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_vehicles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_platforms (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_expense_types (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_payment_methods (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'CASH',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_revenues (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		driver_id TEXT NOT NULL DEFAULT '',
		vehicle_id TEXT NOT NULL DEFAULT '',
		platform_id TEXT NOT NULL DEFAULT '',
		payment_method_id TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		driver_id TEXT NOT NULL DEFAULT '',
		vehicle_id TEXT NOT NULL DEFAULT '',
		expense_type_id TEXT NOT NULL DEFAULT '',
		payment_method_id TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_budgets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		period TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES app_users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		target DOUBLE PRECISION NOT NULL,
		deadline TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_app_revenues_user_occurred ON app_revenues (user_id, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_app_expenses_user_occurred ON app_expenses (user_id, occurred_at)`,
}

// Apply runs every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
