package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL creates everything the engine persists. The deployment is a
// single-owner database, so idempotent DDL at startup replaces a migration
// tool.
var schemaDDL = []string{
	`CREATE SCHEMA IF NOT EXISTS fishbowl`,

	`CREATE TABLE IF NOT EXISTS fishbowl.positions (
		sleeve          TEXT PRIMARY KEY,
		code            TEXT NOT NULL,
		name            TEXT NOT NULL,
		category        TEXT NOT NULL,
		position_ratio  DOUBLE PRECISION NOT NULL,
		buy_price       DOUBLE PRECISION,
		buy_date        TIMESTAMPTZ,
		last_add_date   TIMESTAMPTZ,
		direction       TEXT,
		open_price      DOUBLE PRECISION,
		open_date       TIMESTAMPTZ,
		expected_return DOUBLE PRECISION,
		pair_code       TEXT,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS fishbowl.trades (
		id         BIGSERIAL PRIMARY KEY,
		trade_type TEXT NOT NULL,
		sleeve     TEXT NOT NULL,
		code       TEXT NOT NULL,
		name       TEXT NOT NULL,
		amount     DOUBLE PRECISION NOT NULL,
		reason     TEXT NOT NULL,
		ts         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_ts ON fishbowl.trades (ts)`,

	`CREATE TABLE IF NOT EXISTS fishbowl.pool (
		code                 TEXT PRIMARY KEY,
		name                 TEXT NOT NULL,
		category             TEXT NOT NULL,
		volume               DOUBLE PRECISION NOT NULL,
		valuation_percentile DOUBLE PRECISION NOT NULL,
		score                DOUBLE PRECISION NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS fishbowl.corporate_events (
		code       TEXT NOT NULL,
		event_date TIMESTAMPTZ NOT NULL,
		event_type TEXT NOT NULL,
		PRIMARY KEY (code, event_date, event_type)
	)`,

	`CREATE TABLE IF NOT EXISTS fishbowl.policy_events (
		code       TEXT NOT NULL,
		event_date TIMESTAMPTZ NOT NULL,
		impact     TEXT NOT NULL,
		PRIMARY KEY (code, event_date)
	)`,

	`CREATE TABLE IF NOT EXISTS fishbowl.fundamental_alerts (
		etf_code         TEXT NOT NULL,
		constituent_code TEXT NOT NULL,
		alert_date       TIMESTAMPTZ NOT NULL,
		detail           TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (etf_code, constituent_code, alert_date)
	)`,

	`CREATE TABLE IF NOT EXISTS fishbowl.related_listings (
		code         TEXT NOT NULL,
		related_code TEXT NOT NULL,
		name         TEXT NOT NULL,
		volume       DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (code, related_code)
	)`,
}

// EnsureSchema applies the DDL. Safe to run on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range schemaDDL {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
