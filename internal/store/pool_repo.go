package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingxuan/fishbowl/internal/contracts"
)

// PoolRepository persists the curated ETF pool between weekly refreshes.
// ⭐ SSOT: ETF池的持久化只在这里
type PoolRepository struct {
	pool *pgxpool.Pool
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(pool *pgxpool.Pool) *PoolRepository {
	return &PoolRepository{pool: pool}
}

// Replace swaps the stored pool for the given snapshot in one transaction.
func (r *PoolRepository) Replace(ctx context.Context, candidates []contracts.Candidate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fishbowl.pool`); err != nil {
		return fmt.Errorf("failed to clear pool: %w", err)
	}

	query := `
		INSERT INTO fishbowl.pool (code, name, category, volume, valuation_percentile, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	for _, c := range candidates {
		_, err := tx.Exec(ctx, query,
			c.Code, c.Name, string(c.Category), c.Volume, c.ValuationPercentile, c.Score,
		)
		if err != nil {
			return fmt.Errorf("failed to save pool entry %s: %w", c.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// All returns the stored pool ordered by score descending.
func (r *PoolRepository) All(ctx context.Context) ([]contracts.Candidate, error) {
	query := `
		SELECT code, name, category, volume, valuation_percentile, score
		FROM fishbowl.pool
		ORDER BY score DESC, code ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool: %w", err)
	}
	defer rows.Close()

	candidates := make([]contracts.Candidate, 0)
	for rows.Next() {
		var c contracts.Candidate
		var category string

		if err := rows.Scan(&c.Code, &c.Name, &category, &c.Volume, &c.ValuationPercentile, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan pool row: %w", err)
		}

		c.Category = contracts.Category(category)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pool rows: %w", err)
	}

	return candidates, nil
}

// UpdatedAt returns when the pool was last refreshed, zero when empty.
func (r *PoolRepository) UpdatedAt(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(updated_at) FROM fishbowl.pool`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query pool freshness: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}
