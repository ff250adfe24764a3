package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdSpendRepository reads and writes the cached monthly ad spend figures.
// Rows are keyed by (year, month, source) where source is the ad platform,
// e.g. "meta" or "google".
type AdSpendRepository struct {
	pool *pgxpool.Pool
}

func NewAdSpend(pool *pgxpool.Pool) *AdSpendRepository {
	return &AdSpendRepository{pool: pool}
}

// TotalSpend sums the cached spend across all sources for one month.
func (r *AdSpendRepository) TotalSpend(ctx context.Context, year, month int) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ads_spend_cache
		WHERE year = $1 AND month = $2`

	var total float64
	if err := r.pool.QueryRow(ctx, query, year, month).Scan(&total); err != nil {
		return 0, fmt.Errorf("total spend: %w", err)
	}
	return total, nil
}

// UpsertSpend replaces the cached amount for one source and month.
func (r *AdSpendRepository) UpsertSpend(ctx context.Context, year, month int, source string, amount float64) error {
	query := `
		INSERT INTO ads_spend_cache (year, month, source, amount, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (year, month, source) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, year, month, source, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert spend: %w", err)
	}
	return nil
}
