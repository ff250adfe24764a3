// Package repository provides Postgres access for monthly targets and the
// ad spend cache.
package repository

import (
	"context"
	"errors"
	"fmt"

	"funnel_dashboard_backend/internal/reports/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TargetsRepository stores the per-unit monthly goals.
type TargetsRepository struct {
	pool *pgxpool.Pool
}

func NewTargets(pool *pgxpool.Pool) *TargetsRepository {
	return &TargetsRepository{pool: pool}
}

// Get loads the goals for one unit and month. The boolean is false when no
// goals have been seeded for that month.
func (r *TargetsRepository) Get(ctx context.Context, unit string, year, month int) (domain.Targets, bool, error) {
	query := `
		SELECT unit, year, month, leads, mql, meeting_scheduled, meeting_held,
		       qualified, closer_scheduled, closer_held, won, fee_paid, cost_per_lead
		FROM monthly_targets
		WHERE unit = $1 AND year = $2 AND month = $3`

	var t domain.Targets
	err := r.pool.QueryRow(ctx, query, unit, year, month).Scan(
		&t.Unit, &t.Year, &t.Month, &t.Leads, &t.MQL, &t.MeetingScheduled,
		&t.MeetingHeld, &t.Qualified, &t.CloserScheduled, &t.CloserHeld,
		&t.Won, &t.FeePaid, &t.CostPerLead,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Targets{Unit: unit, Year: year, Month: month}, false, nil
	}
	if err != nil {
		return domain.Targets{}, false, fmt.Errorf("get targets: %w", err)
	}
	return t, true, nil
}

// Upsert writes the goals for one unit and month, replacing existing values.
func (r *TargetsRepository) Upsert(ctx context.Context, t domain.Targets) error {
	query := `
		INSERT INTO monthly_targets (
			unit, year, month, leads, mql, meeting_scheduled, meeting_held,
			qualified, closer_scheduled, closer_held, won, fee_paid, cost_per_lead
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (unit, year, month) DO UPDATE SET
			leads = EXCLUDED.leads,
			mql = EXCLUDED.mql,
			meeting_scheduled = EXCLUDED.meeting_scheduled,
			meeting_held = EXCLUDED.meeting_held,
			qualified = EXCLUDED.qualified,
			closer_scheduled = EXCLUDED.closer_scheduled,
			closer_held = EXCLUDED.closer_held,
			won = EXCLUDED.won,
			fee_paid = EXCLUDED.fee_paid,
			cost_per_lead = EXCLUDED.cost_per_lead`

	_, err := r.pool.Exec(ctx, query,
		t.Unit, t.Year, t.Month, t.Leads, t.MQL, t.MeetingScheduled,
		t.MeetingHeld, t.Qualified, t.CloserScheduled, t.CloserHeld,
		t.Won, t.FeePaid, t.CostPerLead,
	)
	if err != nil {
		return fmt.Errorf("upsert targets: %w", err)
	}
	return nil
}
