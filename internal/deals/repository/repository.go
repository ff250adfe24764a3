package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"funnel_dashboard_backend/internal/deals/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDealNotFound = errors.New("deal not found")

const dealColumns = `id, title, pipeline, stage, status, created_at, updated_at,
	partner_name, guest_count, budget, destination, loss_reason, sdr_qualification_reasons,
	first_meeting_at, first_meeting_outcome, qualified_at, qualified_sql,
	closer_meeting_at, closer_meeting_outcome, won_at,
	is_elopement, trip_meeting_at, trip_meeting_outcome, fee_paid`

// eventDateColumns maps the closed set of filterable event-date fields to
// their columns. Keeping this a table avoids interpolating caller strings.
var eventDateColumns = map[domain.EventDateField]string{
	domain.EventFirstMeetingAt:  "first_meeting_at",
	domain.EventQualifiedAt:     "qualified_at",
	domain.EventCloserMeetingAt: "closer_meeting_at",
	domain.EventWonAt:           "won_at",
	domain.EventTripMeetingAt:   "trip_meeting_at",
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts or merges a deal. Only the fields present in the patch are
// written; absent fields keep their stored values. updated_at always advances.
func (r *Repository) Upsert(ctx context.Context, patch domain.Patch) error {
	cols := []string{"id", "updated_at"}
	args := []interface{}{patch.ID, time.Now().UTC()}

	add := func(col string, val interface{}) {
		cols = append(cols, col)
		args = append(args, val)
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Pipeline != nil {
		add("pipeline", *patch.Pipeline)
	}
	if patch.Stage != nil {
		add("stage", *patch.Stage)
	}
	if patch.Status != nil {
		// The empty status means "unrecognized upstream code"; stored as NULL.
		if *patch.Status == "" {
			add("status", nil)
		} else {
			add("status", string(*patch.Status))
		}
	}
	if patch.CreatedAt != nil {
		add("created_at", *patch.CreatedAt)
	}
	if patch.PartnerName != nil {
		add("partner_name", *patch.PartnerName)
	}
	if patch.GuestCount != nil {
		add("guest_count", *patch.GuestCount)
	}
	if patch.Budget != nil {
		add("budget", *patch.Budget)
	}
	if patch.Destination != nil {
		add("destination", *patch.Destination)
	}
	if patch.LossReason != nil {
		add("loss_reason", *patch.LossReason)
	}
	if patch.SDRQualificationReasons != nil {
		add("sdr_qualification_reasons", *patch.SDRQualificationReasons)
	}
	if patch.FirstMeetingAt != nil {
		add("first_meeting_at", *patch.FirstMeetingAt)
	}
	if patch.FirstMeetingOutcome != nil {
		add("first_meeting_outcome", *patch.FirstMeetingOutcome)
	}
	if patch.QualifiedAt != nil {
		add("qualified_at", *patch.QualifiedAt)
	}
	if patch.QualifiedSQL != nil {
		add("qualified_sql", *patch.QualifiedSQL)
	}
	if patch.CloserMeetingAt != nil {
		add("closer_meeting_at", *patch.CloserMeetingAt)
	}
	if patch.CloserMeetingOutcome != nil {
		add("closer_meeting_outcome", *patch.CloserMeetingOutcome)
	}
	if patch.WonAt != nil {
		add("won_at", *patch.WonAt)
	}
	if patch.IsElopement != nil {
		add("is_elopement", *patch.IsElopement)
	}
	if patch.TripMeetingAt != nil {
		add("trip_meeting_at", *patch.TripMeetingAt)
	}
	if patch.TripMeetingOutcome != nil {
		add("trip_meeting_outcome", *patch.TripMeetingOutcome)
	}
	if patch.FeePaid != nil {
		add("fee_paid", *patch.FeePaid)
	}

	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO deals (%s)
		VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET %s
	`, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))

	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

// Delete removes a deal by ID. Deleting an absent deal is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	return err
}

// GetByID returns a single deal or ErrDealNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	deal, err := scanDeal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, ErrDealNotFound
	}
	return deal, err
}

// CreatedBetweenParams filters a created-timestamp range read.
type CreatedBetweenParams struct {
	Start     time.Time
	End       time.Time
	Pipelines []string          // empty slice: no pipeline filter
	Unit      domain.UnitFilter // sub-line filter
}

// ListCreatedBetween returns deals whose creation timestamp falls in
// [Start, End), optionally narrowed by pipeline membership and sub-line.
func (r *Repository) ListCreatedBetween(ctx context.Context, params CreatedBetweenParams) ([]domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{params.Start, params.End}

	if len(params.Pipelines) > 0 {
		args = append(args, params.Pipelines)
		query += fmt.Sprintf(" AND pipeline = ANY($%d)", len(args))
	}
	query += unitFilterClause(params.Unit)
	query += " ORDER BY id ASC"

	return r.queryDeals(ctx, query, args...)
}

// ListByEventDateBetween returns deals whose given event-date field falls in
// [Start, End), optionally narrowed by sub-line.
func (r *Repository) ListByEventDateBetween(ctx context.Context, field domain.EventDateField, start, end time.Time, unit domain.UnitFilter) ([]domain.Deal, error) {
	col, ok := eventDateColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown event date field %d", field)
	}

	query := fmt.Sprintf(`SELECT %s FROM deals WHERE %s >= $1 AND %s < $2`, dealColumns, col, col)
	query += unitFilterClause(unit)
	query += " ORDER BY id ASC"

	return r.queryDeals(ctx, query, start, end)
}

// ListFeePaidBetween returns trips deals marked fee-paid whose trip meeting
// falls in [Start, End). The fee-paid flag itself carries no timestamp, so the
// trip meeting date anchors the stage to a month.
func (r *Repository) ListFeePaidBetween(ctx context.Context, start, end time.Time) ([]domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals
		WHERE fee_paid = true AND trip_meeting_at >= $1 AND trip_meeting_at < $2
		ORDER BY id ASC`
	return r.queryDeals(ctx, query, start, end)
}

// ScanIDsAfter returns up to limit deal IDs strictly greater than cursor, in
// ascending order. Used by the reconciliation job's paginated scan.
func (r *Repository) ScanIDsAfter(ctx context.Context, cursor int64, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM deals WHERE id > $1 ORDER BY id ASC LIMIT $2
	`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func unitFilterClause(unit domain.UnitFilter) string {
	switch unit {
	case domain.UnitElopementOnly:
		return " AND (COALESCE(is_elopement, false) = true OR title LIKE 'EW%')"
	case domain.UnitWeddingOnly:
		return " AND COALESCE(is_elopement, false) = false AND title NOT LIKE 'EW%'"
	default:
		return ""
	}
}

func (r *Repository) queryDeals(ctx context.Context, query string, args ...interface{}) ([]domain.Deal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := make([]domain.Deal, 0)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var d domain.Deal
	var title, pipeline, stage, status *string

	err := row.Scan(
		&d.ID, &title, &pipeline, &stage, &status, &d.CreatedAt, &d.UpdatedAt,
		&d.PartnerName, &d.GuestCount, &d.Budget, &d.Destination, &d.LossReason, &d.SDRQualificationReasons,
		&d.FirstMeetingAt, &d.FirstMeetingOutcome, &d.QualifiedAt, &d.QualifiedSQL,
		&d.CloserMeetingAt, &d.CloserMeetingOutcome, &d.WonAt,
		&d.IsElopement, &d.TripMeetingAt, &d.TripMeetingOutcome, &d.FeePaid,
	)
	if err != nil {
		return domain.Deal{}, err
	}

	if title != nil {
		d.Title = *title
	}
	if pipeline != nil {
		d.Pipeline = *pipeline
	}
	if stage != nil {
		d.Stage = *stage
	}
	if status != nil {
		d.Status = domain.Status(*status)
	}
	return d, nil
}
