// Package service assembles funnel reports: it aggregates deal records from
// several date-scoped queries, attributes them to stages and compares the
// result against the monthly goals.
package service

import (
	"context"
	"fmt"
	"time"

	dealdomain "funnel_dashboard_backend/internal/deals/domain"
	dealsrepo "funnel_dashboard_backend/internal/deals/repository"
	"funnel_dashboard_backend/internal/funnel"
	"funnel_dashboard_backend/internal/reports/domain"
	"funnel_dashboard_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// DealSource provides the date-scoped deal queries the aggregator merges.
type DealSource interface {
	ListCreatedBetween(ctx context.Context, params dealsrepo.CreatedBetweenParams) ([]dealdomain.Deal, error)
	ListByEventDateBetween(ctx context.Context, field dealdomain.EventDateField, start, end time.Time, unit dealdomain.UnitFilter) ([]dealdomain.Deal, error)
	ListFeePaidBetween(ctx context.Context, start, end time.Time) ([]dealdomain.Deal, error)
}

// TargetSource loads the seeded monthly goals.
type TargetSource interface {
	Get(ctx context.Context, unit string, year, month int) (domain.Targets, bool, error)
}

// SpendSource reads the cached monthly ad spend.
type SpendSource interface {
	TotalSpend(ctx context.Context, year, month int) (float64, error)
}

// AdSpend summarizes the month's paid media alongside the lead cost.
type AdSpend struct {
	Total             float64 `json:"total"`
	CostPerLead       float64 `json:"costPerLead"`
	CostPerLeadTarget float64 `json:"costPerLeadTarget"`
}

// Report is the full monthly funnel report for one business unit.
type Report struct {
	Year           int                `json:"year"`
	Month          int                `json:"month"`
	Unit           string             `json:"unit"`
	Metrics        funnel.Metrics     `json:"metrics"`
	Previous       funnel.Metrics     `json:"previousMetrics"`
	Targets        domain.Targets     `json:"targets"`
	Comparison     domain.Comparison  `json:"comparison"`
	Conversions    domain.Conversions `json:"conversions"`
	MonthOverMonth domain.MoMDelta    `json:"monthOverMonth"`
	AdSpend        AdSpend            `json:"adSpend"`
}

// Service builds funnel reports.
type Service struct {
	deals   DealSource
	targets TargetSource
	spend   SpendSource
	units   funnel.Units
	log     *logger.Logger
	now     func() time.Time
}

func New(deals DealSource, targets TargetSource, spend SpendSource, units funnel.Units, log *logger.Logger) *Service {
	return &Service{
		deals:   deals,
		targets: targets,
		spend:   spend,
		units:   units,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FunnelReport builds the report for one month and unit. Any failed source
// query fails the whole report rather than returning partial numbers.
func (s *Service) FunnelReport(ctx context.Context, year int, month time.Month, unit funnel.Unit) (Report, error) {
	metrics, err := s.metricsFor(ctx, year, month, unit)
	if err != nil {
		return Report{}, err
	}

	prevYear, prevMonth := funnel.PreviousMonth(year, month)
	previous, err := s.metricsFor(ctx, prevYear, prevMonth, unit)
	if err != nil {
		return Report{}, err
	}

	targets, err := s.targetsFor(ctx, year, month, unit)
	if err != nil {
		return Report{}, err
	}

	spend, err := s.spend.TotalSpend(ctx, year, int(month))
	if err != nil {
		return Report{}, err
	}

	elapsed := domain.MonthElapsed(s.now(), year, month)

	return Report{
		Year:           year,
		Month:          int(month),
		Unit:           string(unit),
		Metrics:        metrics,
		Previous:       previous,
		Targets:        targets,
		Comparison:     domain.Compare(metrics, targets, elapsed),
		Conversions:    domain.FunnelConversions(metrics),
		MonthOverMonth: domain.MonthOverMonth(metrics, previous),
		AdSpend: AdSpend{
			Total:             spend,
			CostPerLead:       domain.CostPerLead(spend, metrics.Leads),
			CostPerLeadTarget: targets.CostPerLead,
		},
	}, nil
}

func (s *Service) metricsFor(ctx context.Context, year int, month time.Month, unit funnel.Unit) (funnel.Metrics, error) {
	if unit == funnel.UnitTotal {
		// The elopement pipeline list is a superset of the wedding list, so
		// one pool fetched with it serves both attributions.
		pool, err := s.collect(ctx, year, month, funnel.UnitElopement)
		if err != nil {
			return funnel.Metrics{}, err
		}
		wedding := funnel.Calculate(pool, year, month, funnel.UnitWedding, s.units)
		elopement := funnel.Calculate(pool, year, month, funnel.UnitElopement, s.units)
		return funnel.MergeTotal(wedding, elopement), nil
	}

	pool, err := s.collect(ctx, year, month, unit)
	if err != nil {
		return funnel.Metrics{}, err
	}
	return funnel.Calculate(pool, year, month, unit, s.units), nil
}

func (s *Service) targetsFor(ctx context.Context, year int, month time.Month, unit funnel.Unit) (domain.Targets, error) {
	if unit == funnel.UnitTotal {
		wedding, _, err := s.targets.Get(ctx, string(funnel.UnitWedding), year, int(month))
		if err != nil {
			return domain.Targets{}, err
		}
		elopement, _, err := s.targets.Get(ctx, string(funnel.UnitElopement), year, int(month))
		if err != nil {
			return domain.Targets{}, err
		}
		return domain.MergeTargets(wedding, elopement), nil
	}

	targets, found, err := s.targets.Get(ctx, string(unit), year, int(month))
	if err != nil {
		return domain.Targets{}, err
	}
	if !found {
		s.log.Warn("no targets seeded for month", "unit", unit, "year", year, "month", int(month))
	}
	return targets, nil
}

// collect runs the date-scoped source queries in parallel and merges them
// into one deduplicated pool. Source order is fixed so the merge (first
// occurrence wins) is deterministic.
func (s *Service) collect(ctx context.Context, year int, month time.Month, unit funnel.Unit) ([]dealdomain.Deal, error) {
	start, end := funnel.MonthRange(year, month)
	cfg := s.units.For(unit)

	type source struct {
		name  string
		fetch func(ctx context.Context) ([]dealdomain.Deal, error)
	}

	byEvent := func(field dealdomain.EventDateField) func(ctx context.Context) ([]dealdomain.Deal, error) {
		return func(ctx context.Context) ([]dealdomain.Deal, error) {
			return s.deals.ListByEventDateBetween(ctx, field, start, end, dealdomain.UnitAny)
		}
	}

	sources := []source{
		{"created", func(ctx context.Context) ([]dealdomain.Deal, error) {
			return s.deals.ListCreatedBetween(ctx, dealsrepo.CreatedBetweenParams{
				Start:     start,
				End:       end,
				Pipelines: cfg.LeadPipelines,
				Unit:      dealdomain.UnitAny,
			})
		}},
	}
	if unit == funnel.UnitTrips {
		sources = append(sources,
			source{"trip_meeting", byEvent(dealdomain.EventTripMeetingAt)},
			source{"fee_paid", func(ctx context.Context) ([]dealdomain.Deal, error) {
				return s.deals.ListFeePaidBetween(ctx, start, end)
			}},
		)
	} else {
		sources = append(sources,
			source{"first_meeting", byEvent(dealdomain.EventFirstMeetingAt)},
			source{"qualified", byEvent(dealdomain.EventQualifiedAt)},
			source{"closer_meeting", byEvent(dealdomain.EventCloserMeetingAt)},
			source{"won", byEvent(dealdomain.EventWonAt)},
		)
	}

	results := make([][]dealdomain.Deal, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		group.Go(func() error {
			deals, err := src.fetch(groupCtx)
			if err != nil {
				return fmt.Errorf("fetch %s deals: %w", src.name, err)
			}
			results[i] = deals
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return s.merge(results), nil
}

// merge deduplicates by deal ID across sources. The first occurrence wins;
// later occurrences that carry a different updated_at are logged so drift
// between query snapshots is visible.
func (s *Service) merge(results [][]dealdomain.Deal) []dealdomain.Deal {
	seen := make(map[int64]dealdomain.Deal)
	var pool []dealdomain.Deal
	for _, deals := range results {
		for _, deal := range deals {
			kept, ok := seen[deal.ID]
			if !ok {
				seen[deal.ID] = deal
				pool = append(pool, deal)
				continue
			}
			if divergent(kept.UpdatedAt, deal.UpdatedAt) {
				s.log.Warn("duplicate deal with divergent snapshots", "dealId", deal.ID)
			}
		}
	}
	return pool
}

func divergent(a, b *time.Time) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return !a.Equal(*b)
}
