package funnel

import (
	"time"

	"funnel_dashboard_backend/internal/deals/domain"
)

// noMeetingSentinel is the CRM value recorded when a scheduled meeting never
// happened; such deals stay out of the Meeting-Held count.
const noMeetingSentinel = "Não teve reunião"

// Metrics holds the derived per-stage counts for one (year, month, unit)
// query. Never persisted; always recomputed from the deal pool.
type Metrics struct {
	Leads            int `json:"leads"`
	MQL              int `json:"mql"`
	MeetingScheduled int `json:"meetingScheduled"`
	MeetingHeld      int `json:"meetingHeld"`
	Qualified        int `json:"qualified"`
	CloserScheduled  int `json:"closerScheduled"`
	CloserHeld       int `json:"closerHeld"`
	Won              int `json:"won"`
	FeePaid          int `json:"feePaid"`
}

// Calculate derives the funnel metrics for one unit from a deal pool.
// It is a pure function of (pool, year, month, unit): no ordering dependence,
// no hidden state. Lead and MQL use the creation-month predicate; every later
// stage uses its event-date predicate over the full pool, because downstream
// activity is tracked regardless of when the deal entered the pipeline.
func Calculate(pool []domain.Deal, year int, month time.Month, unit Unit, units Units) Metrics {
	cfg := units.For(unit)

	var m Metrics
	for _, deal := range pool {
		if !belongsToUnit(deal, unit, cfg) {
			continue
		}

		createdInMonth := inMonth(deal.CreatedAt, year, month)
		if createdInMonth && contains(cfg.LeadPipelines, deal.Pipeline) {
			m.Leads++
		}
		// The elopement sub-line tracks only Lead and Won.
		if createdInMonth && unit != UnitElopement && contains(cfg.MQLPipelines, deal.Pipeline) {
			m.MQL++
		}

		// Event-date stages consider the whole unit pool, restricted only by
		// the lead pipeline allow-list.
		if !contains(cfg.LeadPipelines, deal.Pipeline) {
			continue
		}

		switch unit {
		case UnitTrips:
			applyTripStages(&m, deal, year, month)
		case UnitElopement:
			if inMonth(deal.WonAt, year, month) {
				m.Won++
			}
		default:
			applyWeddingStages(&m, deal, year, month)
		}
	}
	return m
}

func applyWeddingStages(m *Metrics, deal domain.Deal, year int, month time.Month) {
	if inMonth(deal.FirstMeetingAt, year, month) {
		m.MeetingScheduled++
		if outcomeHeld(deal.FirstMeetingOutcome) {
			m.MeetingHeld++
		}
	}
	if inMonth(deal.QualifiedAt, year, month) {
		m.Qualified++
	}
	if inMonth(deal.CloserMeetingAt, year, month) {
		m.CloserScheduled++
		if deal.CloserMeetingOutcome != nil && *deal.CloserMeetingOutcome != "" {
			m.CloserHeld++
		}
	}
	if inMonth(deal.WonAt, year, month) {
		m.Won++
	}
}

func applyTripStages(m *Metrics, deal domain.Deal, year int, month time.Month) {
	if inMonth(deal.TripMeetingAt, year, month) {
		m.MeetingScheduled++
		if outcomeHeld(deal.TripMeetingOutcome) {
			m.MeetingHeld++
		}
		if deal.FeePaid != nil && *deal.FeePaid {
			m.FeePaid++
		}
	}
}

// belongsToUnit applies the sub-line selector. Wedding and elopement share
// pipelines and are split by the elopement attribution; trips deals are
// identified by their own pipelines.
func belongsToUnit(deal domain.Deal, unit Unit, cfg UnitConfig) bool {
	switch unit {
	case UnitElopement:
		return deal.IsElopementDeal()
	case UnitTrips:
		return contains(cfg.LeadPipelines, deal.Pipeline)
	default:
		return !deal.IsElopementDeal()
	}
}

func outcomeHeld(outcome *string) bool {
	return outcome != nil && *outcome != "" && *outcome != noMeetingSentinel
}

func inMonth(t *time.Time, year int, month time.Month) bool {
	if t == nil {
		return false
	}
	u := t.UTC()
	return u.Year() == year && u.Month() == month
}

// MergeTotal combines wedding and elopement metrics for the total view.
// Leads and Won are summed; every other stage reports the wedding value,
// because the elopement sub-line does not track the intermediate stages.
func MergeTotal(wedding, elopement Metrics) Metrics {
	merged := wedding
	merged.Leads = wedding.Leads + elopement.Leads
	merged.Won = wedding.Won + elopement.Won
	return merged
}

// MonthRange returns the [start, end) UTC bounds of a calendar month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// PreviousMonth steps one month back from (year, month).
func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}
