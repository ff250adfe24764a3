package domain

import (
	"math"
	"time"

	"funnel_dashboard_backend/internal/funnel"
)

// StageComparison reports a single stage's progress against its goal.
type StageComparison struct {
	Target         int     `json:"target"`
	Actual         int     `json:"actual"`
	ShouldBeByNow  int     `json:"shouldBeByNow"`
	AchievementPct float64 `json:"achievementPct"`
}

// Comparison maps every funnel stage to its goal progress.
type Comparison struct {
	Leads            StageComparison `json:"leads"`
	MQL              StageComparison `json:"mql"`
	MeetingScheduled StageComparison `json:"meetingScheduled"`
	MeetingHeld      StageComparison `json:"meetingHeld"`
	Qualified        StageComparison `json:"qualified"`
	CloserScheduled  StageComparison `json:"closerScheduled"`
	CloserHeld       StageComparison `json:"closerHeld"`
	Won              StageComparison `json:"won"`
	FeePaid          StageComparison `json:"feePaid"`
}

// Conversions holds the stage-to-stage rates of the funnel chain, in percent.
type Conversions struct {
	LeadToMQL              float64 `json:"leadToMql"`
	MQLToMeetingScheduled  float64 `json:"mqlToMeetingScheduled"`
	MeetingScheduledToHeld float64 `json:"meetingScheduledToHeld"`
	MeetingHeldToQualified float64 `json:"meetingHeldToQualified"`
	QualifiedToCloserSched float64 `json:"qualifiedToCloserScheduled"`
	CloserScheduledToHeld  float64 `json:"closerScheduledToHeld"`
	CloserHeldToWon        float64 `json:"closerHeldToWon"`
	LeadToWon              float64 `json:"leadToWon"`
}

// MoMDelta holds the month-over-month change per stage, in percent.
type MoMDelta struct {
	Leads            float64 `json:"leads"`
	MQL              float64 `json:"mql"`
	MeetingScheduled float64 `json:"meetingScheduled"`
	MeetingHeld      float64 `json:"meetingHeld"`
	Qualified        float64 `json:"qualified"`
	CloserScheduled  float64 `json:"closerScheduled"`
	CloserHeld       float64 `json:"closerHeld"`
	Won              float64 `json:"won"`
	FeePaid          float64 `json:"feePaid"`
}

// MonthElapsed returns the fraction of the report month that has passed at
// the given instant, clamped to [0, 1]. Past months return 1 and future
// months return 0, so pace expectations stay meaningful on historic reports.
func MonthElapsed(now time.Time, year int, month time.Month) float64 {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	if !now.After(start) {
		return 0
	}
	if !now.Before(end) {
		return 1
	}
	return now.Sub(start).Hours() / end.Sub(start).Hours()
}

// ShouldBeByNow prorates a monthly goal by the elapsed fraction of the month.
func ShouldBeByNow(target int, elapsed float64) int {
	return int(math.Round(float64(target) * elapsed))
}

// Achievement returns actual as a percentage of the prorated goal.
// A zero prorated goal yields 0 rather than dividing by zero.
func Achievement(actual, shouldBe int) float64 {
	if shouldBe == 0 {
		return 0
	}
	return round1(float64(actual) / float64(shouldBe) * 100)
}

// Rate returns numerator as a percentage of denominator, 0 when the
// denominator is 0.
func Rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return round1(float64(numerator) / float64(denominator) * 100)
}

// Delta returns the percentage change from previous to current, 0 when the
// previous value is 0.
func Delta(current, previous int) float64 {
	if previous == 0 {
		return 0
	}
	return round1(float64(current-previous) / float64(previous) * 100)
}

// Compare builds the full per-stage goal comparison for a report month.
func Compare(actual funnel.Metrics, targets Targets, elapsed float64) Comparison {
	stage := func(target, actual int) StageComparison {
		shouldBe := ShouldBeByNow(target, elapsed)
		return StageComparison{
			Target:         target,
			Actual:         actual,
			ShouldBeByNow:  shouldBe,
			AchievementPct: Achievement(actual, shouldBe),
		}
	}
	return Comparison{
		Leads:            stage(targets.Leads, actual.Leads),
		MQL:              stage(targets.MQL, actual.MQL),
		MeetingScheduled: stage(targets.MeetingScheduled, actual.MeetingScheduled),
		MeetingHeld:      stage(targets.MeetingHeld, actual.MeetingHeld),
		Qualified:        stage(targets.Qualified, actual.Qualified),
		CloserScheduled:  stage(targets.CloserScheduled, actual.CloserScheduled),
		CloserHeld:       stage(targets.CloserHeld, actual.CloserHeld),
		Won:              stage(targets.Won, actual.Won),
		FeePaid:          stage(targets.FeePaid, actual.FeePaid),
	}
}

// FunnelConversions derives the stage-to-stage conversion chain from the
// attributed metrics.
func FunnelConversions(m funnel.Metrics) Conversions {
	return Conversions{
		LeadToMQL:              Rate(m.MQL, m.Leads),
		MQLToMeetingScheduled:  Rate(m.MeetingScheduled, m.MQL),
		MeetingScheduledToHeld: Rate(m.MeetingHeld, m.MeetingScheduled),
		MeetingHeldToQualified: Rate(m.Qualified, m.MeetingHeld),
		QualifiedToCloserSched: Rate(m.CloserScheduled, m.Qualified),
		CloserScheduledToHeld:  Rate(m.CloserHeld, m.CloserScheduled),
		CloserHeldToWon:        Rate(m.Won, m.CloserHeld),
		LeadToWon:              Rate(m.Won, m.Leads),
	}
}

// MonthOverMonth derives the per-stage deltas between two attributed months.
func MonthOverMonth(current, previous funnel.Metrics) MoMDelta {
	return MoMDelta{
		Leads:            Delta(current.Leads, previous.Leads),
		MQL:              Delta(current.MQL, previous.MQL),
		MeetingScheduled: Delta(current.MeetingScheduled, previous.MeetingScheduled),
		MeetingHeld:      Delta(current.MeetingHeld, previous.MeetingHeld),
		Qualified:        Delta(current.Qualified, previous.Qualified),
		CloserScheduled:  Delta(current.CloserScheduled, previous.CloserScheduled),
		CloserHeld:       Delta(current.CloserHeld, previous.CloserHeld),
		Won:              Delta(current.Won, previous.Won),
		FeePaid:          Delta(current.FeePaid, previous.FeePaid),
	}
}

// CostPerLead divides total ad spend by the lead count, 0 when no leads.
func CostPerLead(spend float64, leads int) float64 {
	if leads == 0 {
		return 0
	}
	return round2(spend / float64(leads))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
