package domain

import (
	"testing"
	"time"

	"funnel_dashboard_backend/internal/funnel"
)

func TestMonthElapsed(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		year  int
		month time.Month
		want  float64
	}{
		{"past month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2026, time.January, 1},
		{"future month", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 2026, time.March, 0},
		{"exact start", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2026, time.January, 0},
	}
	for _, tt := range tests {
		if got := MonthElapsed(tt.now, tt.year, tt.month); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}

	// Mid-month falls strictly between 0 and 1.
	mid := MonthElapsed(time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), 2026, time.January)
	if mid <= 0.4 || mid >= 0.6 {
		t.Fatalf("mid-month fraction out of range: %v", mid)
	}
}

func TestShouldBeByNow(t *testing.T) {
	if got := ShouldBeByNow(100, 0.5); got != 50 {
		t.Fatalf("got %d, want 50", got)
	}
	if got := ShouldBeByNow(31, 0.5); got != 16 {
		t.Fatalf("rounding: got %d, want 16", got)
	}
	if got := ShouldBeByNow(0, 0.9); got != 0 {
		t.Fatalf("zero target: got %d, want 0", got)
	}
}

func TestAchievement_ZeroGuard(t *testing.T) {
	if got := Achievement(5, 0); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
	if got := Achievement(40, 50); got != 80 {
		t.Fatalf("got %v, want 80", got)
	}
}

func TestRate_ZeroGuard(t *testing.T) {
	if got := Rate(3, 0); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
	if got := Rate(1, 3); got != 33.3 {
		t.Fatalf("got %v, want 33.3", got)
	}
}

func TestDelta(t *testing.T) {
	if got := Delta(15, 10); got != 50 {
		t.Fatalf("got %v, want 50", got)
	}
	if got := Delta(5, 10); got != -50 {
		t.Fatalf("got %v, want -50", got)
	}
	if got := Delta(7, 0); got != 0 {
		t.Fatalf("previous zero: got %v, want 0", got)
	}
}

func TestCompare_BuildsProratedStages(t *testing.T) {
	actual := funnel.Metrics{Leads: 40, Won: 2}
	targets := Targets{Leads: 100, Won: 10}

	cmp := Compare(actual, targets, 0.5)

	if cmp.Leads.ShouldBeByNow != 50 {
		t.Fatalf("leads shouldBe: got %d, want 50", cmp.Leads.ShouldBeByNow)
	}
	if cmp.Leads.AchievementPct != 80 {
		t.Fatalf("leads achievement: got %v, want 80", cmp.Leads.AchievementPct)
	}
	if cmp.Won.Actual != 2 || cmp.Won.Target != 10 {
		t.Fatalf("won stage wrong: %+v", cmp.Won)
	}
	if cmp.MQL.AchievementPct != 0 {
		t.Fatalf("zero-target stage must report 0 achievement, got %v", cmp.MQL.AchievementPct)
	}
}

func TestFunnelConversions_Chain(t *testing.T) {
	m := funnel.Metrics{Leads: 100, MQL: 50, MeetingScheduled: 25, MeetingHeld: 20, Qualified: 10, CloserScheduled: 8, CloserHeld: 4, Won: 2}

	conv := FunnelConversions(m)

	if conv.LeadToMQL != 50 {
		t.Fatalf("lead->mql: got %v", conv.LeadToMQL)
	}
	if conv.MeetingScheduledToHeld != 80 {
		t.Fatalf("scheduled->held: got %v", conv.MeetingScheduledToHeld)
	}
	if conv.LeadToWon != 2 {
		t.Fatalf("lead->won: got %v", conv.LeadToWon)
	}
}

func TestMergeTargets(t *testing.T) {
	wedding := Targets{Year: 2026, Month: 1, Leads: 100, Won: 10, CostPerLead: 30}
	elopement := Targets{Year: 2026, Month: 1, Leads: 40, Won: 6, CostPerLead: 20}

	merged := MergeTargets(wedding, elopement)

	if merged.Leads != 140 || merged.Won != 16 {
		t.Fatalf("counts not summed: %+v", merged)
	}
	if merged.CostPerLead != 25 {
		t.Fatalf("cpl not averaged: got %v", merged.CostPerLead)
	}

	noElopementCPL := MergeTargets(wedding, Targets{Leads: 40})
	if noElopementCPL.CostPerLead != 30 {
		t.Fatalf("missing cpl must not halve the other: got %v", noElopementCPL.CostPerLead)
	}
}

func TestCostPerLead(t *testing.T) {
	if got := CostPerLead(1000, 40); got != 25 {
		t.Fatalf("got %v, want 25", got)
	}
	if got := CostPerLead(1000, 0); got != 0 {
		t.Fatalf("zero leads: got %v, want 0", got)
	}
}
