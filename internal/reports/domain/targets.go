// Package domain holds the report types and the pure target comparison logic.
package domain

// Targets holds the monthly goals for one business unit.
type Targets struct {
	Unit             string  `json:"unit"`
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	Leads            int     `json:"leads" validate:"gte=0"`
	MQL              int     `json:"mql" validate:"gte=0"`
	MeetingScheduled int     `json:"meetingScheduled" validate:"gte=0"`
	MeetingHeld      int     `json:"meetingHeld" validate:"gte=0"`
	Qualified        int     `json:"qualified" validate:"gte=0"`
	CloserScheduled  int     `json:"closerScheduled" validate:"gte=0"`
	CloserHeld       int     `json:"closerHeld" validate:"gte=0"`
	Won              int     `json:"won" validate:"gte=0"`
	FeePaid          int     `json:"feePaid" validate:"gte=0"`
	CostPerLead      float64 `json:"costPerLead" validate:"gte=0"`
}

// MergeTargets combines the wedding and elopement goals for the combined
// view. Stage counts are summed; the cost-per-lead goal is averaged because
// both units buy from the same ad accounts.
func MergeTargets(wedding, elopement Targets) Targets {
	merged := Targets{
		Unit:             "total",
		Year:             wedding.Year,
		Month:            wedding.Month,
		Leads:            wedding.Leads + elopement.Leads,
		MQL:              wedding.MQL + elopement.MQL,
		MeetingScheduled: wedding.MeetingScheduled + elopement.MeetingScheduled,
		MeetingHeld:      wedding.MeetingHeld + elopement.MeetingHeld,
		Qualified:        wedding.Qualified + elopement.Qualified,
		CloserScheduled:  wedding.CloserScheduled + elopement.CloserScheduled,
		CloserHeld:       wedding.CloserHeld + elopement.CloserHeld,
		Won:              wedding.Won + elopement.Won,
		FeePaid:          wedding.FeePaid + elopement.FeePaid,
	}
	if wedding.CostPerLead > 0 && elopement.CostPerLead > 0 {
		merged.CostPerLead = (wedding.CostPerLead + elopement.CostPerLead) / 2
	} else {
		merged.CostPerLead = wedding.CostPerLead + elopement.CostPerLead
	}
	return merged
}
