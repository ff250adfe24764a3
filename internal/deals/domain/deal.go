// Package domain holds the canonical deal model shared by the webhook
// normalizer, the funnel engine and the reconciliation job.
package domain

import (
	"strings"
	"time"
)

// Status is the deal status reported by the CRM.
type Status string

const (
	StatusOpen Status = "Open"
	StatusWon  Status = "Won"
	StatusLost Status = "Lost"
)

// elopementTitlePrefix marks elopement deals by title convention.
// DW (Destination Wedding) titles stay in the main wedding funnel.
const elopementTitlePrefix = "EW"

// Deal is the canonical snapshot of one CRM sales opportunity.
// Nullable CRM columns map to pointer fields.
type Deal struct {
	ID        int64
	Title     string
	Pipeline  string
	Stage     string
	Status    Status
	CreatedAt *time.Time
	UpdatedAt *time.Time

	// Business attributes
	PartnerName             *string
	GuestCount              *int
	Budget                  *float64
	Destination             *string
	LossReason              *string
	SDRQualificationReasons *string

	// Funnel event dates (wedding)
	FirstMeetingAt       *time.Time
	FirstMeetingOutcome  *string
	QualifiedAt          *time.Time
	QualifiedSQL         *bool
	CloserMeetingAt      *time.Time
	CloserMeetingOutcome *string
	WonAt                *time.Time

	// Elopement sub-line flag
	IsElopement *bool

	// Trips fields
	TripMeetingAt      *time.Time
	TripMeetingOutcome *string
	FeePaid            *bool
}

// IsElopementDeal reports whether the deal belongs to the elopement sub-line,
// either by explicit flag or by the EW title prefix convention.
func (d Deal) IsElopementDeal() bool {
	if d.IsElopement != nil && *d.IsElopement {
		return true
	}
	return strings.HasPrefix(d.Title, elopementTitlePrefix)
}

// Patch describes a partial update of a deal. Nil fields are left untouched
// on upsert; non-nil fields overwrite the stored value.
type Patch struct {
	ID        int64
	Title     *string
	Pipeline  *string
	Stage     *string
	Status    *Status
	CreatedAt *time.Time

	PartnerName             *string
	GuestCount              *int
	Budget                  *float64
	Destination             *string
	LossReason              *string
	SDRQualificationReasons *string

	FirstMeetingAt       *time.Time
	FirstMeetingOutcome  *string
	QualifiedAt          *time.Time
	QualifiedSQL         *bool
	CloserMeetingAt      *time.Time
	CloserMeetingOutcome *string
	WonAt                *time.Time

	IsElopement *bool

	TripMeetingAt      *time.Time
	TripMeetingOutcome *string
	FeePaid            *bool
}

// UnitFilter narrows store reads to one wedding sub-line.
type UnitFilter int

const (
	// UnitAny applies no sub-line filter.
	UnitAny UnitFilter = iota
	// UnitWeddingOnly excludes elopement-attributed deals.
	UnitWeddingOnly
	// UnitElopementOnly keeps only elopement-attributed deals.
	UnitElopementOnly
)

// EventDateField names a filterable event-date column. The repository maps
// these to columns through a closed table, never through caller strings.
type EventDateField int

const (
	EventFirstMeetingAt EventDateField = iota
	EventQualifiedAt
	EventCloserMeetingAt
	EventWonAt
	EventTripMeetingAt
)
