package webhook

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"funnel_dashboard_backend/internal/deals/domain"
)

// statusByCode translates ActiveCampaign numeric status codes.
// Unrecognized codes clear the stored status.
var statusByCode = map[string]domain.Status{
	"0": domain.StatusOpen,
	"1": domain.StatusWon,
	"2": domain.StatusLost,
}

const elopementPipeline = "Elopment Wedding"

type coercion int

const (
	asText coercion = iota
	asDate
	asBool
	asNumber
)

type fieldTarget struct {
	column string
	kind   coercion
}

// fieldTargets maps the CRM's custom field labels (as configured in
// ActiveCampaign, in Portuguese) to canonical columns and their coercion.
var fieldTargets = map[string]fieldTarget{
	"Data e horário do agendamento da 1ª reunião":  {"first_meeting_at", asDate},
	"Como foi feita a 1ª reunião?":                 {"first_meeting_outcome", asText},
	"Data e horário do agendamento com a Closer:":  {"closer_meeting_at", asDate},
	"Motivos de qualificação SDR":                  {"sdr_qualification_reasons", asText},
	"[WW] [Closer] Data-Hora Ganho":                {"won_at", asDate},
	"Automático - WW - Data Qualificação SDR":      {"qualified_at", asDate},
	"Qualificado para SQL":                         {"qualified_sql", asBool},
	"WW | Como foi feita Reunião Closer":           {"closer_meeting_outcome", asText},
	"Motivo de perda":                              {"loss_reason", asText},
	"Nome do Noivo(a)2":                            {"partner_name", asText},
	"Número de convidados:":                        {"guest_count", asNumber},
	"Orçamento:":                                   {"budget", asNumber},
	"Destino":                                      {"destination", asText},
	"Trips | Data e horário da reunião":            {"trip_meeting_at", asDate},
	"Trips | Como foi feita a reunião":             {"trip_meeting_outcome", asText},
	"Trips | Pagou a taxa":                         {"fee_paid", asBool},
}

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[ T](\d{2}):(\d{2}):(\d{2})`)
	brDatePattern  = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})\s*(\d{2})?:?(\d{2})?`)
)

// parseDate accepts the CRM's date spellings: "YYYY-MM-DD HH:MM:SS",
// Brazilian "DD/MM/YYYY [HH:MM]" and RFC3339. All results are UTC.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(value); m != nil {
		t, err := time.Parse("2006-01-02 15:04:05", strings.Join([]string{m[1] + "-" + m[2] + "-" + m[3], m[4] + ":" + m[5] + ":" + m[6]}, " "))
		if err == nil {
			return t.UTC(), true
		}
	}
	if m := brDatePattern.FindStringSubmatch(value); m != nil {
		hour, minute := m[4], m[5]
		if hour == "" {
			hour = "00"
		}
		if minute == "" {
			minute = "00"
		}
		t, err := time.Parse("2006-01-02 15:04", m[3]+"-"+m[2]+"-"+m[1]+" "+hour+":"+minute)
		if err == nil {
			return t.UTC(), true
		}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// parseBool follows the CRM convention: yes/sim/true/1 are true, anything
// else is false.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "sim", "true", "1":
		return true
	}
	return false
}

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// parseNumber strips currency symbols and separators before parsing, so
// "R$ 35.000" and "120" both work.
func parseNumber(value string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(value, "")
	if cleaned == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// BuildPatch turns a raw deal payload into a partial update. Only fields the
// payload actually carries are set; individually invalid values are skipped
// without failing the rest of the patch.
func BuildPatch(deal DealPayload) (domain.Patch, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(deal.ID), 10, 64)
	if err != nil || id <= 0 {
		return domain.Patch{}, false
	}

	patch := domain.Patch{ID: id}
	if deal.Title != "" {
		patch.Title = &deal.Title
	}
	if deal.Pipeline != "" {
		patch.Pipeline = &deal.Pipeline
		isElopement := deal.Pipeline == elopementPipeline
		patch.IsElopement = &isElopement
	}
	if deal.Stage != "" {
		patch.Stage = &deal.Stage
	}
	if deal.Status != "" {
		// A code outside the known set maps to the empty status, which the
		// store writes as NULL.
		status := statusByCode[deal.Status]
		patch.Status = &status
	}
	if t, ok := parseDate(deal.CreateDate); ok {
		patch.CreatedAt = &t
	}

	for _, field := range deal.Fields {
		applyField(&patch, field)
	}
	return patch, true
}

func applyField(patch *domain.Patch, field Field) {
	value := strings.TrimSpace(field.Value)
	if value == "" {
		return
	}
	target, ok := fieldTargets[field.Key]
	if !ok {
		return
	}

	switch target.kind {
	case asDate:
		t, ok := parseDate(value)
		if !ok {
			return
		}
		setDate(patch, target.column, t)
	case asBool:
		b := parseBool(value)
		setBool(patch, target.column, b)
	case asNumber:
		n, ok := parseNumber(value)
		if !ok {
			return
		}
		setNumber(patch, target.column, n)
	default:
		setText(patch, target.column, value)
	}
}

func setDate(patch *domain.Patch, column string, t time.Time) {
	switch column {
	case "first_meeting_at":
		patch.FirstMeetingAt = &t
	case "qualified_at":
		patch.QualifiedAt = &t
	case "closer_meeting_at":
		patch.CloserMeetingAt = &t
	case "won_at":
		patch.WonAt = &t
	case "trip_meeting_at":
		patch.TripMeetingAt = &t
	}
}

func setBool(patch *domain.Patch, column string, b bool) {
	switch column {
	case "qualified_sql":
		patch.QualifiedSQL = &b
	case "fee_paid":
		patch.FeePaid = &b
	}
}

func setNumber(patch *domain.Patch, column string, n float64) {
	switch column {
	case "guest_count":
		count := int(n)
		patch.GuestCount = &count
	case "budget":
		patch.Budget = &n
	}
}

func setText(patch *domain.Patch, column, value string) {
	switch column {
	case "first_meeting_outcome":
		patch.FirstMeetingOutcome = &value
	case "closer_meeting_outcome":
		patch.CloserMeetingOutcome = &value
	case "sdr_qualification_reasons":
		patch.SDRQualificationReasons = &value
	case "loss_reason":
		patch.LossReason = &value
	case "partner_name":
		patch.PartnerName = &value
	case "destination":
		patch.Destination = &value
	case "trip_meeting_outcome":
		patch.TripMeetingOutcome = &value
	}
}
