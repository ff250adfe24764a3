package webhook

import (
	"testing"
	"time"

	"funnel_dashboard_backend/internal/deals/domain"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-01-15 14:30:00", time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC), true},
		{"15/01/2026 14:30", time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC), true},
		{"15/01/2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2026-01-15T14:30:00Z", time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC), true},
		{"2026-01-15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("parseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"yes", "Sim", "TRUE", "1"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"no", "não", "0", ""} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true, want false", v)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"R$ 35.000", 35.000, true},
		{"120", 120, true},
		{"€1500", 1500, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseNumber(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBuildPatch_MapsKnownFields(t *testing.T) {
	deal := DealPayload{
		ID:         "321",
		Title:      "Casamento Ana",
		Pipeline:   "SDR Weddings",
		Status:     "1",
		CreateDate: "2026-01-10 09:00:00",
		Fields: []Field{
			{Key: "Data e horário do agendamento da 1ª reunião", Value: "20/01/2026 15:00"},
			{Key: "Qualificado para SQL", Value: "Sim"},
			{Key: "Número de convidados:", Value: "120"},
			{Key: "Campo desconhecido", Value: "qualquer"},
			{Key: "Orçamento:", Value: "sem número"},
		},
	}

	patch, ok := BuildPatch(deal)
	if !ok {
		t.Fatal("expected valid patch")
	}

	if patch.ID != 321 {
		t.Fatalf("id: %d", patch.ID)
	}
	if patch.Status == nil || *patch.Status != domain.StatusWon {
		t.Fatalf("status: %v", patch.Status)
	}
	if patch.FirstMeetingAt == nil || !patch.FirstMeetingAt.Equal(time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("first meeting: %v", patch.FirstMeetingAt)
	}
	if patch.QualifiedSQL == nil || !*patch.QualifiedSQL {
		t.Fatalf("qualified_sql: %v", patch.QualifiedSQL)
	}
	if patch.GuestCount == nil || *patch.GuestCount != 120 {
		t.Fatalf("guest count: %v", patch.GuestCount)
	}
	// Unknown label and an unparseable number are skipped, not fatal.
	if patch.Budget != nil {
		t.Fatalf("invalid budget must be skipped, got %v", *patch.Budget)
	}
}

func TestBuildPatch_ElopementPipelineFlag(t *testing.T) {
	patch, ok := BuildPatch(DealPayload{ID: "5", Pipeline: "Elopment Wedding"})
	if !ok {
		t.Fatal("expected valid patch")
	}
	if patch.IsElopement == nil || !*patch.IsElopement {
		t.Fatalf("is_elopement: %v", patch.IsElopement)
	}

	patch, _ = BuildPatch(DealPayload{ID: "6", Pipeline: "SDR Weddings"})
	if patch.IsElopement == nil || *patch.IsElopement {
		t.Fatalf("non-elopement pipeline must set the flag false, got %v", patch.IsElopement)
	}
}

func TestBuildPatch_UnrecognizedStatusClears(t *testing.T) {
	patch, ok := BuildPatch(DealPayload{ID: "7", Status: "9"})
	if !ok {
		t.Fatal("expected valid patch")
	}
	// The empty status is the "clear" marker the store writes as NULL; an
	// unknown code must not be dropped from the patch.
	if patch.Status == nil || *patch.Status != domain.Status("") {
		t.Fatalf("status: %v", patch.Status)
	}
}

func TestBuildPatch_RejectsBadID(t *testing.T) {
	if _, ok := BuildPatch(DealPayload{ID: ""}); ok {
		t.Fatal("empty id must be rejected")
	}
	if _, ok := BuildPatch(DealPayload{ID: "abc"}); ok {
		t.Fatal("non-numeric id must be rejected")
	}
	if _, ok := BuildPatch(DealPayload{ID: "-3"}); ok {
		t.Fatal("negative id must be rejected")
	}
}

func TestBuildPatch_AbsentFieldsStayNil(t *testing.T) {
	patch, ok := BuildPatch(DealPayload{ID: "9"})
	if !ok {
		t.Fatal("expected valid patch")
	}
	if patch.Title != nil || patch.Pipeline != nil || patch.Status != nil || patch.CreatedAt != nil {
		t.Fatalf("absent fields must stay nil: %+v", patch)
	}
}
