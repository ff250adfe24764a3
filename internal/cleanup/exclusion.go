// Package cleanup implements the deal reconciliation job: it re-checks
// stored deals against the CRM and removes records that no longer exist
// there or that are marked as test/duplicate data.
package cleanup

import (
	"fmt"
	"strings"
)

// exclusionKeywords flags test and duplicate records. Matching is
// case-insensitive substring matching, so "Teste de envio" and
// "DUPLICADO" both match.
var exclusionKeywords = []string{
	"teste",
	"test",
	"fake",
	"falso",
	"inválido",
	"invalido",
	"invalid",
	"duplicado",
	"duplicate",
	"repetido",
}

// Verdict is the outcome of verifying one deal against the CRM.
type Verdict struct {
	Delete bool
	Reason string
}

func keep() Verdict { return Verdict{} }

func remove(reason string) Verdict { return Verdict{Delete: true, Reason: reason} }

// matchKeyword returns the first exclusion keyword contained in value, or
// "" when the value is clean.
func matchKeyword(value string) string {
	lowered := strings.ToLower(value)
	for _, kw := range exclusionKeywords {
		if strings.Contains(lowered, kw) {
			return kw
		}
	}
	return ""
}

// evaluate applies the exclusion rules to a CRM deal snapshot. Field values
// come from the CRM custom fields keyed by field ID.
func evaluate(title, lossReason, disqualReason string) Verdict {
	// The title reason carries the bare keyword; the field reasons quote it.
	// Downstream reporting depends on these exact strings.
	if kw := matchKeyword(title); kw != "" {
		return remove("título contém " + kw)
	}
	if kw := matchKeyword(lossReason); kw != "" {
		return remove(fmt.Sprintf("motivo_perda contém %q", kw))
	}
	if kw := matchKeyword(disqualReason); kw != "" {
		return remove(fmt.Sprintf("motivo_desqualificacao contém %q", kw))
	}
	return keep()
}
