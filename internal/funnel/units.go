// Package funnel implements the stage attribution engine: it turns a pool of
// deal records into per-stage counts for a given month and business unit.
package funnel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Unit identifies a business unit (funnel view).
type Unit string

const (
	UnitWedding   Unit = "wedding"
	UnitElopement Unit = "elopement"
	UnitTrips     Unit = "trips"
	// UnitTotal is the combined wedding+elopement view. It has no config of
	// its own; see MergeTotal for its asymmetric merge rules.
	UnitTotal Unit = "total"
)

// ParseUnit validates a unit string from a request.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitWedding, UnitElopement, UnitTrips, UnitTotal:
		return Unit(s), nil
	}
	return "", fmt.Errorf("unknown business unit %q", s)
}

// UnitConfig holds the attribution rules of one unit as data, so stage rules
// are table lookups rather than branching scattered through the aggregation.
type UnitConfig struct {
	// LeadPipelines is the pipeline allow-list for the Lead stage.
	LeadPipelines []string `yaml:"lead_pipelines"`
	// MQLPipelines is the strictly smaller allow-list for the MQL stage
	// (excludes the disqualified and international pipelines).
	MQLPipelines []string `yaml:"mql_pipelines"`
}

// Units carries the closed set of unit configurations.
type Units struct {
	Wedding   UnitConfig `yaml:"wedding"`
	Elopement UnitConfig `yaml:"elopement"`
	Trips     UnitConfig `yaml:"trips"`
}

// Defaults returns the pipeline allow-lists as configured in the CRM today.
func Defaults() Units {
	weddingLeads := []string{
		"SDR Weddings",
		"Closer Weddings",
		"Planejamento Weddings",
		"WW - Internacional",
		"Outros Desqualificados | Wedding",
	}
	weddingMQL := []string{
		"SDR Weddings",
		"Closer Weddings",
		"Planejamento Weddings",
	}

	return Units{
		Wedding: UnitConfig{
			LeadPipelines: weddingLeads,
			MQLPipelines:  weddingMQL,
		},
		// Elopement deals live in the wedding pipelines plus the dedicated
		// elopement pipeline, and are attributed by flag or title prefix.
		// "Elopment" matches the CRM's spelling.
		Elopement: UnitConfig{
			LeadPipelines: append([]string{"Elopment Wedding"}, weddingLeads...),
			MQLPipelines:  weddingMQL,
		},
		Trips: UnitConfig{
			LeadPipelines: []string{
				"SDR Trips",
				"Closer Trips",
				"Outros Desqualificados | Trips",
			},
			MQLPipelines: []string{
				"SDR Trips",
				"Closer Trips",
			},
		},
	}
}

// LoadUnits returns the default unit configurations, optionally overridden by
// a YAML file. Pipeline renames in the CRM are an ops concern, not a deploy.
func LoadUnits(path string) (Units, error) {
	units := Defaults()
	if path == "" {
		return units, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Units{}, fmt.Errorf("read funnel units file: %w", err)
	}
	if err := yaml.Unmarshal(data, &units); err != nil {
		return Units{}, fmt.Errorf("parse funnel units file: %w", err)
	}

	if len(units.Wedding.LeadPipelines) == 0 || len(units.Trips.LeadPipelines) == 0 {
		return Units{}, fmt.Errorf("funnel units file must keep lead pipeline lists non-empty")
	}
	return units, nil
}

// For returns the pipeline configuration for one business unit. The combined
// view falls back to the wedding configuration.
func (u Units) For(unit Unit) UnitConfig {
	switch unit {
	case UnitElopement:
		return u.Elopement
	case UnitTrips:
		return u.Trips
	default:
		return u.Wedding
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
