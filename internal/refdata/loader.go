// Package refdata loads and serves the static reference tables the pipeline
// depends on: the hospital alias table and the CTAS triage-condition table.
// Both are loaded fully into memory before processing starts and are
// immutable afterwards; a malformed table is a startup failure, never a
// per-record condition.
package refdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

// HospitalEntry is one row of the hospital reference table: a canonical
// identity plus every known raw-name alias for it.
type HospitalEntry struct {
	HospitalID     int      `yaml:"hospital_id"`
	StandardName   string   `yaml:"standard_name"`
	Region         string   `yaml:"region"`
	Tier           int      `yaml:"tier"`
	HasPediatricER bool     `yaml:"has_pediatric_er"`
	IsTraumaCentre bool     `yaml:"is_trauma_centre"`
	Aliases        []string `yaml:"aliases"`
}

// Identity converts the table row to its domain form.
func (e HospitalEntry) Identity() domain.HospitalIdentity {
	return domain.HospitalIdentity{
		HospitalID:     e.HospitalID,
		StandardName:   e.StandardName,
		Region:         domain.Region(e.Region),
		Tier:           e.Tier,
		HasPediatricER: e.HasPediatricER,
		IsTraumaCentre: e.IsTraumaCentre,
	}
}

// HospitalTable is the parsed hospital reference file.
type HospitalTable struct {
	Hospitals []HospitalEntry `yaml:"hospitals"`
}

// LoadHospitalTable reads and validates the hospital alias table.
func LoadHospitalTable(path string) (*HospitalTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hospital table: %w", err)
	}

	var table HospitalTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode hospital table: %w", err)
	}
	if len(table.Hospitals) == 0 {
		return nil, fmt.Errorf("hospital table %s: no hospitals defined", path)
	}

	seen := make(map[int]string, len(table.Hospitals))
	for i, h := range table.Hospitals {
		if h.HospitalID <= 0 {
			return nil, fmt.Errorf("hospital table row %d: hospital_id must be positive", i)
		}
		if prev, dup := seen[h.HospitalID]; dup {
			return nil, fmt.Errorf("hospital table row %d: hospital_id %d already used by %q", i, h.HospitalID, prev)
		}
		seen[h.HospitalID] = h.StandardName
		if h.StandardName == "" {
			return nil, fmt.Errorf("hospital table row %d: standard_name is required", i)
		}
		if !domain.Region(h.Region).Valid() {
			return nil, fmt.Errorf("hospital table row %d (%s): %w", i, h.StandardName,
				&domain.SchemaDriftError{Field: "region", Value: h.Region})
		}
		if h.Tier < domain.TierNone || h.Tier > domain.TierPediatricUnit {
			return nil, fmt.Errorf("hospital table row %d (%s): tier %d out of range", i, h.StandardName, h.Tier)
		}
	}
	return &table, nil
}

// triageFile mirrors the YAML layout of the triage-condition table.
type triageFile struct {
	Conditions []struct {
		Condition            string   `yaml:"condition"`
		AgeRange             string   `yaml:"age_range"`
		CTASLevel            int      `yaml:"ctas_level"`
		RedFlags             []string `yaml:"red_flags"`
		RecommendedTier      int      `yaml:"recommended_tier"`
		DestinationHospitals []string `yaml:"destination_hospitals"`
	} `yaml:"conditions"`
}

// TriageTable is the parsed CTAS reference file.
type TriageTable struct {
	Conditions []domain.TriageCondition
}

// LoadTriageTable reads and validates the triage-condition table.
func LoadTriageTable(path string) (*TriageTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triage table: %w", err)
	}

	var file triageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode triage table: %w", err)
	}

	table := &TriageTable{Conditions: make([]domain.TriageCondition, 0, len(file.Conditions))}
	seen := make(map[string]bool, len(file.Conditions))
	for i, c := range file.Conditions {
		if c.Condition == "" {
			return nil, fmt.Errorf("triage table row %d: condition is required", i)
		}
		if seen[c.Condition] {
			return nil, fmt.Errorf("triage table row %d: duplicate condition %q", i, c.Condition)
		}
		seen[c.Condition] = true
		if c.CTASLevel < 1 || c.CTASLevel > 5 {
			return nil, fmt.Errorf("triage table row %d (%s): ctas_level %d out of range 1-5", i, c.Condition, c.CTASLevel)
		}
		if c.RecommendedTier < domain.TierNone || c.RecommendedTier > domain.TierPediatricUnit {
			return nil, fmt.Errorf("triage table row %d (%s): recommended_tier %d out of range", i, c.Condition, c.RecommendedTier)
		}
		table.Conditions = append(table.Conditions, domain.TriageCondition{
			Condition:            c.Condition,
			AgeRange:             c.AgeRange,
			CTASLevel:            c.CTASLevel,
			RedFlags:             c.RedFlags,
			RecommendedTier:      c.RecommendedTier,
			DestinationHospitals: c.DestinationHospitals,
		})
	}
	return table, nil
}
