package domain

import (
	"context"
	"time"
)

// Region is the health region a hospital belongs to. The enumeration is
// closed: the synthesizer derives one one-hot column per value below, and an
// identity carrying any other value is schema drift, not a new region.
type Region string

const (
	RegionToronto  Region = "toronto"
	RegionPeel     Region = "peel"
	RegionYork     Region = "york"
	RegionDurham   Region = "durham"
	RegionHalton   Region = "halton"
	RegionHamilton Region = "hamilton"
)

// Regions returns every known region in fixed column order.
func Regions() []Region {
	return []Region{RegionToronto, RegionPeel, RegionYork, RegionDurham, RegionHalton, RegionHamilton}
}

// Valid reports whether r is part of the closed enumeration.
func (r Region) Valid() bool {
	switch r {
	case RegionToronto, RegionPeel, RegionYork, RegionDurham, RegionHalton, RegionHamilton:
		return true
	}
	return false
}

// Pediatric care tiers. Tier ranks capability, 1 being the strongest.
const (
	TierNone            = 0 // no dedicated pediatric capability
	TierPediatricCentre = 1 // full pediatric centre
	TierPediatricUnit   = 2 // pediatric unit within a general hospital
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawSnapshot is the flat JSON structure produced by the collector: one
// scrape cycle's hospital-name → wait-text map plus its collection stamp.
type RawSnapshot struct {
	Timestamp string            `json:"timestamp"`
	Source    string            `json:"source,omitempty"`
	Data      map[string]string `json:"data"`
}

// RawObservation is one hospital's entry from a snapshot, ready for
// resolution and parsing. Ephemeral; consumed within one transform pass.
type RawObservation struct {
	SourceID     string
	HospitalName string
	WaitText     string
	CollectedAt  time.Time
}

// HospitalIdentity is the canonical identity a raw hospital name resolves to.
// Loaded once from the reference table and shared read-only; never mutated
// mid-run.
type HospitalIdentity struct {
	HospitalID     int    `json:"hospital_id"`
	StandardName   string `json:"standard_name"`
	Region         Region `json:"region"`
	Tier           int    `json:"tier"`
	HasPediatricER bool   `json:"has_pediatric_er"`
	IsTraumaCentre bool   `json:"is_trauma_centre"`
}

// TriageCondition is one row of the static CTAS reference table. A hospital
// may appear as the destination for any number of conditions.
type TriageCondition struct {
	Condition            string   `json:"condition"`
	AgeRange             string   `json:"age_range"`
	CTASLevel            int      `json:"ctas_level"`
	RedFlags             []string `json:"red_flags,omitempty"`
	RecommendedTier      int      `json:"recommended_tier"`
	DestinationHospitals []string `json:"destination_hospitals"`
}

// CanonicalRecord is the unit of output: one fully resolved, typed,
// feature-complete wait-time observation. Created by the synthesizer,
// finalized by the missing-data policy engine, then immutable.
type CanonicalRecord struct {
	ID             string `json:"id"`
	HospitalID     int    `json:"hospital_id"`
	StandardName   string `json:"standard_name"`
	Region         Region `json:"region"`
	Tier           int    `json:"tier"`
	HasPediatricER bool   `json:"has_pediatric_er"`
	IsTraumaCentre bool   `json:"is_trauma_centre"`

	// WaitTimeMinutes is present iff DataAvailable is true. The column is
	// always emitted (null when unavailable) so the sink schema stays stable.
	WaitTimeMinutes *float64 `json:"wait_time_minutes"`
	DataAvailable   bool     `json:"data_available"`

	// Imputed marks a wait filled in by the policy engine rather than parsed
	// from source text. Suspect carries the parser's plausibility flag.
	Imputed bool `json:"imputed,omitempty"`
	Suspect bool `json:"suspect,omitempty"`

	CollectedAt  time.Time `json:"collected_at"`
	HourOfDay    int       `json:"hour_of_day"`
	DayOfWeek    int       `json:"day_of_week"` // Monday=0 .. Sunday=6
	IsWeekend    bool      `json:"is_weekend"`
	IsNightShift bool      `json:"is_night_shift"`

	// One boolean column per region, keys "region_<name>". Map keys marshal
	// sorted, so the serialized column set is stable across runs.
	RegionFlags map[string]bool `json:"region_flags"`

	// Rolling and trend enrichment over the hospital's recent history.
	// Absent until enough prior observations exist.
	Rolling1h      *float64 `json:"wait_time_rolling_1h,omitempty"`
	Rolling6h      *float64 `json:"wait_time_rolling_6h,omitempty"`
	Rolling24h     *float64 `json:"wait_time_rolling_24h,omitempty"`
	Rolling168h    *float64 `json:"wait_time_rolling_168h,omitempty"`
	Trend1h        *float64 `json:"trend_1h,omitempty"`
	TrendDirection *int     `json:"trend_direction,omitempty"` // 1 rising, -1 falling, 0 stable

	SourceID    string    `json:"source_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
