package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Night shift runs 18:00 through 05:59 local time, matching ER staffing
// patterns in the source region.
const (
	nightShiftStart = 18
	nightShiftEnd   = 6
)

// Synthesizer combines a resolved identity, a parsed wait, and an observation
// timestamp into one canonical record. It is pure: temporal features are
// functions of collectedAt in the configured location and nothing else.
type Synthesizer struct {
	loc *time.Location
}

// NewSynthesizer creates a Synthesizer deriving temporal features in loc.
// The location is explicit so feature values never depend on the zone the
// process happens to run in.
func NewSynthesizer(loc *time.Location) *Synthesizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Synthesizer{loc: loc}
}

// Synthesize builds the canonical record for one observation. An identity
// carrying a region outside the closed enumeration is a SchemaDriftError:
// new regions require a schema update, not silent widening.
func (s *Synthesizer) Synthesize(identity HospitalIdentity, wait ParsedWait, obs RawObservation) (CanonicalRecord, error) {
	if !identity.Region.Valid() {
		return CanonicalRecord{}, &SchemaDriftError{Field: "region", Value: string(identity.Region)}
	}

	local := obs.CollectedAt.In(s.loc)
	hour := local.Hour()
	dayOfWeek := mondayIndexedWeekday(local.Weekday())

	rec := CanonicalRecord{
		ID:             recordID(identity.HospitalID, local, wait),
		HospitalID:     identity.HospitalID,
		StandardName:   identity.StandardName,
		Region:         identity.Region,
		Tier:           identity.Tier,
		HasPediatricER: identity.HasPediatricER,
		IsTraumaCentre: identity.IsTraumaCentre,
		DataAvailable:  wait.Available(),
		Suspect:        wait.Suspect(),
		CollectedAt:    local,
		HourOfDay:      hour,
		DayOfWeek:      dayOfWeek,
		IsWeekend:      dayOfWeek >= 5,
		IsNightShift:   hour >= nightShiftStart || hour < nightShiftEnd,
		RegionFlags:    RegionOneHot(identity.Region),
		SourceID:       obs.SourceID,
		ProcessedAt:    clock.Now(),
	}

	if minutes, ok := wait.Minutes(); ok {
		rec.WaitTimeMinutes = &minutes
	}
	return rec, nil
}

// RegionOneHot expands a region into the fixed boolean column set, one
// "region_<name>" key per known region.
func RegionOneHot(region Region) map[string]bool {
	flags := make(map[string]bool, len(Regions()))
	for _, r := range Regions() {
		flags["region_"+string(r)] = r == region
	}
	return flags
}

// mondayIndexedWeekday converts Go's Sunday=0 convention to Monday=0.
func mondayIndexedWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// recordID produces a deterministic ID from the record's key fields so
// replaying a snapshot yields identical records downstream.
func recordID(hospitalID int, collectedAt time.Time, wait ParsedWait) string {
	minutes, ok := wait.Minutes()
	waitKey := "na"
	if ok {
		waitKey = fmt.Sprintf("%g", minutes)
	}
	input := fmt.Sprintf("%d|%s|%s", hospitalID, collectedAt.UTC().Format(time.RFC3339), waitKey)
	hash := sha256.Sum256([]byte(input))
	return "wait-" + hex.EncodeToString(hash[:8])
}
