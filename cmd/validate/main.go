// Command validate performs end-to-end data integrity checks across the wait
// data mock fixtures: collector snapshot files, the raw observation fixture,
// and the canonical record fixture. It verifies counts, field presence,
// transformation correctness, and cross-source consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -snapshot-dir ../wait-data-collector/data \
//	  -raw-json data/mock/wait_snapshots_251109_observations.json \
//	  -canonical-json data/mock/wait_records_251109_canonical.json
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/triagelink/wait-data-etl/internal/domain"
	"github.com/triagelink/wait-data-etl/internal/refdata"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	snapshotDir := flag.String("snapshot-dir", "", "directory containing collector snapshot files")
	rawJSON := flag.String("raw-json", "", "path to raw observation fixture")
	canonicalJSON := flag.String("canonical-json", "", "path to canonical record fixture")
	hospitalTable := flag.String("hospital-table", "data/reference/hospitals.yaml", "hospital reference table")
	triageTable := flag.String("triage-table", "data/reference/triage_conditions.yaml", "triage reference table")
	timezone := flag.String("timezone", "America/Toronto", "zone collector timestamps are interpreted in")
	flag.Parse()

	if *snapshotDir == "" || *rawJSON == "" || *canonicalJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*snapshotDir, *rawJSON, *canonicalJSON, *hospitalTable, *triageTable, *timezone); code != 0 {
		os.Exit(code)
	}
}

func run(snapshotDir, rawJSONPath, canonicalJSONPath, hospitalPath, triagePath, timezone string) int {
	// Fix the clock to match genmock so record IDs reproduce.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.November, 10, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Wait Data Integrity Validation ===")
	fmt.Println()

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load timezone: %v\n", err)
		return 1
	}

	table, err := refdata.LoadHospitalTable(hospitalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load hospital table: %v\n", err)
		return 1
	}
	resolver, err := refdata.NewResolver(table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build resolver: %v\n", err)
		return 1
	}
	conditions, err := refdata.LoadTriageTable(triagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load triage table: %v\n", err)
		return 1
	}
	triage, err := refdata.NewTriageIndex(conditions, resolver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build triage index: %v\n", err)
		return 1
	}

	snapshots, err := loadSnapshots(snapshotDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load snapshots: %v\n", err)
		return 1
	}

	observations, err := loadJSON[domain.RawObservation](rawJSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw fixture: %v\n", err)
		return 1
	}

	records, err := loadJSON[domain.CanonicalRecord](canonicalJSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load canonical fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSnapshotIntegrity(snapshots, loc),
		validateRawParity(snapshots, observations),
		validateCanonicalTransformation(observations, records, resolver, triage, loc),
		validateSchemaAlignment(records),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d snapshots, %d observations, %d canonical\n",
		len(snapshots), len(observations), len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadSnapshots(dir string) ([]domain.RawSnapshot, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no snapshot files in %s", dir)
	}
	sort.Strings(files)

	var snaps []domain.RawSnapshot
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(f)
		for {
			var snap domain.RawSnapshot
			if err := dec.Decode(&snap); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				f.Close()
				return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			snaps = append(snaps, snap)
		}
		f.Close()
	}
	return snaps, nil
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Snapshot Integrity ──
// Validates that every collector snapshot decodes into usable observations.

func validateSnapshotIntegrity(snaps []domain.RawSnapshot, loc *time.Location) *phase {
	p := &phase{name: "Phase 1: Snapshot Integrity (collector files)"}

	for i, snap := range snaps {
		if len(snap.Data) == 0 {
			p.errorf("snapshot %d: empty data map", i)
		}
		value, err := json.Marshal(snap)
		if err != nil {
			p.errorf("snapshot %d: marshal: %v", i, err)
			continue
		}
		if _, err := domain.ParseRawEvent(domain.RawEvent{Value: value, Timestamp: time.Now()}, loc); err != nil {
			p.errorf("snapshot %d: %v", i, err)
		}
		for name, text := range snap.Data {
			if name == "" {
				p.errorf("snapshot %d: empty hospital name", i)
			}
			if text == "" {
				p.errorf("snapshot %d: hospital %q has empty wait text", i, name)
			}
		}
	}
	return p
}

// ── Phase 2: Raw Parity ──
// Validates the raw observation fixture against the snapshot files.

func validateRawParity(snaps []domain.RawSnapshot, observations []domain.RawObservation) *phase {
	p := &phase{name: "Phase 2: Raw Parity (fixture vs snapshots)"}

	expectedTotal := 0
	expected := map[string]int{}
	for _, snap := range snaps {
		expectedTotal += len(snap.Data)
		for name, text := range snap.Data {
			expected[name+"|"+text]++
		}
	}

	if len(observations) != expectedTotal {
		p.errorf("total count: expected %d, got %d", expectedTotal, len(observations))
	}

	actual := map[string]int{}
	for i := range observations {
		obs := &observations[i]
		actual[obs.HospitalName+"|"+obs.WaitText]++
		if obs.CollectedAt.IsZero() {
			p.errorf("observation %d (%s): zero collected_at", i, obs.HospitalName)
		}
	}

	for key, n := range expected {
		if actual[key] != n {
			p.errorf("entry %q: snapshots have %d, fixture has %d", key, n, actual[key])
		}
	}
	return p
}

// ── Phase 3: Canonical Transformation ──
// Re-runs the transformation on the raw fixture and compares field by field.

func validateCanonicalTransformation(observations []domain.RawObservation, records []domain.CanonicalRecord, resolver *refdata.Resolver, triage *refdata.TriageIndex, loc *time.Location) *phase {
	p := &phase{name: "Phase 3: Canonical Transformation"}

	byID := map[string]*domain.CanonicalRecord{}
	for i := range records {
		if records[i].ID == "" {
			p.errorf("canonical record %d: missing ID", i)
			continue
		}
		byID[records[i].ID] = &records[i]
	}

	synth := domain.NewSynthesizer(loc)
	for i := range observations {
		obs := observations[i]

		identity, err := resolver.Resolve(obs.HospitalName)
		if err != nil {
			continue // unresolvable names never reach the canonical fixture
		}
		wait, err := domain.ParseWaitTime(obs.WaitText)
		if err != nil {
			continue
		}
		identity.Tier = triage.TierFor(identity)

		expected, err := synth.Synthesize(identity, wait, obs)
		if err != nil {
			p.errorf("observation %d (%s): %v", i, obs.HospitalName, err)
			continue
		}

		got, ok := byID[expected.ID]
		if !ok {
			p.errorf("observation %d (%s): ID %q not found in canonical fixture", i, obs.HospitalName, expected.ID)
			continue
		}
		compareRecords(p, &expected, got)
	}
	return p
}

func compareRecords(p *phase, expected, got *domain.CanonicalRecord) {
	id := expected.ID

	if got.HospitalID != expected.HospitalID {
		p.errorf("ID %s: hospital_id: expected %d, got %d", id, expected.HospitalID, got.HospitalID)
	}
	if got.StandardName != expected.StandardName {
		p.errorf("ID %s: standard_name: expected %q, got %q", id, expected.StandardName, got.StandardName)
	}
	if got.Region != expected.Region {
		p.errorf("ID %s: region: expected %q, got %q", id, expected.Region, got.Region)
	}
	if got.Tier != expected.Tier {
		p.errorf("ID %s: tier: expected %d, got %d", id, expected.Tier, got.Tier)
	}
	if got.DataAvailable != expected.DataAvailable {
		p.errorf("ID %s: data_available: expected %v, got %v", id, expected.DataAvailable, got.DataAvailable)
	}
	if !ptrFloatEq(got.WaitTimeMinutes, expected.WaitTimeMinutes) {
		p.errorf("ID %s: wait_time_minutes mismatch", id)
	}
	if !got.CollectedAt.Equal(expected.CollectedAt) {
		p.errorf("ID %s: collected_at: expected %s, got %s", id,
			expected.CollectedAt.Format(time.RFC3339), got.CollectedAt.Format(time.RFC3339))
	}
	if got.HourOfDay != expected.HourOfDay {
		p.errorf("ID %s: hour_of_day: expected %d, got %d", id, expected.HourOfDay, got.HourOfDay)
	}
	if got.DayOfWeek != expected.DayOfWeek {
		p.errorf("ID %s: day_of_week: expected %d, got %d", id, expected.DayOfWeek, got.DayOfWeek)
	}
	if got.IsWeekend != expected.IsWeekend {
		p.errorf("ID %s: is_weekend mismatch", id)
	}
	if got.IsNightShift != expected.IsNightShift {
		p.errorf("ID %s: is_night_shift mismatch", id)
	}
	if got.Suspect != expected.Suspect {
		p.errorf("ID %s: suspect mismatch", id)
	}
}

// ── Phase 4: Schema Alignment ──
// Validates canonical records against the sink contract.

func validateSchemaAlignment(records []domain.CanonicalRecord) *phase {
	p := &phase{name: "Phase 4: Schema Alignment (sink contract)"}
	for i := range records {
		checkSchemaRecord(p, i, &records[i])
	}
	return p
}

func checkSchemaRecord(p *phase, i int, r *domain.CanonicalRecord) {
	pf := func(format string, args ...any) {
		p.errorf("record %d (ID %s): "+format, append([]any{i, r.ID}, args...)...)
	}

	if r.ID == "" {
		pf("id is empty")
	}
	if r.HospitalID <= 0 {
		pf("hospital_id %d is not positive", r.HospitalID)
	}
	if r.StandardName == "" {
		pf("standard_name is empty")
	}
	if !r.Region.Valid() {
		pf("region %q not in enumeration", r.Region)
	}
	if r.Tier < domain.TierNone || r.Tier > domain.TierPediatricUnit {
		pf("tier %d out of range", r.Tier)
	}

	// Availability invariant: minutes present iff available, except for
	// policy-imputed fills which carry both flags.
	if r.DataAvailable && r.WaitTimeMinutes == nil {
		pf("data_available but wait_time_minutes is null")
	}
	if !r.DataAvailable && r.WaitTimeMinutes != nil {
		pf("wait_time_minutes %g set while data_available is false", *r.WaitTimeMinutes)
	}
	if r.Imputed && !r.DataAvailable {
		pf("imputed record must be data_available")
	}
	if r.WaitTimeMinutes != nil && *r.WaitTimeMinutes < 0 {
		pf("negative wait_time_minutes %g", *r.WaitTimeMinutes)
	}

	if r.HourOfDay < 0 || r.HourOfDay > 23 {
		pf("hour_of_day %d out of range", r.HourOfDay)
	}
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		pf("day_of_week %d out of range", r.DayOfWeek)
	}
	if r.IsWeekend != (r.DayOfWeek >= 5) {
		pf("is_weekend inconsistent with day_of_week %d", r.DayOfWeek)
	}

	checkRegionFlags(pf, r)

	if r.CollectedAt.IsZero() {
		pf("collected_at is zero")
	}
	if r.ProcessedAt.IsZero() {
		pf("processed_at is zero")
	}
}

func checkRegionFlags(pf func(string, ...any), r *domain.CanonicalRecord) {
	if len(r.RegionFlags) != len(domain.Regions()) {
		pf("region_flags has %d keys, want %d", len(r.RegionFlags), len(domain.Regions()))
		return
	}
	trueCount := 0
	for _, region := range domain.Regions() {
		set, ok := r.RegionFlags["region_"+string(region)]
		if !ok {
			pf("region_flags missing key region_%s", region)
			return
		}
		if set {
			trueCount++
			if region != r.Region {
				pf("region_flags marks %q but region is %q", region, r.Region)
			}
		}
	}
	if trueCount != 1 {
		pf("region_flags has %d true columns, want exactly 1", trueCount)
	}
}

// ── Helpers ──

func ptrFloatEq(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return math.Abs(*a-*b) < 1e-9
}
