// Command genmock reads collector snapshot files and generates mock data
// fixtures for the ETL test suites. It runs the actual domain packages so the
// generated output matches real pipeline behavior.
//
// Snapshot files are concatenated JSON objects, one per scrape cycle:
//
//	{"timestamp":"2025-11-09T23:52:26","data":{"Hospital Name":"2 hr 5 min",...}}{"timestamp":...}
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -snapshot-dir ../wait-data-collector/data \
//	  -raw-out data/mock/wait_snapshots_251109_observations.json \
//	  -canonical-out data/mock/wait_records_251109_canonical.json
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/triagelink/wait-data-etl/internal/domain"
	"github.com/triagelink/wait-data-etl/internal/refdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	snapshotDir := flag.String("snapshot-dir", "", "directory containing collector snapshot files")
	rawOut := flag.String("raw-out", "", "output path for raw observation fixture")
	canonicalOut := flag.String("canonical-out", "", "output path for canonical record fixture")
	hospitalTable := flag.String("hospital-table", "data/reference/hospitals.yaml", "hospital reference table")
	triageTable := flag.String("triage-table", "data/reference/triage_conditions.yaml", "triage reference table")
	timezone := flag.String("timezone", "America/Toronto", "zone collector timestamps are interpreted in")
	flag.Parse()

	if *snapshotDir == "" || *rawOut == "" || *canonicalOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -snapshot-dir, -raw-out, -canonical-out")
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	table, err := refdata.LoadHospitalTable(*hospitalTable)
	if err != nil {
		return fmt.Errorf("load hospital table: %w", err)
	}
	resolver, err := refdata.NewResolver(table)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	conditions, err := refdata.LoadTriageTable(*triageTable)
	if err != nil {
		return fmt.Errorf("load triage table: %w", err)
	}
	triage, err := refdata.NewTriageIndex(conditions, resolver)
	if err != nil {
		return fmt.Errorf("build triage index: %w", err)
	}

	// Fix the clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.November, 10, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	synth := domain.NewSynthesizer(loc)

	files, err := filepath.Glob(filepath.Join(*snapshotDir, "*.json"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no snapshot files in %s", *snapshotDir)
	}
	sort.Strings(files)

	var observations []domain.RawObservation
	var records []domain.CanonicalRecord
	var unresolved, unparsed int

	for _, path := range files {
		snaps, err := readSnapshots(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}

		for _, snap := range snaps {
			value, err := json.Marshal(snap)
			if err != nil {
				return fmt.Errorf("marshal snapshot: %w", err)
			}
			obsSet, err := domain.ParseRawEvent(domain.RawEvent{Value: value}, loc)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}

			for _, obs := range obsSet {
				observations = append(observations, obs)

				identity, err := resolver.Resolve(obs.HospitalName)
				if err != nil {
					unresolved++
					continue
				}
				wait, err := domain.ParseWaitTime(obs.WaitText)
				if err != nil {
					unparsed++
					continue
				}
				identity.Tier = triage.TierFor(identity)

				rec, err := synth.Synthesize(identity, wait, obs)
				if err != nil {
					return fmt.Errorf("synthesize %s: %w", obs.HospitalName, err)
				}
				records = append(records, rec)
			}
		}
		log.Printf("%s: %d snapshots", filepath.Base(path), len(snaps))
	}

	log.Printf("total: %d observations, %d canonical, %d unresolved, %d unparsed",
		len(observations), len(records), unresolved, unparsed)

	if err := writeJSON(*rawOut, observations); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	if err := writeJSON(*canonicalOut, records); err != nil {
		return fmt.Errorf("writing canonical fixture: %w", err)
	}
	log.Printf("wrote canonical fixture: %s", *canonicalOut)

	printStats(records)
	return nil
}

// readSnapshots decodes one collector file of concatenated JSON snapshots.
func readSnapshots(path string) ([]domain.RawSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snaps []domain.RawSnapshot
	dec := json.NewDecoder(f)
	for {
		var snap domain.RawSnapshot
		if err := dec.Decode(&snap); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.CanonicalRecord) {
	regionCounts := map[string]int{}
	hospitalCounts := map[string]int{}
	var available, suspect, weekend, night int
	var minWait, maxWait float64
	var waitSum float64

	for i := range records {
		r := &records[i]
		regionCounts[string(r.Region)]++
		hospitalCounts[r.StandardName]++
		if r.IsWeekend {
			weekend++
		}
		if r.IsNightShift {
			night++
		}
		if r.Suspect {
			suspect++
		}
		if !r.DataAvailable {
			continue
		}
		available++
		w := *r.WaitTimeMinutes
		waitSum += w
		if available == 1 || w < minWait {
			minWait = w
		}
		if w > maxWait {
			maxWait = w
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("Available: %d (missing %d)\n", available, len(records)-available)
	fmt.Printf("Suspect: %d\n", suspect)
	fmt.Printf("Weekend: %d, night shift: %d\n", weekend, night)
	if available > 0 {
		fmt.Printf("Wait minutes: min=%g max=%g mean=%.1f\n", minWait, maxWait, waitSum/float64(available))
	}

	fmt.Printf("By region: ")
	for _, region := range domain.Regions() {
		fmt.Printf("%s=%d ", region, regionCounts[string(region)])
	}
	fmt.Println()

	names := make([]string, 0, len(hospitalCounts))
	for name := range hospitalCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("Hospitals (%d):\n", len(names))
	for _, name := range names {
		fmt.Printf("  %s: %d\n", name, hospitalCounts[name])
	}
}
