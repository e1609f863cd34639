// Package policy applies a missing-data strategy across one batch of
// canonical records. It is the pipeline's barrier step: mean imputation and
// forward fill need the complete batch in view, so the engine runs as a
// single sequential pass after every record in the batch is synthesized.
package policy

import (
	"fmt"
	"sort"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

// Strategy selects how records without an available wait are finalized.
type Strategy string

const (
	// StrategyFlag leaves unavailable records untouched; the data_available
	// flag carries the information downstream. The default.
	StrategyFlag Strategy = "flag"
	// StrategyDrop removes unavailable records from the batch.
	StrategyDrop Strategy = "drop"
	// StrategyMeanImpute fills missing waits with the hospital's batch mean,
	// falling back to the batch-global mean.
	StrategyMeanImpute Strategy = "mean_impute"
	// StrategyForwardFill fills missing waits with the hospital's most recent
	// prior available value in the batch, falling back to flag behavior.
	StrategyForwardFill Strategy = "forward_fill"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFlag, StrategyDrop, StrategyMeanImpute, StrategyForwardFill:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown missing-data strategy %q", s)
}

// Stats summarizes what one Apply pass changed.
type Stats struct {
	Dropped int
	Imputed int
	Filled  int
}

// Apply finalizes a batch under the given strategy. Input order is
// preserved, the input slice is never mutated, and output length equals
// input length except under drop. Records filled by imputation or forward
// fill become available and are marked Imputed so no information is lost.
func Apply(strategy Strategy, batch []domain.CanonicalRecord) ([]domain.CanonicalRecord, Stats, error) {
	switch strategy {
	case StrategyFlag:
		return applyFlag(batch)
	case StrategyDrop:
		return applyDrop(batch)
	case StrategyMeanImpute:
		return applyMeanImpute(batch)
	case StrategyForwardFill:
		return applyForwardFill(batch)
	default:
		return nil, Stats{}, fmt.Errorf("unknown missing-data strategy %q", strategy)
	}
}

func applyFlag(batch []domain.CanonicalRecord) ([]domain.CanonicalRecord, Stats, error) {
	out := make([]domain.CanonicalRecord, len(batch))
	copy(out, batch)
	return out, Stats{}, nil
}

func applyDrop(batch []domain.CanonicalRecord) ([]domain.CanonicalRecord, Stats, error) {
	out := make([]domain.CanonicalRecord, 0, len(batch))
	var stats Stats
	for _, rec := range batch {
		if !rec.DataAvailable {
			stats.Dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, stats, nil
}

func applyMeanImpute(batch []domain.CanonicalRecord) ([]domain.CanonicalRecord, Stats, error) {
	if len(batch) == 0 {
		return nil, Stats{}, &domain.InsufficientDataError{Op: "mean_impute", Reason: "empty batch"}
	}

	missing := 0
	for _, rec := range batch {
		if !rec.DataAvailable {
			missing++
		}
	}
	if missing == 0 {
		return applyFlag(batch)
	}

	sums := map[int]float64{}
	counts := map[int]int{}
	var globalSum float64
	var globalCount int
	for _, rec := range batch {
		if !rec.DataAvailable || rec.WaitTimeMinutes == nil {
			continue
		}
		sums[rec.HospitalID] += *rec.WaitTimeMinutes
		counts[rec.HospitalID]++
		globalSum += *rec.WaitTimeMinutes
		globalCount++
	}
	if globalCount == 0 {
		return nil, Stats{}, &domain.InsufficientDataError{
			Op:     "mean_impute",
			Reason: "batch contains no available wait times",
		}
	}
	globalMean := globalSum / float64(globalCount)

	out := make([]domain.CanonicalRecord, len(batch))
	copy(out, batch)
	var stats Stats
	for i := range out {
		if out[i].DataAvailable {
			continue
		}
		mean := globalMean
		if n := counts[out[i].HospitalID]; n > 0 {
			mean = sums[out[i].HospitalID] / float64(n)
		}
		fill := mean
		out[i].WaitTimeMinutes = &fill
		out[i].DataAvailable = true
		out[i].Imputed = true
		stats.Imputed++
	}
	return out, stats, nil
}

func applyForwardFill(batch []domain.CanonicalRecord) ([]domain.CanonicalRecord, Stats, error) {
	out := make([]domain.CanonicalRecord, len(batch))
	copy(out, batch)

	// Walk each record in per-hospital collected_at order without disturbing
	// the output order.
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := out[order[a]], out[order[b]]
		if ra.HospitalID != rb.HospitalID {
			return ra.HospitalID < rb.HospitalID
		}
		return ra.CollectedAt.Before(rb.CollectedAt)
	})

	var stats Stats
	lastSeen := map[int]float64{}
	for _, idx := range order {
		rec := &out[idx]
		if rec.DataAvailable && rec.WaitTimeMinutes != nil {
			lastSeen[rec.HospitalID] = *rec.WaitTimeMinutes
			continue
		}
		prior, ok := lastSeen[rec.HospitalID]
		if !ok {
			// No prior value in the batch: flag behavior for this record.
			continue
		}
		fill := prior
		rec.WaitTimeMinutes = &fill
		rec.DataAvailable = true
		rec.Imputed = true
		stats.Filled++
	}
	return out, stats, nil
}
