// Package history keeps a bounded in-memory window of recent wait
// observations per hospital and derives rolling and trend features from it.
// The store is owned by the pipeline's sequential batch stage; it is not
// safe for concurrent use and does not need to be.
package history

import (
	"math"
	"time"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

// retention bounds the window: nothing older than the longest rolling
// window (7 days) contributes to any feature.
const retention = 168 * time.Hour

// rollingWindows are the averaging horizons, mirroring the feature set the
// downstream model trains on.
var rollingWindows = []struct {
	d   time.Duration
	set func(*domain.CanonicalRecord, *float64)
}{
	{time.Hour, func(r *domain.CanonicalRecord, v *float64) { r.Rolling1h = v }},
	{6 * time.Hour, func(r *domain.CanonicalRecord, v *float64) { r.Rolling6h = v }},
	{24 * time.Hour, func(r *domain.CanonicalRecord, v *float64) { r.Rolling24h = v }},
	{168 * time.Hour, func(r *domain.CanonicalRecord, v *float64) { r.Rolling168h = v }},
}

type sample struct {
	at      time.Time
	minutes float64
}

// Store accumulates available wait samples per hospital.
type Store struct {
	byHospital map[int][]sample
}

// NewStore creates an empty history store.
func NewStore() *Store {
	return &Store{byHospital: make(map[int][]sample)}
}

// Enrich records the observation and fills the record's rolling and trend
// fields from the hospital's window, including the new observation itself.
// Records without an available wait are enriched from prior samples only.
// Call in collected_at order per hospital; the pipeline's batch stage
// guarantees that.
func (s *Store) Enrich(rec *domain.CanonicalRecord) {
	samples := s.byHospital[rec.HospitalID]

	var prev *sample
	if len(samples) > 0 {
		prev = &samples[len(samples)-1]
	}

	if rec.DataAvailable && rec.WaitTimeMinutes != nil {
		samples = append(samples, sample{at: rec.CollectedAt, minutes: *rec.WaitTimeMinutes})
	}
	samples = prune(samples, rec.CollectedAt.Add(-retention))
	s.byHospital[rec.HospitalID] = samples

	for _, w := range rollingWindows {
		if mean, ok := windowMean(samples, rec.CollectedAt, w.d); ok {
			m := mean
			w.set(rec, &m)
		}
	}

	if rec.DataAvailable && rec.WaitTimeMinutes != nil && prev != nil {
		delta := *rec.WaitTimeMinutes - prev.minutes
		dir := int(math.Copysign(1, delta))
		if delta == 0 {
			dir = 0
		}
		rec.Trend1h = &delta
		rec.TrendDirection = &dir
	}
}

// Size returns the number of hospitals with at least one retained sample.
func (s *Store) Size() int {
	return len(s.byHospital)
}

func prune(samples []sample, cutoff time.Time) []sample {
	idx := 0
	for idx < len(samples) && samples[idx].at.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return samples
	}
	return append([]sample(nil), samples[idx:]...)
}

func windowMean(samples []sample, now time.Time, window time.Duration) (float64, bool) {
	cutoff := now.Add(-window)
	var sum float64
	var n int
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].at.Before(cutoff) || samples[i].at.After(now) {
			break
		}
		sum += samples[i].minutes
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
