package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

var base = time.Date(2025, 11, 9, 12, 0, 0, 0, time.UTC)

func available(hospitalID int, minutes float64, at time.Time) domain.CanonicalRecord {
	return domain.CanonicalRecord{
		HospitalID:      hospitalID,
		WaitTimeMinutes: &minutes,
		DataAvailable:   true,
		CollectedAt:     at,
	}
}

func TestEnrich_RollingMeans(t *testing.T) {
	s := NewStore()

	r1 := available(1, 30, base)
	s.Enrich(&r1)
	r2 := available(1, 60, base.Add(30*time.Minute))
	s.Enrich(&r2)
	r3 := available(1, 90, base.Add(45*time.Minute))
	s.Enrich(&r3)

	require.NotNil(t, r3.Rolling1h)
	assert.Equal(t, 60.0, *r3.Rolling1h) // (30+60+90)/3, all within the hour
	require.NotNil(t, r3.Rolling24h)
	assert.Equal(t, 60.0, *r3.Rolling24h)
}

func TestEnrich_WindowExcludesOldSamples(t *testing.T) {
	s := NewStore()

	r1 := available(1, 300, base)
	s.Enrich(&r1)
	r2 := available(1, 60, base.Add(2*time.Hour))
	s.Enrich(&r2)

	// The 300-minute sample is outside the 1h window but inside 6h.
	require.NotNil(t, r2.Rolling1h)
	assert.Equal(t, 60.0, *r2.Rolling1h)
	require.NotNil(t, r2.Rolling6h)
	assert.Equal(t, 180.0, *r2.Rolling6h)
}

func TestEnrich_FirstObservationHasNoTrend(t *testing.T) {
	s := NewStore()

	r := available(1, 45, base)
	s.Enrich(&r)

	assert.Nil(t, r.Trend1h)
	assert.Nil(t, r.TrendDirection)
	require.NotNil(t, r.Rolling1h) // rolling includes the observation itself
	assert.Equal(t, 45.0, *r.Rolling1h)
}

func TestEnrich_TrendDirection(t *testing.T) {
	tests := []struct {
		name      string
		prev      float64
		curr      float64
		wantDelta float64
		wantDir   int
	}{
		{"rising", 30, 50, 20, 1},
		{"falling", 50, 30, -20, -1},
		{"stable", 40, 40, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			r1 := available(1, tt.prev, base)
			s.Enrich(&r1)
			r2 := available(1, tt.curr, base.Add(time.Hour))
			s.Enrich(&r2)

			require.NotNil(t, r2.Trend1h)
			assert.Equal(t, tt.wantDelta, *r2.Trend1h)
			require.NotNil(t, r2.TrendDirection)
			assert.Equal(t, tt.wantDir, *r2.TrendDirection)
		})
	}
}

func TestEnrich_UnavailableRecordUsesPriorSamplesOnly(t *testing.T) {
	s := NewStore()

	r1 := available(1, 80, base)
	s.Enrich(&r1)
	r2 := domain.CanonicalRecord{HospitalID: 1, CollectedAt: base.Add(10 * time.Minute)}
	s.Enrich(&r2)

	require.NotNil(t, r2.Rolling1h)
	assert.Equal(t, 80.0, *r2.Rolling1h)
	assert.Nil(t, r2.Trend1h) // no new sample, no trend
}

func TestEnrich_HospitalsAreIndependent(t *testing.T) {
	s := NewStore()

	r1 := available(1, 30, base)
	s.Enrich(&r1)
	r2 := available(2, 300, base.Add(time.Minute))
	s.Enrich(&r2)

	require.NotNil(t, r2.Rolling1h)
	assert.Equal(t, 300.0, *r2.Rolling1h)
	assert.Equal(t, 2, s.Size())
}

func TestEnrich_RetentionPrunesOldSamples(t *testing.T) {
	s := NewStore()

	r1 := available(1, 999, base)
	s.Enrich(&r1)
	r2 := available(1, 60, base.Add(8*24*time.Hour))
	s.Enrich(&r2)

	require.NotNil(t, r2.Rolling168h)
	assert.Equal(t, 60.0, *r2.Rolling168h)
}
