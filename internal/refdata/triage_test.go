package refdata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

func loadTestTriage(t *testing.T) (*TriageIndex, *Resolver) {
	t.Helper()
	resolver := loadTestResolver(t)
	table, err := LoadTriageTable(filepath.Join("testdata", "triage.yaml"))
	require.NoError(t, err)
	ix, err := NewTriageIndex(table, resolver)
	require.NoError(t, err)
	return ix, resolver
}

func TestTriageIndex_ConditionsFor(t *testing.T) {
	ix, resolver := loadTestTriage(t)

	sickKids, err := resolver.Resolve("SickKids")
	require.NoError(t, err)

	conds := ix.ConditionsFor(sickKids)
	require.Len(t, conds, 2)
	names := []string{conds[0].Condition, conds[1].Condition}
	assert.Contains(t, names, "Febrile infant under 3 months")
	assert.Contains(t, names, "Asthma exacerbation")
}

func TestTriageIndex_HospitalOutsideTableIsNotAnError(t *testing.T) {
	ix, resolver := loadTestTriage(t)

	general, err := resolver.Resolve("Toronto General Hospital")
	require.NoError(t, err)

	assert.Empty(t, ix.ConditionsFor(general))
	assert.Equal(t, domain.TierNone, ix.TierFor(general))
}

func TestTriageIndex_TierFor(t *testing.T) {
	ix, resolver := loadTestTriage(t)

	t.Run("identity tier wins", func(t *testing.T) {
		sickKids, err := resolver.Resolve("SickKids")
		require.NoError(t, err)
		assert.Equal(t, domain.TierPediatricCentre, ix.TierFor(sickKids))
	})

	t.Run("falls back to recommended destination tier", func(t *testing.T) {
		// Lakeridge carries tier 0 in the identity table but receives
		// tier-2 dehydration routing in the triage table.
		lakeridge, err := resolver.Resolve("Lakeridge Health Oshawa")
		require.NoError(t, err)
		assert.Equal(t, domain.TierPediatricUnit, ix.TierFor(lakeridge))
	})
}

func TestNewTriageIndex_UnresolvableDestinationFails(t *testing.T) {
	resolver := loadTestResolver(t)
	table := &TriageTable{Conditions: []domain.TriageCondition{{
		Condition:            "Asthma exacerbation",
		CTASLevel:            3,
		RecommendedTier:      2,
		DestinationHospitals: []string{"Hopital de Gatineau"},
	}}}

	_, err := NewTriageIndex(table, resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hopital de Gatineau")
}

func TestTriageIndex_Len(t *testing.T) {
	ix, _ := loadTestTriage(t)
	// SickKids, Credit Valley, and Lakeridge appear as destinations.
	assert.Equal(t, 3, ix.Len())
}
