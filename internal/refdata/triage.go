package refdata

import (
	"fmt"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

// TriageIndex joins the static CTAS condition table onto canonical hospital
// identities. Many conditions may name the same destination hospital; a
// hospital absent from the table is a valid non-pediatric outcome, not an
// error.
type TriageIndex struct {
	byHospital map[int][]domain.TriageCondition
}

// NewTriageIndex resolves every destination hospital name in the table
// through the resolver and builds the per-hospital indexes. A destination
// name that resolves to nothing is a malformed reference table and fails
// construction; the join must never drop conditions silently.
func NewTriageIndex(table *TriageTable, resolver *Resolver) (*TriageIndex, error) {
	ix := &TriageIndex{
		byHospital: make(map[int][]domain.TriageCondition),
	}

	for _, cond := range table.Conditions {
		for _, name := range cond.DestinationHospitals {
			identity, err := resolver.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("triage condition %q: destination %q: %w", cond.Condition, name, err)
			}
			ix.byHospital[identity.HospitalID] = append(ix.byHospital[identity.HospitalID], cond)
		}
	}
	return ix, nil
}

// ConditionsFor returns the conditions that list the hospital as a
// destination. Empty for hospitals outside the pediatric network.
func (ix *TriageIndex) ConditionsFor(identity domain.HospitalIdentity) []domain.TriageCondition {
	return ix.byHospital[identity.HospitalID]
}

// TierFor returns the hospital's pediatric tier. The identity's own tier
// wins when set; otherwise the strongest recommended tier among conditions
// routing to this hospital (1 outranks 2); hospitals unknown to both the
// identity table and the triage table are tier 0.
func (ix *TriageIndex) TierFor(identity domain.HospitalIdentity) int {
	if identity.Tier != domain.TierNone {
		return identity.Tier
	}

	tier := domain.TierNone
	for _, cond := range ix.byHospital[identity.HospitalID] {
		if cond.RecommendedTier == domain.TierNone {
			continue
		}
		if tier == domain.TierNone || cond.RecommendedTier < tier {
			tier = cond.RecommendedTier
		}
	}
	return tier
}

// Len returns the number of hospitals with at least one condition attached.
func (ix *TriageIndex) Len() int {
	return len(ix.byHospital)
}
