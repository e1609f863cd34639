package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/triagelink/wait-data-etl/internal/domain"
	"github.com/triagelink/wait-data-etl/internal/refdata"
)

// WaitTransformer implements Transformer: it resolves, parses, joins, and
// synthesizes every observation in a snapshot. Each observation is handled
// independently; failures become per-record outcomes, never batch errors.
type WaitTransformer struct {
	resolver *refdata.Resolver
	triage   *refdata.TriageIndex
	synth    *domain.Synthesizer
	loc      *time.Location
}

// NewTransformer wires the read-only reference data into a transformer. The
// resolver and triage index are shared immutable state, so one transformer
// is safe to reuse across batches.
func NewTransformer(resolver *refdata.Resolver, triage *refdata.TriageIndex, loc *time.Location) *WaitTransformer {
	return &WaitTransformer{
		resolver: resolver,
		triage:   triage,
		synth:    domain.NewSynthesizer(loc),
		loc:      loc,
	}
}

func (t *WaitTransformer) Transform(_ context.Context, raw domain.RawEvent) (TransformResult, error) {
	observations, err := domain.ParseRawEvent(raw, t.loc)
	if err != nil {
		return TransformResult{}, err
	}

	var result TransformResult
	for _, obs := range observations {
		rec, failure := t.transformObservation(obs)
		if failure != nil {
			result.Failures = append(result.Failures, *failure)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func (t *WaitTransformer) transformObservation(obs domain.RawObservation) (domain.CanonicalRecord, *RecordFailure) {
	identity, err := t.resolver.Resolve(obs.HospitalName)
	if err != nil {
		return domain.CanonicalRecord{}, &RecordFailure{Observation: obs, Kind: failureKind(err), Err: err}
	}

	wait, err := domain.ParseWaitTime(obs.WaitText)
	if err != nil {
		return domain.CanonicalRecord{}, &RecordFailure{Observation: obs, Kind: failureKind(err), Err: err}
	}

	// The triage table can upgrade a hospital the identity table left
	// untiered; the identity's own tier always wins when set.
	identity.Tier = t.triage.TierFor(identity)

	rec, err := t.synth.Synthesize(identity, wait, obs)
	if err != nil {
		return domain.CanonicalRecord{}, &RecordFailure{Observation: obs, Kind: failureKind(err), Err: err}
	}
	return rec, nil
}

func failureKind(err error) string {
	var resolution *domain.ResolutionFailure
	var parse *domain.ParseError
	var drift *domain.SchemaDriftError
	switch {
	case errors.As(err, &resolution):
		return "resolution"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &drift):
		return "schema_drift"
	default:
		return "unknown"
	}
}
