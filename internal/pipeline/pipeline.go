package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/triagelink/wait-data-etl/internal/domain"
	"github.com/triagelink/wait-data-etl/internal/history"
	"github.com/triagelink/wait-data-etl/internal/observability"
	"github.com/triagelink/wait-data-etl/internal/policy"
)

// BatchExtractor reads up to batchSize raw snapshot events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts one snapshot event into canonical records plus any
// per-record failures. A returned error means the whole snapshot was
// undecodable; per-record failures never abort the snapshot.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (TransformResult, error)
}

// BatchLoader writes finalized canonical records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.CanonicalRecord) error
}

// RecordFailure is one observation that could not become a canonical record.
type RecordFailure struct {
	Observation domain.RawObservation
	Kind        string // "resolution", "parse", or "schema_drift"
	Err         error
}

// TransformResult carries a snapshot's successes and failures side by side.
type TransformResult struct {
	Records  []domain.CanonicalRecord
	Failures []RecordFailure
}

// Pipeline orchestrates the extract-transform-finalize-load loop. Transform
// is per-record; the missing-data policy and history enrichment run as a
// sequential barrier over the assembled batch before loading.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	strategy    policy.Strategy
	history     *history.Store
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, strategy policy.Strategy, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		strategy:    strategy,
		history:     history.NewStore(),
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any snapshots yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "strategy", p.strategy)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-finalize-load cycle. Returns false
// if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	batchID := uuid.NewString()
	p.metrics.SnapshotsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.transformAndLoad(ctx, batchID, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad transforms each snapshot in the batch, finalizes the
// assembled records through the policy engine and history store, loads the
// result, and commits offsets. Returns the number of loaded records and
// false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, batchID string, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	var records []domain.CanonicalRecord
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		result, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("snapshot undecodable, skipping message",
				"batch_id", batchID,
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.RecordFailures.WithLabelValues("snapshot").Inc()
			p.commitOffset(ctx, raw)
			continue
		}

		p.metrics.ObservationsConsumed.Add(float64(len(result.Records) + len(result.Failures)))
		for _, f := range result.Failures {
			p.logger.Warn("observation failed",
				"batch_id", batchID,
				"kind", f.Kind,
				"hospital_name", f.Observation.HospitalName,
				"error", f.Err,
			)
			p.metrics.RecordFailures.WithLabelValues(f.Kind).Inc()
		}

		records = append(records, result.Records...)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(records) == 0 {
		for _, raw := range successfulRaws {
			p.commitOffset(ctx, raw)
		}
		return 0, true
	}

	finalized := p.finalize(batchID, records)

	if err := p.loader.LoadBatch(ctx, finalized); err != nil {
		p.logger.Error("load batch failed", "batch_id", batchID, "error", err, "batch_size", len(finalized))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.RecordsProduced.Add(float64(len(finalized)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(finalized), true
}

// finalize runs the batch barrier: missing-data policy first, then history
// enrichment in per-hospital time order. An aggregation failure is reported
// once and the batch passes through with flag semantics; records are never
// filled with guessed values.
func (p *Pipeline) finalize(batchID string, records []domain.CanonicalRecord) []domain.CanonicalRecord {
	finalized, stats, err := policy.Apply(p.strategy, records)
	if err != nil {
		p.logger.Error("missing-data policy failed, passing batch through unfilled",
			"batch_id", batchID, "strategy", p.strategy, "error", err)
		finalized, _, _ = policy.Apply(policy.StrategyFlag, records)
	}
	if stats.Imputed+stats.Filled > 0 {
		p.metrics.RecordsImputed.Add(float64(stats.Imputed + stats.Filled))
	}
	if stats.Dropped > 0 {
		p.metrics.RecordsDropped.Add(float64(stats.Dropped))
	}

	order := make([]int, len(finalized))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := finalized[order[a]], finalized[order[b]]
		if ra.HospitalID != rb.HospitalID {
			return ra.HospitalID < rb.HospitalID
		}
		return ra.CollectedAt.Before(rb.CollectedAt)
	})
	for _, idx := range order {
		p.history.Enrich(&finalized[idx])
	}
	return finalized
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances it. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
