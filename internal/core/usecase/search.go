package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shoplens/searchcore/internal/core/domain"
	"github.com/shoplens/searchcore/internal/core/ports"
)

// PipelineConfig carries the recognized pipeline options. Zero values fall
// back to defaults via normalize; nothing here is process-wide mutable state.
type PipelineConfig struct {
	DenseWeight     float64
	SparseWeight    float64
	KPerChannel     int
	RerankPoolSize  int
	DefaultK        int
	DefaultDeadline time.Duration
	FusionStrategy  string
	FusionRRFK      int
	RewriteHeadroom time.Duration
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DenseWeight:     0.5,
		SparseWeight:    0.5,
		KPerChannel:     50,
		RerankPoolSize:  20,
		DefaultK:        10,
		DefaultDeadline: 2 * time.Second,
		FusionStrategy:  FusionStrategyWeighted,
		FusionRRFK:      60,
		RewriteHeadroom: 500 * time.Millisecond,
	}
}

func (c PipelineConfig) normalize() PipelineConfig {
	out := c
	def := DefaultPipelineConfig()

	if out.DenseWeight <= 0 && out.SparseWeight <= 0 {
		out.DenseWeight = def.DenseWeight
		out.SparseWeight = def.SparseWeight
	}
	if out.KPerChannel <= 0 {
		out.KPerChannel = def.KPerChannel
	}
	if out.RerankPoolSize <= 0 {
		out.RerankPoolSize = def.RerankPoolSize
	}
	if out.DefaultK <= 0 {
		out.DefaultK = def.DefaultK
	}
	if out.DefaultDeadline <= 0 {
		out.DefaultDeadline = def.DefaultDeadline
	}
	if out.FusionStrategy != FusionStrategyRRF {
		out.FusionStrategy = FusionStrategyWeighted
	}
	if out.FusionRRFK <= 0 {
		out.FusionRRFK = def.FusionRRFK
	}
	if out.RewriteHeadroom <= 0 {
		out.RewriteHeadroom = def.RewriteHeadroom
	}
	return out
}

// SearchUseCase orchestrates one pipeline invocation: Normalizing →
// Retrieving → Fusing → Reranking → Assembling. All state lives on the
// stack of a single call; concurrent invocations are fully independent.
type SearchUseCase struct {
	embedder     ports.Embedder
	vectorIndex  ports.VectorIndex
	keywordIndex ports.KeywordIndex
	reranker     ports.Reranker
	rewriter     ports.QueryRewriter
	outcomeLog   ports.OutcomeLog
	cfg          PipelineConfig
}

func NewSearchUseCase(
	embedder ports.Embedder,
	vectorIndex ports.VectorIndex,
	keywordIndex ports.KeywordIndex,
	reranker ports.Reranker,
	rewriter ports.QueryRewriter,
	outcomeLog ports.OutcomeLog,
	cfg PipelineConfig,
) *SearchUseCase {
	return &SearchUseCase{
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		reranker:     reranker,
		rewriter:     rewriter,
		outcomeLog:   outcomeLog,
		cfg:          cfg.normalize(),
	}
}

// Search runs the pipeline under the query's deadline. Malformed input is
// rejected before any upstream call. Upstream failures surface through the
// outcome status, never as Go errors; a non-nil error beyond validation
// means an internal invariant broke.
func (uc *SearchUseCase) Search(ctx context.Context, query domain.Query) (*domain.PipelineOutcome, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("query text is required"))
	}
	if err := query.Filter.Validate(); err != nil {
		return nil, err
	}

	k := query.K
	if k <= 0 {
		k = uc.cfg.DefaultK
	}
	deadline := query.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(uc.cfg.DefaultDeadline)
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	outcome := &domain.PipelineOutcome{Status: domain.StatusOK}
	var degraded []string

	start := time.Now()
	normalized := normalizeQuery(ctx, uc.rewriter, query.Text, query.Filter, deadline, uc.cfg.RewriteHeadroom)
	recordStage(outcome, domain.StageNormalize, start)

	// Under time pressure shrink the candidate pool instead of letting
	// retrieval run unbounded. Never below the requested k.
	kPerChannel := uc.cfg.KPerChannel
	if remaining := time.Until(deadline); remaining < uc.cfg.DefaultDeadline/2 {
		capped := kPerChannel / 2
		if capped < k {
			capped = k
		}
		if capped < kPerChannel {
			slog.Debug("k_per_channel_capped", "from", kPerChannel, "to", capped, "remaining_ms", float64(remaining.Microseconds())/1000.0)
			kPerChannel = capped
		}
	}

	start = time.Now()
	candidates, reasons, err := uc.retrieveCandidates(ctx, normalized, kPerChannel)
	recordStage(outcome, domain.StageRetrieve, start)
	if err != nil {
		outcome.Status = domain.FailedStatus(domain.ReasonRetrievalUnavailable)
		uc.appendOutcome(query, outcome)
		return outcome, nil
	}
	degraded = append(degraded, reasons...)

	start = time.Now()
	var fused []domain.FusedCandidate
	if uc.cfg.FusionStrategy == FusionStrategyRRF {
		fused = fuseCandidatesRRF(candidates, uc.cfg.FusionRRFK)
	} else {
		fused = fuseCandidatesWeighted(candidates, uc.cfg.DenseWeight, uc.cfg.SparseWeight)
	}
	recordStage(outcome, domain.StageFuse, start)

	switch {
	case ctx.Err() != nil:
		// Budget gone before the enhancement pass: keep the fused order.
		degraded = append(degraded, domain.ReasonDeadline)
	case uc.reranker != nil && len(fused) > 0:
		start = time.Now()
		reranked, applied := uc.rerankTopSlice(ctx, normalized.Text, fused, uc.cfg.RerankPoolSize)
		recordStage(outcome, domain.StageRerank, start)
		fused = reranked
		if !applied {
			degraded = append(degraded, domain.ReasonRerankUnavailable)
		}
	}

	start = time.Now()
	results := assembleResults(fused, k)
	recordStage(outcome, domain.StageAssemble, start)

	if err := verifyDistinctProducts(results); err != nil {
		return nil, err
	}

	outcome.Results = results
	switch {
	case len(results) == 0 && ctx.Err() != nil:
		outcome.Status = domain.FailedStatus(domain.ReasonDeadline)
		outcome.Results = nil
	case len(degraded) > 0:
		outcome.DegradedReasons = degraded
		outcome.Status = domain.DegradedStatus(degraded[0])
	}

	uc.appendOutcome(query, outcome)
	return outcome, nil
}

// appendOutcome is fire-and-forget: the query log must never fail or delay
// the search itself.
func (uc *SearchUseCase) appendOutcome(query domain.Query, outcome *domain.PipelineOutcome) {
	if uc.outcomeLog == nil {
		return
	}
	snapshot := *outcome
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := uc.outcomeLog.Append(ctx, query, snapshot); err != nil {
			slog.Warn("outcome_log_append_failed", "error", err)
		}
	}()
}

func verifyDistinctProducts(results []domain.RankedResult) error {
	seen := make(map[string]struct{}, len(results))
	for _, res := range results {
		if _, ok := seen[res.ProductID]; ok {
			return domain.WrapError(domain.ErrInternal, "assemble",
				fmt.Errorf("duplicate product %s in result set", res.ProductID))
		}
		seen[res.ProductID] = struct{}{}
	}
	return nil
}

func recordStage(outcome *domain.PipelineOutcome, stage domain.Stage, start time.Time) {
	outcome.Timings = append(outcome.Timings, domain.StageTiming{
		Stage:      stage,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
	})
}
