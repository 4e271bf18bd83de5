package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shoplens/searchcore/internal/core/domain"
)

// rerankTopSlice re-scores the head of the fused ranking through the
// configured reranker. The slice is bounded by poolSize because reranker
// cost scales with input size. Any failure (error, timeout, malformed score
// vector) keeps the fused ordering; the caller records the degradation.
func (uc *SearchUseCase) rerankTopSlice(
	ctx context.Context,
	queryText string,
	fused []domain.FusedCandidate,
	poolSize int,
) ([]domain.FusedCandidate, bool) {
	if uc.reranker == nil {
		return fused, false
	}
	// An empty pool means nothing to rerank, not a reranker failure.
	if len(fused) == 0 {
		return fused, true
	}
	n := poolSize
	if n <= 0 || n > len(fused) {
		n = len(fused)
	}

	head := make([]domain.FusedCandidate, n)
	copy(head, fused[:n])

	passages := make([]string, n)
	for i, cand := range head {
		passages[i] = cand.Text
	}

	scores, err := uc.reranker.Score(ctx, queryText, passages)
	if err != nil {
		slog.Warn("rerank_failed", "error", err, "pool_size", n)
		return fused, false
	}
	if len(scores) != n {
		slog.Warn("rerank_score_count_mismatch", "want", n, "got", len(scores))
		return fused, false
	}

	for i := range head {
		score := scores[i]
		head[i].Rerank = &score
	}

	sort.SliceStable(head, func(i, j int) bool {
		if *head[i].Rerank != *head[j].Rerank {
			return *head[i].Rerank > *head[j].Rerank
		}
		if head[i].ProductID != head[j].ProductID {
			return head[i].ProductID < head[j].ProductID
		}
		return head[i].ChunkID < head[j].ChunkID
	})

	if n == len(fused) {
		return head, true
	}

	out := make([]domain.FusedCandidate, 0, len(fused))
	out = append(out, head...)
	out = append(out, fused[n:]...)
	return out, true
}
