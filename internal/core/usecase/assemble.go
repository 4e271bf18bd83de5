package usecase

import "github.com/shoplens/searchcore/internal/core/domain"

// assembleResults deduplicates the ranked pool at the product level, keeping
// each product's best-ranked chunk as its citation, and truncates to k.
// Input order is the final ranking, so the first chunk seen per product wins.
// Fewer than k distinct products is a normal under-fill, not a fault.
func assembleResults(ranked []domain.FusedCandidate, k int) []domain.RankedResult {
	if k <= 0 {
		return nil
	}

	seen := make(map[string]struct{}, k)
	out := make([]domain.RankedResult, 0, k)
	for _, cand := range ranked {
		if _, ok := seen[cand.ProductID]; ok {
			continue
		}
		seen[cand.ProductID] = struct{}{}
		out = append(out, domain.RankedResult{
			ProductID:  cand.ProductID,
			ChunkID:    cand.ChunkID,
			Text:       cand.Text,
			Score:      cand.FinalScore(),
			Provenance: cand.Provenance(),
		})
		if len(out) == k {
			break
		}
	}
	return out
}
