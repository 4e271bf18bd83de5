package usecase

import (
	"sort"

	"github.com/shoplens/searchcore/internal/core/domain"
)

const (
	FusionStrategyWeighted = "weighted"
	FusionStrategyRRF      = "rrf"
)

type fusionAccumulator struct {
	candidate domain.FusedCandidate
	dense     *float64
	sparse    *float64
	rrf       float64
}

// fuseCandidatesWeighted merges the two channel pools into one ranking:
// per-channel min-max normalization over the current pool, then a weighted
// sum per (product_id, chunk_id) pair. Pairs seen by both channels keep a
// single entry with both contributions.
func fuseCandidatesWeighted(candidates []domain.Candidate, denseWeight, sparseWeight float64) []domain.FusedCandidate {
	if denseWeight <= 0 && sparseWeight <= 0 {
		denseWeight, sparseWeight = 0.5, 0.5
	}

	acc := groupByChunk(candidates)

	normDense := poolNormalizer(candidates, domain.ChannelDense)
	normSparse := poolNormalizer(candidates, domain.ChannelSparse)

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, entry := range acc {
		fused := entry.candidate
		if entry.dense != nil {
			fused.Fused += denseWeight * normDense(*entry.dense)
		}
		if entry.sparse != nil {
			fused.Fused += sparseWeight * normSparse(*entry.sparse)
		}
		out = append(out, fused)
	}

	sortFused(out)
	return out
}

// fuseCandidatesRRF is the rank-based alternative: reciprocal rank fusion
// over per-channel rankings, ignoring raw score magnitudes entirely.
func fuseCandidatesRRF(candidates []domain.Candidate, rrfK int) []domain.FusedCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := groupByChunk(candidates)

	for _, channel := range []domain.Channel{domain.ChannelDense, domain.ChannelSparse} {
		ranked := channelRanking(candidates, channel)
		for rank, key := range ranked {
			acc[key].rrf += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, entry := range acc {
		fused := entry.candidate
		fused.Fused = entry.rrf
		out = append(out, fused)
	}

	sortFused(out)
	return out
}

func groupByChunk(candidates []domain.Candidate) map[string]*fusionAccumulator {
	acc := make(map[string]*fusionAccumulator, len(candidates))
	for _, cand := range candidates {
		key := chunkKey(cand.ProductID, cand.ChunkID)
		entry, ok := acc[key]
		if !ok {
			entry = &fusionAccumulator{
				candidate: domain.FusedCandidate{
					ProductID: cand.ProductID,
					ChunkID:   cand.ChunkID,
					Text:      cand.Text,
					Metadata:  cand.Metadata,
				},
			}
			acc[key] = entry
		}
		if entry.candidate.Text == "" {
			entry.candidate.Text = cand.Text
		}

		score := cand.Score
		switch cand.Channel {
		case domain.ChannelSparse:
			entry.candidate.SeenSparse = true
			if entry.sparse == nil || score > *entry.sparse {
				entry.sparse = &score
			}
		default:
			entry.candidate.SeenDense = true
			if entry.dense == nil || score > *entry.dense {
				entry.dense = &score
			}
		}
	}
	return acc
}

// poolNormalizer maps one channel's raw scores into [0,1] via min-max over
// the current pool. Raw similarity scores are not comparable across query
// instances, so no fixed global scale is used. A degenerate pool (zero
// range) maps positive scores to 1 and the rest to 0.
func poolNormalizer(candidates []domain.Candidate, channel domain.Channel) func(float64) float64 {
	first := true
	var minScore, maxScore float64
	for _, cand := range candidates {
		if cand.Channel != channel {
			continue
		}
		if first {
			minScore, maxScore = cand.Score, cand.Score
			first = false
			continue
		}
		if cand.Score < minScore {
			minScore = cand.Score
		}
		if cand.Score > maxScore {
			maxScore = cand.Score
		}
	}

	scoreRange := maxScore - minScore
	return func(v float64) float64 {
		if scoreRange <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / scoreRange
	}
}

func channelRanking(candidates []domain.Candidate, channel domain.Channel) []string {
	type rankedKey struct {
		key   string
		score float64
	}
	seen := make(map[string]struct{})
	ranked := make([]rankedKey, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Channel != channel {
			continue
		}
		key := chunkKey(cand.ProductID, cand.ChunkID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ranked = append(ranked, rankedKey{key: key, score: cand.Score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].key < ranked[j].key
	})

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.key
	}
	return out
}

// sortFused orders by fused score descending. Ties prefer dual-channel
// agreement (both channels surfacing a pair is a quality signal), then fall
// back to product and chunk ids for determinism.
func sortFused(fused []domain.FusedCandidate) {
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Fused != fused[j].Fused {
			return fused[i].Fused > fused[j].Fused
		}
		iBoth := fused[i].SeenDense && fused[i].SeenSparse
		jBoth := fused[j].SeenDense && fused[j].SeenSparse
		if iBoth != jBoth {
			return iBoth
		}
		if fused[i].ProductID != fused[j].ProductID {
			return fused[i].ProductID < fused[j].ProductID
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})
}

func chunkKey(productID, chunkID string) string {
	return productID + "\x00" + chunkID
}
