package usecase

import (
	"testing"

	"github.com/shoplens/searchcore/internal/core/domain"
)

func TestAssembleResultsDeduplicatesByProduct(t *testing.T) {
	ranked := []domain.FusedCandidate{
		{ProductID: "p1", ChunkID: "c0", Text: "best chunk", Fused: 0.9},
		{ProductID: "p1", ChunkID: "c3", Text: "worse chunk", Fused: 0.8},
		{ProductID: "p2", ChunkID: "c0", Text: "other product", Fused: 0.7},
	}

	results := assembleResults(ranked, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ProductID != "p1" || results[0].ChunkID != "c0" {
		t.Fatalf("expected p1's best-ranked chunk kept, got %+v", results[0])
	}
}

func TestAssembleResultsTruncatesToK(t *testing.T) {
	ranked := []domain.FusedCandidate{
		{ProductID: "p1", ChunkID: "c0", Fused: 0.9},
		{ProductID: "p2", ChunkID: "c0", Fused: 0.8},
		{ProductID: "p3", ChunkID: "c0", Fused: 0.7},
	}

	results := assembleResults(ranked, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestAssembleResultsUnderFillIsNotAnError(t *testing.T) {
	ranked := []domain.FusedCandidate{
		{ProductID: "p1", ChunkID: "c0", Fused: 0.9},
	}

	results := assembleResults(ranked, 10)
	if len(results) != 1 {
		t.Fatalf("expected 1 result for under-filled pool, got %d", len(results))
	}
}

func TestAssembleResultsUsesRerankScoreWhenPresent(t *testing.T) {
	rerank := 0.99
	ranked := []domain.FusedCandidate{
		{ProductID: "p1", ChunkID: "c0", Fused: 0.4, Rerank: &rerank},
	}

	results := assembleResults(ranked, 1)
	if results[0].Score != 0.99 {
		t.Fatalf("expected rerank score to override fused, got %f", results[0].Score)
	}
}
