package ports

import (
	"context"

	"github.com/shoplens/searchcore/internal/core/domain"
)

// Embedder turns query text into a fixed-length vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the dense channel: approximate nearest-neighbor search with
// the filter predicate pushed down.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, filter domain.FilterPredicate, limit int) ([]domain.Candidate, error)
}

// KeywordIndex is the sparse channel: lexical/metadata matching with the same
// filter predicate shape as the vector index.
type KeywordIndex interface {
	Search(ctx context.Context, text string, filter domain.FilterPredicate, limit int) ([]domain.Candidate, error)
}

// Reranker scores query/passage pairs. Input size is bounded by the caller.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// QueryRewriter optionally rewrites a cleaned query (spelling, intent). Any
// failure is absorbed by the normalizer.
type QueryRewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// OutcomeLog appends one pipeline outcome to the persistent query log.
// Fire-and-forget: append failures never fail the search itself.
type OutcomeLog interface {
	Append(ctx context.Context, query domain.Query, outcome domain.PipelineOutcome) error
}
