package ports

import (
	"context"

	"github.com/shoplens/searchcore/internal/core/domain"
)

// SearchService is the inbound contract for the retrieval pipeline. A nil
// error with a failed:* status means the pipeline ran and could not produce
// results; a non-nil error means the query was rejected before any upstream
// call (validation) or an internal invariant broke.
type SearchService interface {
	Search(ctx context.Context, query domain.Query) (*domain.PipelineOutcome, error)
}
