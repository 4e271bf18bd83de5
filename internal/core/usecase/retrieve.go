package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shoplens/searchcore/internal/core/domain"
)

type channelResult struct {
	channel    domain.Channel
	candidates []domain.Candidate
	err        error
}

// retrieveCandidates fans out to the dense and sparse channels concurrently
// and waits for both (the context deadline bounds each call). One failed
// channel degrades the run; both failing fails it.
func (uc *SearchUseCase) retrieveCandidates(
	ctx context.Context,
	query domain.NormalizedQuery,
	kPerChannel int,
) ([]domain.Candidate, []string, error) {
	results := make([]channelResult, 2)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		results[0] = uc.retrieveDense(ctx, query, kPerChannel)
	}()
	go func() {
		defer wg.Done()
		results[1] = uc.retrieveSparse(ctx, query, kPerChannel)
	}()
	wg.Wait()

	var (
		candidates []domain.Candidate
		reasons    []string
		failures   []error
	)
	for _, res := range results {
		if res.err != nil {
			slog.Warn("retrieval_channel_failed", "channel", res.channel, "error", res.err)
			reasons = append(reasons, channelFailureReason(ctx, res.err))
			failures = append(failures, res.err)
			continue
		}
		candidates = append(candidates, res.candidates...)
	}

	if len(failures) == len(results) {
		return nil, nil, domain.WrapError(domain.ErrUpstreamUnavailable, "retrieve", errors.Join(failures...))
	}
	return candidates, reasons, nil
}

func (uc *SearchUseCase) retrieveDense(ctx context.Context, query domain.NormalizedQuery, limit int) channelResult {
	out := channelResult{channel: domain.ChannelDense}

	vector, err := uc.embedder.EmbedQuery(ctx, query.Text)
	if err != nil {
		out.err = err
		return out
	}

	out.candidates, out.err = uc.vectorIndex.Query(ctx, vector, query.Filter, limit)
	return out
}

func (uc *SearchUseCase) retrieveSparse(ctx context.Context, query domain.NormalizedQuery, limit int) channelResult {
	out := channelResult{channel: domain.ChannelSparse}
	out.candidates, out.err = uc.keywordIndex.Search(ctx, query.Text, query.Filter, limit)
	return out
}

func channelFailureReason(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return domain.ReasonChannelTimeout
	}
	return domain.ReasonChannelError
}
