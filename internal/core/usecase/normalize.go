package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shoplens/searchcore/internal/core/domain"
	"github.com/shoplens/searchcore/internal/core/ports"
)

var (
	priceMaxPattern = regexp.MustCompile(`(?i)\b(?:under|below|less than|at most|up to|cheaper than)\s*\$?\s*(\d+(?:\.\d+)?)\b`)
	priceMinPattern = regexp.MustCompile(`(?i)\b(?:over|above|more than|at least)\s*\$?\s*(\d+(?:\.\d+)?)\b`)
)

// normalizeQuery cleans raw query text and merges extracted price constraints
// into the filter. Explicit filter fields always win over extracted ones.
// Rewriting is attempted only when the rewriter is configured and enough
// deadline headroom remains; any rewrite failure falls back to the cleaned
// text. Normalization itself never fails.
func normalizeQuery(
	ctx context.Context,
	rewriter ports.QueryRewriter,
	raw string,
	filter domain.FilterPredicate,
	deadline time.Time,
	rewriteHeadroom time.Duration,
) domain.NormalizedQuery {
	cleaned := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	out := domain.NormalizedQuery{
		Text:   cleaned,
		Filter: filter,
	}
	if cleaned != raw {
		out.RewriteHistory = append(out.RewriteHistory, cleaned)
	}

	if filter.PriceMax == nil {
		if v, ok := extractPrice(priceMaxPattern, cleaned); ok {
			out.Filter.PriceMax = &v
			out.RewriteHistory = append(out.RewriteHistory, "extracted price_max="+strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	if filter.PriceMin == nil {
		if v, ok := extractPrice(priceMinPattern, cleaned); ok {
			out.Filter.PriceMin = &v
			out.RewriteHistory = append(out.RewriteHistory, "extracted price_min="+strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	// Extraction must never invert the range an explicit filter half left open.
	if out.Filter.PriceMin != nil && out.Filter.PriceMax != nil && *out.Filter.PriceMin > *out.Filter.PriceMax {
		out.Filter.PriceMin = filter.PriceMin
		out.Filter.PriceMax = filter.PriceMax
	}

	if rewriter == nil || cleaned == "" {
		return out
	}
	if time.Until(deadline) < rewriteHeadroom {
		return out
	}

	rewritten, err := rewriter.Rewrite(ctx, cleaned)
	if err != nil {
		slog.Warn("query_rewrite_failed", "error", err)
		return out
	}
	rewritten = strings.ToLower(strings.Join(strings.Fields(rewritten), " "))
	if rewritten == "" || rewritten == cleaned {
		return out
	}

	out.Text = rewritten
	out.Rewritten = true
	out.RewriteHistory = append(out.RewriteHistory, rewritten)
	return out
}

func extractPrice(pattern *regexp.Regexp, text string) (float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
