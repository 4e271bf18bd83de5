package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shoplens/searchcore/internal/core/domain"
	"github.com/shoplens/searchcore/internal/infrastructure/resilience"
)

// Client implements the dense retrieval channel over the Qdrant REST API.
// The filter predicate is pushed down so candidates never have to be
// post-filtered against a differently scored pool.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithExecutor enables retry/circuit-breaker handling for search calls.
func (c *Client) WithExecutor(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

func (c *Client) Query(
	ctx context.Context,
	vector []float32,
	filter domain.FilterPredicate,
	limit int,
) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if clauses := buildFilterClauses(filter); len(clauses) > 0 {
		reqBody["filter"] = map[string]any{"must": clauses}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var candidates []domain.Candidate
	if c.executor == nil {
		candidates, err = c.search(ctx, body)
		return candidates, err
	}

	err = c.executor.Execute(ctx, "qdrant_search", func(ctx context.Context) error {
		candidates, err = c.search(ctx, body)
		return err
	}, classifyError)
	return candidates, wrapUnavailableIfNeeded("qdrant_search", err)
}

func (c *Client) search(ctx context.Context, body []byte) ([]domain.Candidate, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			ProductID: getString(r.Payload, "product_id"),
			ChunkID:   getString(r.Payload, "chunk_id"),
			Text:      getString(r.Payload, "text"),
			Channel:   domain.ChannelDense,
			Score:     r.Score,
			Metadata: domain.ChunkMetadata{
				Category: getString(r.Payload, "category"),
				Brand:    getString(r.Payload, "brand"),
				Price:    getFloat(r.Payload, "price"),
				Source:   getString(r.Payload, "source"),
				Language: getString(r.Payload, "language"),
			},
		})
	}
	return out, nil
}

func buildFilterClauses(filter domain.FilterPredicate) []map[string]any {
	var clauses []map[string]any

	match := func(key, value string) {
		if value == "" {
			return
		}
		clauses = append(clauses, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}
	match("category", filter.Category)
	match("brand", filter.Brand)
	match("source", filter.Source)
	match("language", filter.Language)

	if filter.PriceMin != nil || filter.PriceMax != nil {
		priceRange := map[string]any{}
		if filter.PriceMin != nil {
			priceRange["gte"] = *filter.PriceMin
		}
		if filter.PriceMax != nil {
			priceRange["lte"] = *filter.PriceMax
		}
		clauses = append(clauses, map[string]any{
			"key":   "price",
			"range": priceRange,
		})
	}

	return clauses
}

func getString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getFloat(payload map[string]any, key string) float64 {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}
