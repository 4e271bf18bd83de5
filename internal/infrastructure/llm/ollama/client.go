package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shoplens/searchcore/internal/infrastructure/resilience"
)

// Client talks to a single Ollama instance. The embedder, rewriter and
// reranker facades share it so connection reuse and resilience policy are
// configured in one place.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithExecutor enables retry/circuit-breaker handling for all calls.
func (c *Client) WithExecutor(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

// Rewriter asks the generation model to fix spelling and sharpen intent in a
// product search query. The normalizer treats any failure as non-fatal.
type Rewriter struct {
	client *Client
}

func NewRewriter(client *Client) *Rewriter {
	return &Rewriter{client: client}
}

func (r *Rewriter) Rewrite(ctx context.Context, text string) (string, error) {
	respText, err := r.client.generateJSON(ctx, buildRewritePrompt(text))
	if err != nil {
		return "", err
	}

	var result struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return "", fmt.Errorf("parse rewrite json: %w", err)
	}
	return strings.TrimSpace(result.Query), nil
}

// Reranker scores query/passage pairs with the generation model, seeing both
// sides together. The caller bounds the passage count.
type Reranker struct {
	client *Client
}

func NewReranker(client *Client) *Reranker {
	return &Reranker{client: client}
}

func (r *Reranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	respText, err := r.client.generateJSON(ctx, buildRerankPrompt(query, passages))
	if err != nil {
		return nil, err
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return nil, fmt.Errorf("parse rerank json: %w", err)
	}
	if len(result.Scores) != len(passages) {
		return nil, fmt.Errorf("rerank score count mismatch: want %d, got %d", len(passages), len(result.Scores))
	}
	return result.Scores, nil
}

func buildRewritePrompt(text string) string {
	var b strings.Builder
	b.WriteString("Rewrite the following product search query. Fix spelling, keep the intent, do not add constraints.\n")
	b.WriteString("Respond with JSON only: {\"query\": \"<rewritten query>\"}\n\nQuery: ")
	b.WriteString(text)
	return b.String()
}

func buildRerankPrompt(query string, passages []string) string {
	var b strings.Builder
	b.WriteString("Score how relevant each passage is to the product search query, from 0.0 to 1.0.\n")
	b.WriteString("Respond with JSON only: {\"scores\": [<one float per passage, in order>]}\n\n")
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\nPassages:\n")
	for i, passage := range passages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, passage)
	}
	return b.String()
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, "generate", "/api/generate", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload any, out any) error {
	if c.executor == nil {
		return c.postJSON(ctx, path, payload, out, operation)
	}
	err := c.executor.Execute(ctx, "ollama_"+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, classifyError)
	return wrapUnavailableIfNeeded(operation, err)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
