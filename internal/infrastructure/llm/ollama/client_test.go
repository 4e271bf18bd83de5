package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	vec, err := embedder.EmbedQuery(context.Background(), "wireless earbuds")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestEmbedQueryEmptyResultIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	if _, err := embedder.EmbedQuery(context.Background(), "earbuds"); err == nil {
		t.Fatalf("expected error for empty embedding result")
	}
}

func TestRerankerParsesScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{\"scores\":[0.9,0.2]}"}`))
	}))
	defer server.Close()

	reranker := NewReranker(New(server.URL, "gen", "embed"))
	scores, err := reranker.Score(context.Background(), "earbuds", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.9 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestRerankerRejectsScoreCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"scores\":[0.9]}"}`))
	}))
	defer server.Close()

	reranker := NewReranker(New(server.URL, "gen", "embed"))
	if _, err := reranker.Score(context.Background(), "earbuds", []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestRewriterExtractsQueryFromNoisyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Sure! {\"query\": \"running shoes\"}"}`))
	}))
	defer server.Close()

	rewriter := NewRewriter(New(server.URL, "gen", "embed"))
	out, err := rewriter.Rewrite(context.Background(), "runing shoes")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if out != "running shoes" {
		t.Fatalf("expected rewritten query, got %q", out)
	}
}

func TestCallIncludesResponseBodyInStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.EmbedQuery(context.Background(), "earbuds")
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected status error with body, got %v", err)
	}
}
