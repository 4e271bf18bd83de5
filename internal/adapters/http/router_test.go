package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shoplens/searchcore/internal/core/domain"
)

type fakeSearchService struct {
	lastQuery domain.Query
	outcome   *domain.PipelineOutcome
	err       error
}

func (f *fakeSearchService) Search(_ context.Context, query domain.Query) (*domain.PipelineOutcome, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func newTestRouter(service *fakeSearchService) http.Handler {
	return NewRouter(service, nil, RouterOptions{}).Handler()
}

func TestSearchReturnsOutcome(t *testing.T) {
	service := &fakeSearchService{
		outcome: &domain.PipelineOutcome{
			Results: []domain.RankedResult{
				{ProductID: "p1", ChunkID: "c0", Text: "wireless earbuds", Score: 0.9, Provenance: domain.ProvenanceFused},
			},
			Status: domain.StatusOK,
		},
	}
	handler := newTestRouter(service)

	body := `{"query":"wireless earbuds under 50","k":5,"filter":{"category":"audio"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var outcome domain.PipelineOutcome
	if err := json.NewDecoder(res.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(outcome.Results) != 1 || outcome.Results[0].ProductID != "p1" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if service.lastQuery.K != 5 || service.lastQuery.Filter.Category != "audio" {
		t.Fatalf("request fields not mapped onto query: %+v", service.lastQuery)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	handler := newTestRouter(&fakeSearchService{outcome: &domain.PipelineOutcome{Status: domain.StatusOK}})

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", res.Code)
	}
}

func TestSearchRejectsInvalidJSON(t *testing.T) {
	handler := newTestRouter(&fakeSearchService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.Code)
	}
}

func TestSearchMapsDomainErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "validate", errors.New("bad filter")), http.StatusBadRequest},
		{"upstream unavailable", domain.WrapError(domain.ErrUpstreamUnavailable, "retrieve", errors.New("both channels down")), http.StatusServiceUnavailable},
		{"deadline", domain.WrapError(domain.ErrDeadline, "search", errors.New("budget exhausted")), http.StatusGatewayTimeout},
		{"internal", domain.WrapError(domain.ErrInternal, "assemble", errors.New("duplicate product")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&fakeSearchService{err: tc.err})
			req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"earbuds"}`))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestSearchMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&fakeSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&fakeSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
