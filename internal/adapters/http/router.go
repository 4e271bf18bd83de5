package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shoplens/searchcore/internal/core/domain"
	"github.com/shoplens/searchcore/internal/core/ports"
	"github.com/shoplens/searchcore/internal/observability/metrics"
)

const maxSearchBodyBytes = 64 << 10

type Router struct {
	search  ports.SearchService
	metrics *metrics.SearchServerMetrics
	options RouterOptions
}

type RouterOptions struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	EnqueueWait    time.Duration
}

func NewRouter(search ports.SearchService, m *metrics.SearchServerMetrics, options RouterOptions) *Router {
	if options.Service == "" {
		options.Service = "searchcore-api"
	}
	if options.MaxConcurrent > 0 && options.EnqueueWait <= 0 {
		options.EnqueueWait = 50 * time.Millisecond
	}
	return &Router{
		search:  search,
		metrics: m,
		options: options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.searchProducts)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.options.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxConcurrent, rt.options.EnqueueWait)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.options.Service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query      string  `json:"query"`
	UserID     string  `json:"user_id"`
	K          int     `json:"k"`
	DeadlineMS int     `json:"deadline_ms"`
	Filter     *filter `json:"filter"`
}

type filter struct {
	Category string   `json:"category"`
	Brand    string   `json:"brand"`
	PriceMin *float64 `json:"price_min"`
	PriceMax *float64 `json:"price_max"`
	Source   string   `json:"source"`
	Language string   `json:"language"`
}

func (rt *Router) searchProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	query := domain.Query{
		Text:   req.Query,
		UserID: req.UserID,
		K:      req.K,
	}
	if req.DeadlineMS > 0 {
		query.Deadline = time.Now().Add(time.Duration(req.DeadlineMS) * time.Millisecond)
	}
	if req.Filter != nil {
		query.Filter = domain.FilterPredicate{
			Category: req.Filter.Category,
			Brand:    req.Filter.Brand,
			PriceMin: req.Filter.PriceMin,
			PriceMax: req.Filter.PriceMax,
			Source:   req.Filter.Source,
			Language: req.Filter.Language,
		}
	}

	start := time.Now()
	outcome, err := rt.search.Search(r.Context(), query)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearchOutcome(rt.options.Service, *outcome, time.Since(start))
	}
	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
