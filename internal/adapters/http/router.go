package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

const maxSearchBodyBytes = 64 << 10

// SearchObserver receives one observation per search request.
type SearchObserver interface {
	RecordSearch(backend string, results int, duration time.Duration, err error)
}

// MetricsExporter instruments and exposes HTTP metrics.
type MetricsExporter interface {
	SearchObserver
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type Router struct {
	searcher ports.KnowledgeSearcher
	metrics  MetricsExporter
	logger   *slog.Logger
}

func NewRouter(searcher ports.KnowledgeSearcher, metrics MetricsExporter, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		searcher: searcher,
		metrics:  metrics,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/", rt.notFound)
	mux.HandleFunc("/v1/knowledge/search", rt.search)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, apiError{
		Error:     "no route for " + r.URL.Path,
		Code:      "not_found",
		RequestID: requestIDFromContext(r.Context()),
	})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed", Code: "method_not_allowed"})
		return
	}

	var req domain.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "request body too large", Code: "invalid_request"})
			return
		}
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json", Code: "invalid_request"})
		return
	}

	started := time.Now()
	resp, err := rt.searcher.Search(r.Context(), req)
	if rt.metrics != nil {
		backend, results := "", 0
		if resp != nil {
			backend, results = resp.Backend, len(resp.Results)
		}
		rt.metrics.RecordSearch(backend, results, time.Since(started), err)
	}
	if resp != nil {
		annotate(r.Context(), "backend", resp.Backend, "results", len(resp.Results))
	}
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	body.RequestID = requestIDFromContext(r.Context())
	annotate(r.Context(), "error_code", body.Code)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("search_failed", "request_id", body.RequestID, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
