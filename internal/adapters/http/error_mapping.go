package httpadapter

import (
	"net/http"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// apiError is the JSON error body. Messages of 5xx errors stay in the logs.
type apiError struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func mapError(err error) (int, apiError) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, apiError{Error: err.Error(), Code: "invalid_request"}
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound, apiError{Error: err.Error(), Code: "not_found"}
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable, apiError{Error: "search temporarily unavailable", Code: "unavailable"}
	case domain.IsKind(err, domain.ErrEmbedding):
		return http.StatusBadGateway, apiError{Error: "embedding service failed", Code: "embedding_failed"}
	default:
		return http.StatusInternalServerError, apiError{Error: "internal error", Code: "internal"}
	}
}
