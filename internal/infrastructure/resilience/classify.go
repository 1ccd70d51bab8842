package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// ClassifyUpstream is the classifier for calls to HTTP services: transport
// failures and overload statuses count against the breaker, client errors do not.
func ClassifyUpstream(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var status StatusCoder
	if errors.As(err, &status) {
		if IsRetryableStatus(status.HTTPStatus()) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

// IsTemporary reports whether a caller may reasonably try again later.
func IsTemporary(err error) bool {
	return err != nil && (IsCircuitOpen(err) || ClassifyUpstream(err).Retryable)
}

func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
