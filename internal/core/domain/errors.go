package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrConfiguration = errors.New("configuration error")
	ErrExtraction    = errors.New("extraction failed")
	ErrEmbedding     = errors.New("embedding failed")
	ErrTemporary     = errors.New("temporary failure")
	ErrNotFound      = errors.New("not found")

	// ErrSovereignViolation is a configuration error: sovereign deployments
	// must never reach a remote embedding API.
	ErrSovereignViolation = fmt.Errorf("%w: sovereign mode forbids remote embeddings", ErrConfiguration)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
