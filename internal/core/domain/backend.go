package domain

import (
	"fmt"
	"strings"
)

type EmbeddingBackend string

const (
	EmbeddingRemote EmbeddingBackend = "remote"
	EmbeddingLocal  EmbeddingBackend = "local"
)

// ParseEmbeddingBackend defaults to remote when the setting is empty.
func ParseEmbeddingBackend(raw string) (EmbeddingBackend, error) {
	switch EmbeddingBackend(strings.ToLower(strings.TrimSpace(raw))) {
	case "", EmbeddingRemote:
		return EmbeddingRemote, nil
	case EmbeddingLocal:
		return EmbeddingLocal, nil
	default:
		return "", WrapError(ErrConfiguration, "parse embeddings backend", fmt.Errorf("unknown value %q", raw))
	}
}

// Remote reports whether the backend leaves the deployment boundary.
func (b EmbeddingBackend) Remote() bool {
	return b == EmbeddingRemote
}

type RetrievalBackend string

const (
	RetrievalPGVector RetrievalBackend = "pgvector"
	RetrievalMock     RetrievalBackend = "mock"
)

// ParseRetrievalBackend never fails: unknown or empty values select mock.
func ParseRetrievalBackend(raw string) RetrievalBackend {
	if RetrievalBackend(strings.ToLower(strings.TrimSpace(raw))) == RetrievalPGVector {
		return RetrievalPGVector
	}
	return RetrievalMock
}

// DeploymentPolicy is the data-residency contract of a process run.
type DeploymentPolicy struct {
	Sovereign  bool
	Embeddings EmbeddingBackend
	Retrieval  RetrievalBackend
}

// CheckEmbeddings rejects remote embeddings under sovereign mode.
func (p DeploymentPolicy) CheckEmbeddings() error {
	if p.Sovereign && p.Embeddings.Remote() {
		return ErrSovereignViolation
	}
	return nil
}
