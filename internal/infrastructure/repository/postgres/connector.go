package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// Connector opens a fresh single-connection KnowledgeRepository per call.
type Connector struct {
	dsn       string
	dimension int
	bootstrap bool

	mu          sync.Mutex
	schemaReady bool
}

type ConnectorOption func(*Connector)

// WithSchemaBootstrap makes the first successful Open create the schema.
func WithSchemaBootstrap() ConnectorOption {
	return func(c *Connector) {
		c.bootstrap = true
	}
}

func NewConnector(dsn string, dimension int, opts ...ConnectorOption) *Connector {
	c := &Connector{dsn: dsn, dimension: dimension}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connector) Open(ctx context.Context) (ports.KnowledgeStore, error) {
	if c.dsn == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "open knowledge store", errors.New("POSTGRES_DSN is not set"))
	}
	db, err := OpenDB(ctx, c.dsn)
	if err != nil {
		return nil, err
	}
	repo := NewKnowledgeRepository(db, c.dimension)

	if c.bootstrap {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.schemaReady {
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = repo.Close()
				return nil, err
			}
			c.schemaReady = true
		}
	}
	return repo, nil
}
