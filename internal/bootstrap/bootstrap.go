package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/core/usecase"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/embedding"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/fingerprint"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/retrieval"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/sources"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/storage/localfs"
)

// App holds the process-wide wiring. Backends are resolved once here.
type App struct {
	Config config.Config
	Policy domain.DeploymentPolicy
	Logger *slog.Logger

	Executor  *resilience.Executor
	publisher *resilience.Executor
	Embedder  ports.Embedder
	Connector ports.KnowledgeStoreConnector
	QueryUC   *usecase.QueryUseCase

	embedderErr error
}

type Option func(*options)

type options struct {
	breakerObservers []func(operation, state string)
}

// WithBreakerObserver forwards circuit breaker transitions, e.g. to a metrics gauge.
func WithBreakerObserver(fn func(operation, state string)) Option {
	return func(o *options) {
		o.breakerObservers = append(o.breakerObservers, fn)
	}
}

// New wires the query side. A sovereign violation leaves the embedder unset;
// the query service then answers with the downgraded mock response.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("resolve backends: %w", err)
	}

	breaker := resilience.DefaultConfig()
	breaker.BreakerEnabled = cfg.EmbedBreakerEnabled
	breaker.Logger = logger
	executor := resilience.NewExecutor(breaker)
	for _, observe := range o.breakerObservers {
		executor.OnStateChange(observe)
	}

	publish := resilience.PublishConfig()
	publish.Logger = logger

	app := &App{
		Config:    cfg,
		Policy:    policy,
		Logger:    logger,
		Executor:  executor,
		publisher: resilience.NewExecutor(publish),
	}

	embedder, err := embedding.Select(cfg, policy, executor)
	if err == nil {
		app.Embedder = embedder
	}
	app.embedderErr = err
	switch {
	case err == nil:
	case errors.Is(app.embedderErr, domain.ErrSovereignViolation):
		logger.Warn("embeddings_disabled", "reason", "sovereign_mode", "embeddings_backend", policy.Embeddings)
	case policy.Retrieval == domain.RetrievalPGVector:
		return nil, fmt.Errorf("init embeddings: %w", app.embedderErr)
	default:
		logger.Warn("embeddings_unavailable", "error", app.embedderErr)
	}

	if cfg.PostgresDSN != "" {
		app.Connector = postgres.NewConnector(cfg.PostgresDSN, cfg.EmbeddingDimension)
	} else if policy.Retrieval == domain.RetrievalPGVector && policy.CheckEmbeddings() == nil {
		return nil, cfg.RequireDSN()
	}

	provider := retrieval.Select(policy, retrieval.Options{
		DatasetVersion: cfg.DatasetVersion,
		Embedder:       app.Embedder,
		Connector:      app.Connector,
		Logger:         logger,
	})
	app.QueryUC = usecase.NewQueryUseCase(policy, provider, cfg.DatasetVersion, logger)

	logger.Info("backends_resolved",
		"retrieval_backend", provider.Backend(),
		"embeddings_backend", policy.Embeddings,
		"sovereign_mode", policy.Sovereign,
		"dataset_version", cfg.DatasetVersion,
	)
	return app, nil
}

// NewIngestor wires the ingestion pipeline. Unlike the query side it refuses
// to start in a sovereign deployment configured for remote embeddings.
func (a *App) NewIngestor(recorder ports.IngestRecorder) (*usecase.IngestKnowledgeUseCase, error) {
	if err := a.Policy.CheckEmbeddings(); err != nil {
		return nil, err
	}
	if a.embedderErr != nil {
		return nil, fmt.Errorf("init embeddings: %w", a.embedderErr)
	}
	if err := a.Config.RequireDSN(); err != nil {
		return nil, err
	}

	storage, err := localfs.New(a.Config.KnowledgeRoot, extractor.SupportedExtensions()...)
	if err != nil {
		return nil, fmt.Errorf("init knowledge storage: %w", err)
	}
	catalog, err := sources.Load(a.Config.KnowledgeSourcesFile, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("load sources file: %w", err)
	}

	return usecase.NewIngestKnowledgeUseCase(usecase.IngestDependencies{
		Policy:        a.Policy,
		Storage:       storage,
		Catalog:       catalog,
		Extractor:     extractor.NewDefaultRouter(storage),
		Chunker:       chunking.NewSplitter(a.Config.ChunkSize, a.Config.ChunkOverlap),
		Embedder:      a.Embedder,
		Connector:     postgres.NewConnector(a.Config.PostgresDSN, a.Config.EmbeddingDimension, postgres.WithSchemaBootstrap()),
		Fingerprinter: fingerprint.Fingerprinter{},
		Recorder:      recorder,
		MinTextLength: a.Config.MinTextLength,
		Logger:        a.Logger,
	}), nil
}

// NewQueue connects to the ingestion request subject.
func (a *App) NewQueue() (*nats.Queue, error) {
	queue, err := nats.NewWithOptions(a.Config.NATSURL, a.Config.NATSSubject, nats.Options{
		ConnectTimeout:     5 * time.Second,
		ResilienceExecutor: a.publisher,
		Logger:             a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	return queue, nil
}
