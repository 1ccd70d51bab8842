package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type Config struct {
	APIPort  string
	LogLevel string

	PostgresDSN    string
	DatasetVersion string

	EmbeddingsBackend string
	RetrievalBackend  string
	SovereignMode     bool

	RemoteEmbeddingsURL    string
	RemoteEmbeddingsAPIKey string
	RemoteEmbeddingsModel  string

	LocalEmbeddingsURL    string
	LocalEmbeddingsAPIKey string

	EmbeddingDimension      int
	EmbeddingTimeoutSeconds int
	EmbedBreakerEnabled     bool

	KnowledgeRoot        string
	KnowledgeSourcesFile string
	ChunkSize            int
	ChunkOverlap         int
	MinTextLength        int

	NATSURL     string
	NATSSubject string

	WorkerMetricsPort string

	// sovereignModeInvalid holds an unparseable SOVEREIGN_MODE value; Policy refuses it.
	sovereignModeInvalid string
}

func Load() Config {
	sovereign, sovereignErr := envStrictBool("SOVEREIGN_MODE", false)
	cfg := Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		DatasetVersion: mustEnv("DATASET_VERSION", "unversioned"),

		EmbeddingsBackend: mustEnv("EMBEDDINGS_BACKEND", string(domain.EmbeddingRemote)),
		RetrievalBackend:  mustEnv("RETRIEVAL_BACKEND", string(domain.RetrievalMock)),
		SovereignMode:     sovereign,

		RemoteEmbeddingsURL:    mustEnv("REMOTE_EMBEDDINGS_URL", "https://api.openai.com/v1"),
		RemoteEmbeddingsAPIKey: os.Getenv("REMOTE_EMBEDDINGS_API_KEY"),
		RemoteEmbeddingsModel:  mustEnv("REMOTE_EMBEDDINGS_MODEL", "text-embedding-3-small"),

		LocalEmbeddingsURL:    os.Getenv("LOCAL_EMBEDDINGS_URL"),
		LocalEmbeddingsAPIKey: os.Getenv("LOCAL_EMBEDDINGS_API_KEY"),

		EmbeddingDimension:      mustEnvInt("EMBEDDING_DIMENSION", 1536),
		EmbeddingTimeoutSeconds: mustEnvInt("EMBEDDING_TIMEOUT_SECONDS", 60),
		EmbedBreakerEnabled:     mustEnvBool("EMBED_BREAKER_ENABLED", true),

		KnowledgeRoot:        mustEnv("KNOWLEDGE_ROOT", "./data/knowledge"),
		KnowledgeSourcesFile: os.Getenv("KNOWLEDGE_SOURCES_FILE"),
		ChunkSize:            mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:         mustEnvInt("CHUNK_OVERLAP", 200),
		MinTextLength:        mustEnvInt("MIN_TEXT_LENGTH", 50),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "knowledge.ingest"),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
	if sovereignErr != nil {
		// Unknown spellings fail closed until Policy rejects them.
		cfg.SovereignMode = true
		cfg.sovereignModeInvalid = os.Getenv("SOVEREIGN_MODE")
	}
	return cfg
}

// Policy resolves the backend selection settings once for the process run.
func (c Config) Policy() (domain.DeploymentPolicy, error) {
	if c.sovereignModeInvalid != "" {
		return domain.DeploymentPolicy{}, domain.WrapError(domain.ErrConfiguration, "sovereign mode",
			fmt.Errorf("SOVEREIGN_MODE=%q is not a boolean", c.sovereignModeInvalid))
	}
	embeddings, err := domain.ParseEmbeddingBackend(c.EmbeddingsBackend)
	if err != nil {
		return domain.DeploymentPolicy{}, err
	}
	return domain.DeploymentPolicy{
		Sovereign:  c.SovereignMode,
		Embeddings: embeddings,
		Retrieval:  domain.ParseRetrievalBackend(c.RetrievalBackend),
	}, nil
}

// RequireDSN fails fast when the vector store connection string is missing.
func (c Config) RequireDSN() error {
	if strings.TrimSpace(c.PostgresDSN) == "" {
		return domain.WrapError(domain.ErrConfiguration, "vector store", errors.New("POSTGRES_DSN is not set"))
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envStrictBool accepts the common true/false spellings and errors on anything
// else, so a typo in a safety flag cannot silently disable it.
func envStrictBool(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback, nil
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return fallback, fmt.Errorf("%s: unrecognized boolean %q", key, v)
	}
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
