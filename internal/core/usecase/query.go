package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// QueryUseCase validates search requests and forwards them to the selected
// retrieval provider, applying the sovereign-mode downgrade at the boundary.
type QueryUseCase struct {
	policy         domain.DeploymentPolicy
	provider       ports.RetrievalProvider
	datasetVersion string
	logger         *slog.Logger
}

func NewQueryUseCase(
	policy domain.DeploymentPolicy,
	provider ports.RetrievalProvider,
	datasetVersion string,
	logger *slog.Logger,
) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		policy:         policy,
		provider:       provider,
		datasetVersion: datasetVersion,
		logger:         logger,
	}
}

func (uc *QueryUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	query, err := ValidateSearchRequest(req)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.CheckEmbeddings(); err != nil {
		uc.logger.Warn("sovereign_downgrade",
			"retrieval_backend", uc.policy.Retrieval,
			"embeddings_backend", uc.policy.Embeddings,
		)
		return &domain.SearchResponse{
			Results:        []domain.SearchResult{},
			DatasetVersion: uc.datasetVersion,
			Backend:        string(domain.RetrievalMock),
		}, nil
	}

	if uc.provider == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "search", errors.New("no retrieval provider configured"))
	}

	started := time.Now()
	resp, err := uc.provider.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval search: %w", err)
	}
	if resp.Results == nil {
		resp.Results = []domain.SearchResult{}
	}
	if resp.DatasetVersion == "" {
		resp.DatasetVersion = uc.datasetVersion
	}
	if resp.Backend == "" {
		resp.Backend = string(uc.provider.Backend())
	}

	uc.logger.Info("knowledge_search",
		"backend", resp.Backend,
		"results", len(resp.Results),
		"top_k", query.TopK,
		"language", query.Language,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return resp, nil
}

// ValidateSearchRequest applies defaults and bounds, returning an
// ErrInvalidInput-kinded error on the first violation.
func ValidateSearchRequest(req domain.SearchRequest) (domain.SearchQuery, error) {
	invalid := func(format string, args ...any) (domain.SearchQuery, error) {
		return domain.SearchQuery{}, domain.WrapError(domain.ErrInvalidInput, "validate search request", fmt.Errorf(format, args...))
	}

	text := strings.TrimSpace(req.Query)
	if n := utf8.RuneCountInString(text); n < domain.MinQueryLength || n > domain.MaxQueryLength {
		return invalid("query must be %d..%d characters, got %d", domain.MinQueryLength, domain.MaxQueryLength, n)
	}

	query := domain.SearchQuery{
		Text:         text,
		Language:     domain.LanguageAuto,
		TopK:         domain.DefaultTopK,
		AuthorityMin: domain.DefaultAuthorityMin,
	}

	switch lang := domain.Language(strings.ToLower(strings.TrimSpace(string(req.Language)))); lang {
	case "":
	case domain.LanguageArabic, domain.LanguageEnglish, domain.LanguageAuto:
		query.Language = lang
	default:
		return invalid("unsupported language %q", req.Language)
	}

	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > domain.MaxTopK {
			return invalid("top_k must be 1..%d, got %d", domain.MaxTopK, *req.TopK)
		}
		query.TopK = *req.TopK
	}

	f := req.Filters
	if f.AuthorityMin != nil {
		if *f.AuthorityMin < 0 || *f.AuthorityMin > 1 {
			return invalid("authority_min must be within [0,1], got %v", *f.AuthorityMin)
		}
		query.AuthorityMin = *f.AuthorityMin
	}

	for _, raw := range f.SourceType {
		st, err := domain.ParseSourceType(raw)
		if err != nil {
			return invalid("%v", err)
		}
		query.SourceTypes = append(query.SourceTypes, st)
	}

	for _, tag := range f.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			query.Tags = append(query.Tags, tag)
		}
	}

	var err error
	if query.DateFrom, err = parseDate("date_from", f.DateFrom); err != nil {
		return invalid("%v", err)
	}
	if query.DateTo, err = parseDate("date_to", f.DateTo); err != nil {
		return invalid("%v", err)
	}
	if query.DateFrom != nil && query.DateTo != nil && query.DateFrom.After(*query.DateTo) {
		return invalid("date_from %s is after date_to %s", f.DateFrom, f.DateTo)
	}
	return query, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD, got %q", field, raw)
	}
	return &t, nil
}
