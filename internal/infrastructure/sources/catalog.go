// Package sources loads the per-source ingestion metadata file.
//
// The file is a YAML map keyed by the source identifier, i.e. the filename
// text before the first "__":
//
//	labor-law:
//	  title: Labor Law
//	  source_type: law
//	  authority_score: 0.95
//	  tags: [labor, employment]
//	  published_date: 2005-09-27
package sources

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type entry struct {
	Title          string   `yaml:"title"`
	SourceType     string   `yaml:"source_type"`
	AuthorityScore *float64 `yaml:"authority_score"`
	Tags           []string `yaml:"tags"`
	URL            string   `yaml:"url"`
	PublishedDate  string   `yaml:"published_date"`
}

type Catalog struct {
	entries map[string]domain.SourceConfig
}

// Load reads the metadata file. An empty path yields an empty catalog. A nil
// logger falls back to slog.Default.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return &Catalog{entries: map[string]domain.SourceConfig{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrConfiguration, "load sources file", err)
		}
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return Parse(raw, logger)
}

func Parse(raw []byte, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var decoded map[string]entry
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "parse sources file", err)
	}

	entries := make(map[string]domain.SourceConfig, len(decoded))
	for id, e := range decoded {
		cfg, err := e.toConfig(id, logger)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "parse sources file", err)
		}
		entries[strings.TrimSpace(id)] = cfg
	}
	return &Catalog{entries: entries}, nil
}

func (c *Catalog) Lookup(sourceID string) (domain.SourceConfig, bool) {
	if c == nil || sourceID == "" {
		return domain.SourceConfig{}, false
	}
	cfg, ok := c.entries[sourceID]
	return cfg, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (e entry) toConfig(id string, logger *slog.Logger) (domain.SourceConfig, error) {
	cfg := domain.SourceConfig{
		Title:          strings.TrimSpace(e.Title),
		SourceType:     domain.SourceTypeDocument,
		AuthorityScore: domain.DefaultAuthorityScore,
		Tags:           normalizeTags(e.Tags),
		URL:            strings.TrimSpace(e.URL),
	}

	if e.SourceType != "" {
		st, err := domain.ParseSourceType(e.SourceType)
		if err != nil {
			logger.Warn("sources_unknown_type", "source_id", id, "source_type", e.SourceType)
		} else {
			cfg.SourceType = st
		}
	}

	if e.AuthorityScore != nil {
		score := *e.AuthorityScore
		if score < 0 || score > 1 {
			return domain.SourceConfig{}, fmt.Errorf("source %q: authority_score %v outside [0,1]", id, score)
		}
		cfg.AuthorityScore = score
	}

	if e.PublishedDate != "" {
		published, err := time.Parse(domain.DateLayout, strings.TrimSpace(e.PublishedDate))
		if err != nil {
			return domain.SourceConfig{}, fmt.Errorf("source %q: published_date: %w", id, err)
		}
		cfg.PublishedDate = &published
	}
	return cfg, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
