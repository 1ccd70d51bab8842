package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

type SourceType string

const (
	SourceLaw                SourceType = "law"
	SourceRoyalDecree        SourceType = "royal_decree"
	SourceSupremeCourtRuling SourceType = "supreme_court_ruling"
	SourceGazette            SourceType = "gazette"
	SourceRegulation         SourceType = "regulation"
	SourceCircular           SourceType = "circular"
	SourceStandard           SourceType = "standard"
	SourceTender             SourceType = "tender"
	SourceGuideline          SourceType = "guideline"
	SourceTypeDocument       SourceType = "document"
)

var sourceTypes = map[SourceType]struct{}{
	SourceLaw:                {},
	SourceRoyalDecree:        {},
	SourceSupremeCourtRuling: {},
	SourceGazette:            {},
	SourceRegulation:         {},
	SourceCircular:           {},
	SourceStandard:           {},
	SourceTender:             {},
	SourceGuideline:          {},
	SourceTypeDocument:       {},
}

// ParseSourceType normalizes a raw value into a known SourceType.
func ParseSourceType(raw string) (SourceType, error) {
	st := SourceType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sourceTypes[st]; !ok {
		return "", fmt.Errorf("unknown source type %q", raw)
	}
	return st, nil
}

// DefaultAuthorityScore is applied to sources without a metadata entry.
const DefaultAuthorityScore = 0.5

// SourceConfig is ingestion-time metadata keyed by the filename source identifier.
type SourceConfig struct {
	Title          string
	SourceType     SourceType
	AuthorityScore float64
	Tags           []string
	URL            string
	PublishedDate  *time.Time
}

type SourceDocument struct {
	DocID          string     `json:"doc_id"`
	Title          string     `json:"title"`
	SourceType     SourceType `json:"source_type"`
	AuthorityScore float64    `json:"authority_score"`
	Tags           []string   `json:"tags"`
	URL            string     `json:"url,omitempty"`
	PublishedDate  *time.Time `json:"published_date,omitempty"`
}

type DocumentChunk struct {
	ChunkID   string    `json:"chunk_id"`
	DocID     string    `json:"doc_id"`
	Snippet   string    `json:"snippet"`
	Embedding []float32 `json:"-"`
	Hash      string    `json:"hash"`
	Section   string    `json:"section,omitempty"`
	Article   string    `json:"article,omitempty"`
	PageStart *int      `json:"page_start,omitempty"`
	PageEnd   *int      `json:"page_end,omitempty"`
}

// ChunkID builds the position-stable identifier of a chunk inside its document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", docID, index)
}

// SourceFile is a discovered file in the knowledge root.
type SourceFile struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Name         string `json:"name"`
}

type IngestReport struct {
	Documents    int      `json:"documents"`
	Chunks       int      `json:"chunks"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	FailedChunks []string `json:"failed_chunks,omitempty"`
}

// IngestRequest asks the worker to run the pipeline over its configured knowledge root.
type IngestRequest struct {
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// TextWindow is one chunker output: runes [Start, End) of the source text.
type TextWindow struct {
	Index int
	Start int
	End   int
	Text  string
}

// SourceIDSeparator splits "<source-id>__<rest>" filenames.
const SourceIDSeparator = "__"

// ParseSourceID returns the metadata key encoded in a filename, if any.
func ParseSourceID(filename string) (string, bool) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	id, _, found := strings.Cut(base, SourceIDSeparator)
	id = strings.TrimSpace(id)
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// TitleFromFilename is the fallback title for sources without metadata.
func TitleFromFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if _, rest, found := strings.Cut(base, SourceIDSeparator); found && strings.TrimSpace(rest) != "" {
		base = rest
	}
	title := strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(base)), " ")
	if title == "" {
		return "Untitled document"
	}
	return title
}
