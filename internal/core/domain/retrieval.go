package domain

import "time"

// DateLayout is the wire format of filter bounds and published dates.
const DateLayout = "2006-01-02"

const (
	DefaultTopK         = 8
	MaxTopK             = 20
	DefaultAuthorityMin = 0.7
	MinQueryLength      = 2
	MaxQueryLength      = 2000
)

type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
	LanguageAuto    Language = "auto"
)

// SearchFilters is the wire form of request filters; dates are YYYY-MM-DD.
type SearchFilters struct {
	SourceType   []string `json:"source_type,omitempty"`
	DateFrom     string   `json:"date_from,omitempty"`
	DateTo       string   `json:"date_to,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	AuthorityMin *float64 `json:"authority_min,omitempty"`
}

type SearchRequest struct {
	Query    string        `json:"query"`
	Language Language      `json:"language,omitempty"`
	Filters  SearchFilters `json:"filters"`
	// TopK is nil when the caller did not set it; an explicit value must be
	// within 1..MaxTopK.
	TopK *int `json:"top_k,omitempty"`
}

// SearchQuery is a validated SearchRequest with defaults applied.
type SearchQuery struct {
	Text         string
	Language     Language
	SourceTypes  []SourceType
	Tags         []string
	DateFrom     *time.Time
	DateTo       *time.Time
	AuthorityMin float64
	TopK         int
}

type SearchResult struct {
	DocID          string     `json:"doc_id"`
	Title          string     `json:"title"`
	Section        string     `json:"section,omitempty"`
	Article        string     `json:"article,omitempty"`
	PageStart      *int       `json:"page_start,omitempty"`
	PageEnd        *int       `json:"page_end,omitempty"`
	Snippet        string     `json:"snippet"`
	URL            string     `json:"url,omitempty"`
	Score          float64    `json:"score"`
	Hash           string     `json:"hash,omitempty"`
	SourceType     SourceType `json:"source_type,omitempty"`
	PublishedDate  string     `json:"published_date,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	AuthorityScore *float64   `json:"authority_score,omitempty"`
}

type SearchResponse struct {
	Results        []SearchResult `json:"results"`
	DatasetVersion string         `json:"dataset_version"`
	Backend        string         `json:"backend"`
}

// ChunkMatch is a raw nearest-neighbour hit before score normalization.
type ChunkMatch struct {
	Chunk    DocumentChunk
	Document SourceDocument
	Distance float64
}
