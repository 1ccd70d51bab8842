package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// Extensions handled by this extractor.
var Extensions = []string{".txt", ".md", ".markdown"}

type Extractor struct {
	storage ports.SourceStorage
}

func NewExtractor(storage ports.SourceStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile) (string, error) {
	reader, err := e.storage.Open(ctx, file)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", fmt.Errorf("not valid utf-8: %s", file.Name))
	}

	text := strings.TrimPrefix(string(raw), "\ufeff")
	return strings.TrimSpace(text), nil
}
