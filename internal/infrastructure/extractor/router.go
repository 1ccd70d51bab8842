// Package extractor dispatches source files to a format-specific text extractor.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor/xlsx"
)

type Router struct {
	byExt map[string]ports.TextExtractor
}

// SupportedExtensions lists the file extensions NewDefaultRouter handles.
func SupportedExtensions() []string {
	return NewDefaultRouter(nil).Extensions()
}

func NewRouter() *Router {
	return &Router{byExt: make(map[string]ports.TextExtractor)}
}

// NewDefaultRouter registers every built-in format against storage.
func NewDefaultRouter(storage ports.SourceStorage) *Router {
	r := NewRouter()
	r.Register(plaintext.NewExtractor(storage), plaintext.Extensions...)
	r.Register(pdf.NewExtractor(storage), pdf.Extensions...)
	r.Register(docx.NewExtractor(storage), docx.Extensions...)
	r.Register(xlsx.NewExtractor(storage), xlsx.Extensions...)
	return r
}

func (r *Router) Register(extractor ports.TextExtractor, extensions ...string) {
	for _, ext := range extensions {
		r.byExt[strings.ToLower(ext)] = extractor
	}
}

// Extensions lists registered extensions, sorted.
func (r *Router) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Router) Extract(ctx context.Context, file domain.SourceFile) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Name))
	extractor, ok := r.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrExtraction, "select extractor", fmt.Errorf("unsupported file type %q", ext))
	}
	return extractor.Extract(ctx, file)
}
