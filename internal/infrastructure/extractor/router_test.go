package extractor

import (
	"context"
	"testing"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type stubExtractor struct {
	text  string
	calls int
}

func (s *stubExtractor) Extract(context.Context, domain.SourceFile) (string, error) {
	s.calls++
	return s.text, nil
}

func TestRouterDispatchesCaseInsensitive(t *testing.T) {
	md := &stubExtractor{text: "markdown"}
	router := NewRouter()
	router.Register(md, ".md", ".MARKDOWN")

	text, err := router.Extract(context.Background(), domain.SourceFile{Name: "guide__Intro.MD"})
	if err != nil || text != "markdown" {
		t.Fatalf("Extract() = %q, %v", text, err)
	}
	if _, err := router.Extract(context.Background(), domain.SourceFile{Name: "notes.markdown"}); err != nil {
		t.Fatalf("expected .markdown to route, got %v", err)
	}
	if md.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", md.calls)
	}
}

func TestRouterUnsupportedType(t *testing.T) {
	_, err := NewRouter().Extract(context.Background(), domain.SourceFile{Name: "scan.png"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestDefaultRouterExtensions(t *testing.T) {
	got := NewDefaultRouter(nil).Extensions()
	want := []string{".docx", ".markdown", ".md", ".pdf", ".txt", ".xlsx"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
