package plaintext

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type fakeStorage struct {
	files map[string][]byte
}

func (s *fakeStorage) Walk(context.Context) ([]domain.SourceFile, error) { return nil, nil }

func (s *fakeStorage) Open(_ context.Context, file domain.SourceFile) (io.ReadCloser, error) {
	raw, ok := s.files[file.RelativePath]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func TestExtractTrimsAndStripsBOM(t *testing.T) {
	storage := &fakeStorage{files: map[string][]byte{
		"law__a.md": []byte("\ufeff  # المادة الأولى\nنص  \n"),
	}}
	text, err := NewExtractor(storage).Extract(context.Background(), domain.SourceFile{RelativePath: "law__a.md", Name: "law__a.md"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# المادة الأولى\nنص" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	storage := &fakeStorage{files: map[string][]byte{"bin.txt": {0xff, 0xfe, 0x00, 0xc3}}}
	_, err := NewExtractor(storage).Extract(context.Background(), domain.SourceFile{RelativePath: "bin.txt", Name: "bin.txt"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractPropagatesOpenError(t *testing.T) {
	_, err := NewExtractor(&fakeStorage{}).Extract(context.Background(), domain.SourceFile{RelativePath: "none.txt"})
	if err == nil {
		t.Fatalf("expected open error")
	}
}
