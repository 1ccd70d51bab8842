package xlsx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type memStorage struct{ raw []byte }

func (s memStorage) Walk(context.Context) ([]domain.SourceFile, error) { return nil, nil }
func (s memStorage) Open(context.Context, domain.SourceFile) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.raw)), nil
}

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	mustSet := func(sheet, cell string, value any) {
		if err := book.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("SetCellValue(%s!%s): %v", sheet, cell, err)
		}
	}
	mustSet("Sheet1", "A1", "Item")
	mustSet("Sheet1", "B1", "Fee")
	mustSet("Sheet1", "A2", "Registration")
	mustSet("Sheet1", "B2", 150)

	if _, err := book.NewSheet("Empty"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestExtractFlattensSheets(t *testing.T) {
	text, err := NewExtractor(memStorage{raw: buildWorkbook(t)}).Extract(context.Background(), domain.SourceFile{Name: "tender__fees.xlsx"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "## Sheet1\nItem\tFee\nRegistration\t150"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestExtractRejectsNonWorkbook(t *testing.T) {
	_, err := NewExtractor(memStorage{raw: []byte("nope")}).Extract(context.Background(), domain.SourceFile{Name: "bad.xlsx"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
