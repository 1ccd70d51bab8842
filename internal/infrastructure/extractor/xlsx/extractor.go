// Package xlsx flattens spreadsheet annexes (tender schedules, fee tables) into text.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

var Extensions = []string{".xlsx"}

type Extractor struct {
	storage ports.SourceStorage
}

func NewExtractor(storage ports.SourceStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract writes each non-empty sheet as a "## name" header followed by one
// tab-separated line per non-empty row.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile) (string, error) {
	reader, err := e.storage.Open(ctx, file)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract xlsx "+file.Name, err)
	}
	defer book.Close()

	var out strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "extract xlsx "+file.Name, fmt.Errorf("sheet %q: %w", sheet, err))
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(trimCells(row), "\t"))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString("## ")
		out.WriteString(sheet)
		out.WriteByte('\n')
		out.WriteString(strings.Join(lines, "\n"))
	}
	return out.String(), nil
}

func trimCells(row []string) []string {
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}
