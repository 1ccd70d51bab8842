// Package docx reads the body text of Office Open XML word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

var Extensions = []string{".docx"}

const documentPart = "word/document.xml"

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

	text, err := ExtractBytes(raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract docx "+file.Name, err)
	}
	return text, nil
}

// ExtractBytes returns paragraph text in document order, one paragraph per line.
// Table cells are included since their paragraphs live under the same body.
func ExtractBytes(raw []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	for _, part := range archive.File {
		if part.Name != documentPart {
			continue
		}
		rc, err := part.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer rc.Close()
		return parseDocument(rc)
	}
	return "", fmt.Errorf("missing %s", documentPart)
}

func parseDocument(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
	)

	flush := func() {
		line := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if line == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	flush()
	return out.String(), nil
}
