package chunking

import "github.com/kirillkom/knowledge-retrieval/internal/core/domain"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts text into fixed-size rune windows that overlap by Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split walks the text while start < len, so the last window always ends at
// the end of the text. An overlap >= ChunkSize degrades to non-overlapping windows.
func (s *Splitter) Split(text string) []domain.TextWindow {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]domain.TextWindow, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.TextWindow{
			Index: len(out),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
	}
	return out
}
