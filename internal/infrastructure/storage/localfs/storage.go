package localfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// Storage exposes a directory tree of source files.
type Storage struct {
	basePath   string
	extensions map[string]struct{}
}

// New accepts the file extensions (with dot) to discover; empty means all files.
func New(basePath string, extensions ...string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/knowledge"
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat knowledge root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge root is not a directory: %s", basePath)
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Storage{basePath: basePath, extensions: exts}, nil
}

// Walk returns files ordered by relative path so runs are reproducible.
func (s *Storage) Walk(ctx context.Context) ([]domain.SourceFile, error) {
	var files []domain.SourceFile
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != s.basePath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() || !s.accepts(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		files = append(files, domain.SourceFile{
			Path:         path,
			RelativePath: filepath.ToSlash(rel),
			Name:         d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk knowledge root: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	return files, nil
}

func (s *Storage) Open(_ context.Context, file domain.SourceFile) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(file.RelativePath))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) accepts(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
