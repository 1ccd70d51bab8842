package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

const DefaultMinTextLength = 50

// Ingestion outcome labels passed to ports.IngestRecorder.
const (
	StatusIndexed = "indexed"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

type IngestDependencies struct {
	Policy        domain.DeploymentPolicy
	Storage       ports.SourceStorage
	Catalog       ports.SourceCatalog
	Extractor     ports.TextExtractor
	Chunker       ports.Chunker
	Embedder      ports.Embedder
	Connector     ports.KnowledgeStoreConnector
	Fingerprinter ports.Fingerprinter
	Recorder      ports.IngestRecorder
	MinTextLength int
	Logger        *slog.Logger
}

// IngestKnowledgeUseCase walks the knowledge root and (re)indexes every
// supported file, one document and one embedding call at a time.
type IngestKnowledgeUseCase struct {
	deps IngestDependencies
}

func NewIngestKnowledgeUseCase(deps IngestDependencies) *IngestKnowledgeUseCase {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MinTextLength <= 0 {
		deps.MinTextLength = DefaultMinTextLength
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	return &IngestKnowledgeUseCase{deps: deps}
}

func (uc *IngestKnowledgeUseCase) Run(ctx context.Context) (*domain.IngestReport, error) {
	if err := uc.deps.Policy.CheckEmbeddings(); err != nil {
		uc.deps.Logger.Error("ingest_refused", "reason", "sovereign_mode", "embeddings_backend", uc.deps.Policy.Embeddings)
		return nil, err
	}
	if uc.deps.Embedder == nil || uc.deps.Connector == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "ingest", errors.New("embedder and knowledge store are required"))
	}

	started := time.Now()
	store, err := uc.deps.Connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			uc.deps.Logger.Warn("knowledge_store_close_failed", "error", cerr)
		}
	}()

	files, err := uc.deps.Storage.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("list knowledge files: %w", err)
	}
	uc.deps.Logger.Info("ingest_started", "files", len(files), "embeddings_backend", uc.deps.Embedder.Backend())

	report := &domain.IngestReport{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := uc.ingestFile(ctx, store, file, report); err != nil {
			uc.deps.Logger.Error("ingest_aborted", "file", file.RelativePath, "error", err)
			return report, err
		}
	}

	uc.deps.Logger.Info("ingest_completed",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"skipped_files", len(report.SkippedFiles),
		"failed_chunks", len(report.FailedChunks),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return report, nil
}

// ingestFile returns an error only for failures that must stop the whole run.
func (uc *IngestKnowledgeUseCase) ingestFile(ctx context.Context, store ports.KnowledgeStore, file domain.SourceFile, report *domain.IngestReport) error {
	logger := uc.deps.Logger.With("file", file.RelativePath)
	skip := func(status, reason string, err error) {
		report.SkippedFiles = append(report.SkippedFiles, file.RelativePath)
		uc.deps.Recorder.RecordDocument(status)
		logger.Warn("ingest_file_skipped", "reason", reason, "error", err)
	}

	text, err := uc.deps.Extractor.Extract(ctx, file)
	if err != nil {
		skip(StatusFailed, "extract", err)
		return nil
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < uc.deps.MinTextLength {
		skip(StatusSkipped, "too_short", fmt.Errorf("%d characters, minimum %d", n, uc.deps.MinTextLength))
		return nil
	}

	doc := uc.resolveDocument(file)
	if err := store.UpsertDocument(ctx, doc); err != nil {
		skip(StatusFailed, "upsert_document", err)
		return nil
	}
	deleted, err := store.DeleteChunks(ctx, doc.DocID)
	if err != nil {
		skip(StatusFailed, "delete_chunks", err)
		return nil
	}

	windows := uc.deps.Chunker.Split(text)
	indexed := 0
	for _, w := range windows {
		chunk := domain.DocumentChunk{
			ChunkID: domain.ChunkID(doc.DocID, w.Index),
			DocID:   doc.DocID,
			Snippet: w.Text,
			Hash:    uc.deps.Fingerprinter.ContentHash(w.Text),
		}
		if err := uc.indexChunk(ctx, store, &chunk); err != nil {
			if domain.IsKind(err, domain.ErrConfiguration) {
				return err
			}
			report.FailedChunks = append(report.FailedChunks, chunk.ChunkID)
			uc.deps.Recorder.RecordChunk(StatusFailed)
			logger.Warn("ingest_chunk_failed", "chunk_id", chunk.ChunkID, "error", err)
			continue
		}
		indexed++
		uc.deps.Recorder.RecordChunk(StatusIndexed)
	}

	report.Documents++
	report.Chunks += indexed
	uc.deps.Recorder.RecordDocument(StatusIndexed)
	logger.Info("ingest_file_indexed",
		"doc_id", doc.DocID,
		"source_type", doc.SourceType,
		"chunks", indexed,
		"windows", len(windows),
		"replaced_chunks", deleted,
	)
	return nil
}

func (uc *IngestKnowledgeUseCase) indexChunk(ctx context.Context, store ports.KnowledgeStore, chunk *domain.DocumentChunk) error {
	vector, err := uc.deps.Embedder.Embed(ctx, chunk.Snippet)
	if err != nil {
		return fmt.Errorf("embed chunk: %w", err)
	}
	chunk.Embedding = vector
	if err := store.UpsertChunk(ctx, *chunk); err != nil {
		return fmt.Errorf("store chunk: %w", err)
	}
	return nil
}

// resolveDocument merges catalog metadata for the filename's source id with
// filename-derived defaults.
func (uc *IngestKnowledgeUseCase) resolveDocument(file domain.SourceFile) domain.SourceDocument {
	doc := domain.SourceDocument{
		DocID:          uc.deps.Fingerprinter.DocID(file.RelativePath),
		Title:          domain.TitleFromFilename(file.Name),
		SourceType:     domain.SourceTypeDocument,
		AuthorityScore: domain.DefaultAuthorityScore,
		Tags:           []string{},
		URL:            file.RelativePath,
	}

	sourceID, ok := domain.ParseSourceID(file.Name)
	if !ok || uc.deps.Catalog == nil {
		return doc
	}
	cfg, ok := uc.deps.Catalog.Lookup(sourceID)
	if !ok {
		return doc
	}

	if cfg.Title != "" {
		doc.Title = cfg.Title
	}
	if cfg.SourceType != "" {
		doc.SourceType = cfg.SourceType
	}
	doc.AuthorityScore = cfg.AuthorityScore
	if cfg.Tags != nil {
		doc.Tags = cfg.Tags
	}
	if cfg.URL != "" {
		doc.URL = cfg.URL
	}
	doc.PublishedDate = cfg.PublishedDate
	return doc
}

type noopRecorder struct{}

func (noopRecorder) RecordDocument(string) {}
func (noopRecorder) RecordChunk(string)    {}
