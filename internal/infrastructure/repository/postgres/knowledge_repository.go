package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

const schemaLockID int64 = 2026101901

// minEfSearch is the HNSW candidate list size for filtered searches; it is
// raised to top_k when larger. Iterative scans keep walking the graph until
// enough rows pass the document filters.
const minEfSearch = 200

// KnowledgeRepository reads and writes the pgvector knowledge index over a
// single scoped connection.
type KnowledgeRepository struct {
	db        *sql.DB
	dimension int
}

func NewKnowledgeRepository(db *sql.DB, dimension int) *KnowledgeRepository {
	return &KnowledgeRepository{db: db, dimension: dimension}
}

// OpenDB opens one connection and verifies it. The pool is capped at a
// single connection: every ingestion run or query owns its own handle.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "db ping", err)
	}
	return db, nil
}

func (r *KnowledgeRepository) Close() error {
	return r.db.Close()
}

func (r *KnowledgeRepository) EnsureSchema(ctx context.Context) error {
	if r.dimension <= 0 {
		return domain.WrapError(domain.ErrConfiguration, "ensure schema", errors.New("embedding dimension must be positive"))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent ingestion runs.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS knowledge_documents (
	doc_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	source_type TEXT NOT NULL,
	authority_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	tags TEXT[] NOT NULL DEFAULT '{}',
	url TEXT,
	published_date DATE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS knowledge_chunks (
	chunk_id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES knowledge_documents(doc_id) ON DELETE CASCADE,
	snippet TEXT NOT NULL,
	hash TEXT NOT NULL,
	section TEXT,
	article TEXT,
	page_start INTEGER,
	page_end INTEGER,
	embedding vector(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_doc_id ON knowledge_chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_knowledge_documents_source_type ON knowledge_documents(source_type);
CREATE INDEX IF NOT EXISTS idx_knowledge_documents_tags ON knowledge_documents USING GIN (tags);
DROP INDEX IF EXISTS idx_knowledge_chunks_embedding;
CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_embedding_hnsw ON knowledge_chunks
	USING hnsw (embedding vector_cosine_ops);
`, r.dimension)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) UpsertDocument(ctx context.Context, doc domain.SourceDocument) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO knowledge_documents (doc_id, title, source_type, authority_score, tags, url, published_date, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,now())
ON CONFLICT (doc_id) DO UPDATE SET
	title = EXCLUDED.title,
	source_type = EXCLUDED.source_type,
	authority_score = EXCLUDED.authority_score,
	tags = EXCLUDED.tags,
	url = EXCLUDED.url,
	published_date = EXCLUDED.published_date,
	updated_at = now()
`,
		doc.DocID, doc.Title, string(doc.SourceType), doc.AuthorityScore, pq.Array(nonNilTags(doc.Tags)),
		nullString(doc.URL), nullDate(doc.PublishedDate),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) DeleteChunks(ctx context.Context, docID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_chunks WHERE doc_id = $1`, docID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete chunks rows affected: %w", err)
	}
	return affected, nil
}

func (r *KnowledgeRepository) UpsertChunk(ctx context.Context, chunk domain.DocumentChunk) error {
	if r.dimension > 0 && len(chunk.Embedding) != r.dimension {
		return domain.WrapError(domain.ErrConfiguration, "upsert chunk",
			fmt.Errorf("embedding has %d values, index expects %d", len(chunk.Embedding), r.dimension))
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO knowledge_chunks (chunk_id, doc_id, snippet, hash, section, article, page_start, page_end, embedding)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (chunk_id) DO UPDATE SET
	doc_id = EXCLUDED.doc_id,
	snippet = EXCLUDED.snippet,
	hash = EXCLUDED.hash,
	section = EXCLUDED.section,
	article = EXCLUDED.article,
	page_start = EXCLUDED.page_start,
	page_end = EXCLUDED.page_end,
	embedding = EXCLUDED.embedding
`,
		chunk.ChunkID, chunk.DocID, chunk.Snippet, chunk.Hash,
		nullString(chunk.Section), nullString(chunk.Article), nullInt(chunk.PageStart), nullInt(chunk.PageEnd),
		pgvector.NewVector(chunk.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// SearchChunks returns the nearest chunks by cosine distance, ascending,
// restricted by the document-level filters of query.
func (r *KnowledgeRepository) SearchChunks(ctx context.Context, queryVector []float32, query domain.SearchQuery) ([]domain.ChunkMatch, error) {
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search chunks", errors.New("query vector is empty"))
	}
	limit := query.TopK
	if limit <= 0 {
		limit = domain.DefaultTopK
	}

	where := []string{"d.authority_score >= $2"}
	args := []any{pgvector.NewVector(queryVector), query.AuthorityMin}
	argIdx := 3

	if len(query.SourceTypes) > 0 {
		types := make([]string, 0, len(query.SourceTypes))
		for _, st := range query.SourceTypes {
			types = append(types, string(st))
		}
		where = append(where, fmt.Sprintf("d.source_type = ANY($%d)", argIdx))
		args = append(args, pq.Array(types))
		argIdx++
	}
	if len(query.Tags) > 0 {
		where = append(where, fmt.Sprintf("d.tags && $%d", argIdx))
		args = append(args, pq.Array(query.Tags))
		argIdx++
	}
	if query.DateFrom != nil {
		where = append(where, fmt.Sprintf("d.published_date >= $%d", argIdx))
		args = append(args, *query.DateFrom)
		argIdx++
	}
	if query.DateTo != nil {
		where = append(where, fmt.Sprintf("d.published_date <= $%d", argIdx))
		args = append(args, *query.DateTo)
		argIdx++
	}
	args = append(args, limit)

	sqlQuery := fmt.Sprintf(`
SELECT c.chunk_id, c.doc_id, c.snippet, c.hash, c.section, c.article, c.page_start, c.page_end,
	d.title, d.source_type, d.authority_score, d.tags, d.url, d.published_date,
	c.embedding <=> $1 AS distance
FROM knowledge_chunks c
JOIN knowledge_documents d ON d.doc_id = c.doc_id
WHERE %s
ORDER BY distance ASC
LIMIT $%d
`, strings.Join(where, " AND "), argIdx)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin search tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// SET LOCAL takes no bind parameters; efSearch is an int.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearch(limit))); err != nil {
		return nil, fmt.Errorf("set hnsw.ef_search: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SET LOCAL hnsw.iterative_scan = relaxed_order"); err != nil {
		return nil, fmt.Errorf("set hnsw.iterative_scan: %w", err)
	}

	rows, err := tx.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.ChunkMatch, 0, limit)
	for rows.Next() {
		var (
			m                     domain.ChunkMatch
			section, article, url sql.NullString
			pageStart, pageEnd    sql.NullInt64
			published             sql.NullTime
			sourceType            string
			tags                  []string
		)
		if err := rows.Scan(
			&m.Chunk.ChunkID, &m.Chunk.DocID, &m.Chunk.Snippet, &m.Chunk.Hash, &section, &article, &pageStart, &pageEnd,
			&m.Document.Title, &sourceType, &m.Document.AuthorityScore, pq.Array(&tags), &url, &published,
			&m.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan chunk match: %w", err)
		}

		m.Chunk.Section = section.String
		m.Chunk.Article = article.String
		m.Chunk.PageStart = intPtr(pageStart)
		m.Chunk.PageEnd = intPtr(pageEnd)
		m.Document.DocID = m.Chunk.DocID
		m.Document.SourceType = domain.SourceType(sourceType)
		m.Document.Tags = tags
		m.Document.URL = url.String
		if published.Valid {
			t := published.Time
			m.Document.PublishedDate = &t
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk matches: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close chunk matches: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit search tx: %w", err)
	}
	return matches, nil
}

func efSearch(limit int) int {
	if limit > minEfSearch {
		return limit
	}
	return minEfSearch
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
