package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
)

const DefaultTable = "kb_documents"

type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PgVectorStore keeps documents and their embeddings in a pgvector table and
// searches by cosine distance.
type PgVectorStore struct {
	db       pgxConn
	embedder Embedder
	table    string
}

func NewPgVectorStore(db pgxConn, embedder Embedder, table string) *PgVectorStore {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	return &PgVectorStore{
		db:       db,
		embedder: embedder,
		table:    pgx.Identifier{table}.Sanitize(),
	}
}

func (s *PgVectorStore) Close() {
	s.db.Close()
}

func (s *PgVectorStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("knowledge: create vector extension: %w", err)
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding vector NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("knowledge: create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PgVectorStore) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.EmbeddingText()
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, source, title, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, s.table)

	for i, d := range docs {
		if _, err := s.db.Exec(ctx, query, d.ID, d.Source, d.Title, d.Content, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("knowledge: upsert %s: %w", d.ID, err)
		}
		log.Debug().Str("id", d.ID).Str("source", d.Source).Msg("indexed document")
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, text string, k int) ([]contractx.Snippet, error) {
	if k <= 0 {
		return []contractx.Snippet{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrieval, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: no query embedding", contractx.ErrRetrieval)
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, source, content, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.table), pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrieval, err)
	}
	defer rows.Close()

	snippets := make([]contractx.Snippet, 0, k)
	for rows.Next() {
		var sn contractx.Snippet
		if err := rows.Scan(&sn.ID, &sn.Source, &sn.Text, &sn.Score); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", contractx.ErrRetrieval, err)
		}
		snippets = append(snippets, sn)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrieval, err)
	}
	return snippets, nil
}
