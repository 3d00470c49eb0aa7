// Package store provides implementations of the shared keyword store: a
// PostgreSQL-backed store for production and an in-memory store for tests
// and local development. One keyword occurrence is one row; rows are
// partitioned by document_type so many corpora share a single table.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/searchcore/keywordindexer/internal/pipeline"
	apperrors "github.com/searchcore/keywordindexer/pkg/errors"
	"github.com/searchcore/keywordindexer/pkg/postgres"
)

// Schema is the DDL for the shared keyword table and the document type
// registry table. Applied by operators or migration tooling, not at runtime.
const Schema = `
CREATE TABLE IF NOT EXISTS document_types (
    id        SERIAL PRIMARY KEY,
    shortname TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS keywords (
    document_id   BIGINT  NOT NULL,
    word          TEXT    NOT NULL,
    weight        INTEGER NOT NULL,
    location      INTEGER NOT NULL,
    document_type INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS keywords_word_type_idx
    ON keywords (word, document_type);
CREATE INDEX IF NOT EXISTS keywords_type_document_idx
    ON keywords (document_type, document_id);
`

// Postgres is the production keyword store.
type Postgres struct {
	client *postgres.Client
}

// NewPostgres wraps an open PostgreSQL client.
func NewPostgres(client *postgres.Client) *Postgres {
	return &Postgres{client: client}
}

// InTx runs fn inside one database transaction. Any error from fn rolls the
// transaction back; nothing fn staged is observable afterwards.
func (s *Postgres) InTx(ctx context.Context, fn func(tx pipeline.Tx) error) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&pgTx{tx: tx})
	})
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrStoreFailure, err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) DeleteType(ctx context.Context, documentType int64) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM keywords WHERE document_type = $1`,
		documentType,
	)
	if err != nil {
		return fmt.Errorf("deleting keywords for type %d: %w", documentType, err)
	}
	return nil
}

func (t *pgTx) DeleteDocuments(ctx context.Context, documentType int64, ids []int64) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM keywords WHERE document_type = $1 AND document_id = ANY($2)`,
		documentType, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("deleting keywords for %d documents: %w", len(ids), err)
	}
	return nil
}

func (t *pgTx) InsertKeywords(ctx context.Context, keywords []pipeline.Keyword) error {
	stmt, err := t.tx.PrepareContext(ctx, pq.CopyIn("keywords",
		"document_id", "word", "weight", "location", "document_type",
	))
	if err != nil {
		return fmt.Errorf("preparing keyword copy: %w", err)
	}
	for _, kw := range keywords {
		if _, err := stmt.ExecContext(ctx,
			kw.DocumentID, kw.Word, kw.Weight, kw.Location, kw.DocumentType,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("buffering keyword row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing keyword copy: %w", err)
	}
	return stmt.Close()
}
