package store

import (
	"context"
	"slices"
	"sync"

	"github.com/searchcore/keywordindexer/internal/pipeline"
)

// MemStore is an in-memory keyword store with transactional semantics: fn
// sees its own staged mutations, and an error restores the pre-transaction
// state exactly. Used by tests and local development; the fault-injection
// hooks let tests fail individual transaction steps.
type MemStore struct {
	mu   sync.Mutex
	rows []pipeline.Keyword

	// Fault injection. When non-nil, the corresponding Tx method returns
	// the error after applying its mutation, so rollback is observable.
	FailDeleteType      error
	FailDeleteDocuments error
	FailInsert          error
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// InTx applies fn against the live row set and restores a snapshot if fn
// fails.
func (m *MemStore) InTx(ctx context.Context, fn func(tx pipeline.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := slices.Clone(m.rows)
	if err := fn(&memTx{store: m}); err != nil {
		m.rows = snapshot
		return err
	}
	return nil
}

// Rows returns a copy of all stored keyword rows.
func (m *MemStore) Rows() []pipeline.Keyword {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}

// CountFor returns the number of rows for one (document type, document id)
// pair.
func (m *MemStore) CountFor(documentType, documentID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.DocumentType == documentType && row.DocumentID == documentID {
			n++
		}
	}
	return n
}

type memTx struct {
	store *MemStore
}

func (t *memTx) DeleteType(_ context.Context, documentType int64) error {
	t.store.rows = slices.DeleteFunc(t.store.rows, func(kw pipeline.Keyword) bool {
		return kw.DocumentType == documentType
	})
	return t.store.FailDeleteType
}

func (t *memTx) DeleteDocuments(_ context.Context, documentType int64, ids []int64) error {
	t.store.rows = slices.DeleteFunc(t.store.rows, func(kw pipeline.Keyword) bool {
		return kw.DocumentType == documentType && slices.Contains(ids, kw.DocumentID)
	})
	return t.store.FailDeleteDocuments
}

func (t *memTx) InsertKeywords(_ context.Context, keywords []pipeline.Keyword) error {
	if t.store.FailInsert != nil {
		return t.store.FailInsert
	}
	t.store.rows = append(t.store.rows, keywords...)
	return nil
}
