// Package pipeline implements the inverted-index write path. It turns raw
// document fields into normalized, stemmed, weighted, positioned keyword
// entries and commits them atomically into the shared keyword store, which
// also holds entries for other document types.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Document is the capability the pipeline needs from an indexable value.
// A field the document cannot resolve yields empty text, not an error.
type Document interface {
	ID() int64
	Field(selector string) string
}

// Term selects one document field and the scoring weight its keywords carry.
type Term struct {
	Field  string
	Weight int
}

// Keyword is one stored occurrence of a normalized word at a specific
// location in a specific document. Immutable once created.
type Keyword struct {
	Word         string
	DocumentID   int64
	Weight       int
	Location     int
	DocumentType int64
}

// Tx is the transactional window the commit protocol drives. All three
// operations happen inside one store transaction; any error rolls back the
// whole window.
type Tx interface {
	DeleteType(ctx context.Context, documentType int64) error
	DeleteDocuments(ctx context.Context, documentType int64, ids []int64) error
	InsertKeywords(ctx context.Context, keywords []Keyword) error
}

// Store is the shared keyword store boundary.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// TypeRegistry resolves a symbolic document type shortname to the opaque id
// that partitions the shared store.
type TypeRegistry interface {
	Resolve(ctx context.Context, shortname string) (int64, error)
}

// SpellChecker is the optional spell-assist collaborator. All calls are
// treated as fallible and best-effort; a failure never aborts indexing.
type SpellChecker interface {
	Check(ctx context.Context, word string) (bool, error)
	Suggest(ctx context.Context, word string) ([]string, error)
	AddToPersonalWordlist(ctx context.Context, word string) error
}

// Options configures a Pipeline at construction time.
type Options struct {
	// New wipes every store entry for this document type on the first
	// commit. One-shot: later commits on the same instance are incremental.
	New bool
	// Append adds keywords alongside existing entries and never deletes
	// prior entries for touched documents. Duplicates are possible by design.
	Append bool
	// Stemmer overrides the default Snowball English backend. Use
	// IdentityStemmer to disable stemming.
	Stemmer Stemmer
}

// Pipeline accumulates keyword entries for one document type and flushes
// them transactionally. Not safe for concurrent use; one instance per
// goroutine.
type Pipeline struct {
	documentType int64
	store        Store

	terms      []Term
	unindexed  map[string]struct{}
	maxWordLen int
	stemmer    Stemmer
	speller    SpellChecker
	appendMode bool
	newIndex   bool

	pending  []Keyword
	dirty    map[int64]struct{}
	recorded map[string]struct{}

	logger *slog.Logger
}

// New resolves the document type shortname through the registry and returns
// a pipeline bound to it. An unresolvable shortname is a construction error;
// missing types are never created implicitly.
func New(ctx context.Context, shortname string, store Store, registry TypeRegistry, opts Options) (*Pipeline, error) {
	documentType, err := registry.Resolve(ctx, shortname)
	if err != nil {
		return nil, fmt.Errorf("resolving document type %q: %w", shortname, err)
	}
	stemmer := opts.Stemmer
	if stemmer == nil {
		stemmer = SnowballStemmer{}
	}
	return &Pipeline{
		documentType: documentType,
		store:        store,
		unindexed:    make(map[string]struct{}),
		stemmer:      stemmer,
		appendMode:   opts.Append,
		newIndex:     opts.New,
		dirty:        make(map[int64]struct{}),
		recorded:     make(map[string]struct{}),
		logger:       slog.Default().With("component", "pipeline", "document_type", shortname),
	}, nil
}

// AddTerm registers a (field, weight) pair to index. Terms are fixed for the
// lifetime of the instance once indexing begins.
func (p *Pipeline) AddTerm(term Term) {
	p.terms = append(p.terms, term)
}

// AddUnindexedWords extends the stop-word set for this instance.
func (p *Pipeline) AddUnindexedWords(words ...string) {
	for _, w := range words {
		p.unindexed[w] = struct{}{}
	}
}

// SetMaxWordLength caps stored keywords at n leading characters. Zero means
// unbounded.
func (p *Pipeline) SetMaxWordLength(n int) {
	p.maxWordLen = n
}

// SetSpellChecker enables the spell-assist sink. Passing nil disables it.
func (p *Pipeline) SetSpellChecker(checker SpellChecker) {
	p.speller = checker
}

// DocumentType returns the resolved partition id this pipeline writes to.
func (p *Pipeline) DocumentType() int64 {
	return p.documentType
}

// Pending returns the number of buffered keyword entries.
func (p *Pipeline) Pending() int {
	return len(p.pending)
}

// Index reads every configured term field from doc, normalizes and tokenizes
// the text, and appends surviving keywords to the pending buffer. The
// location counter is 1-based per document, skips stop-words, and runs
// continuously across terms within this call. Index has no error path:
// missing fields yield empty text and spell-assist failures are logged, not
// raised.
func (p *Pipeline) Index(ctx context.Context, doc Document) {
	id := doc.ID()
	if !p.appendMode {
		p.dirty[id] = struct{}{}
	}
	location := 0
	for _, term := range p.terms {
		text := NormalizeKeywords(doc.Field(term.Field))
		for _, token := range strings.Split(text, " ") {
			if token == "" {
				continue
			}
			word := p.stemmer.Stem(token)
			// Membership is tested on the stemmed form. Stop lists are
			// usually authored unstemmed, so a list entry the stemmer
			// rewrites will not match; this is the documented behavior
			// and is preserved as-is.
			if _, stop := p.unindexed[word]; !stop {
				location++
				p.pending = append(p.pending, Keyword{
					Word:         p.truncate(word),
					DocumentID:   id,
					Weight:       term.Weight,
					Location:     location,
					DocumentType: p.documentType,
				})
			}
			if p.speller != nil {
				p.recordIfMisspelled(ctx, token)
			}
		}
	}
	p.logger.Debug("document indexed",
		"doc_id", id,
		"keywords", location,
		"pending", len(p.pending),
	)
}

// Commit flushes all accumulated state into the store inside one
// transaction: the one-shot whole-type wipe if requested at construction,
// deletes for dirty documents scoped to this document type, then the bulk
// keyword insert. On failure the transaction is rolled back and the
// accumulator is left intact so the caller may retry.
func (p *Pipeline) Commit(ctx context.Context) error {
	err := p.store.InTx(ctx, func(tx Tx) error {
		if p.newIndex {
			if err := tx.DeleteType(ctx, p.documentType); err != nil {
				return fmt.Errorf("clearing document type %d: %w", p.documentType, err)
			}
		}
		if len(p.dirty) > 0 {
			ids := make([]int64, 0, len(p.dirty))
			for id := range p.dirty {
				ids = append(ids, id)
			}
			if err := tx.DeleteDocuments(ctx, p.documentType, ids); err != nil {
				return fmt.Errorf("clearing %d superseded documents: %w", len(ids), err)
			}
		}
		if len(p.pending) > 0 {
			if err := tx.InsertKeywords(ctx, p.pending); err != nil {
				return fmt.Errorf("inserting %d keywords: %w", len(p.pending), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("committing keywords for document type %d: %w", p.documentType, err)
	}

	p.logger.Info("keywords committed",
		"keywords", len(p.pending),
		"cleared_documents", len(p.dirty),
		"full_rebuild", p.newIndex,
	)
	// The wipe persisted, so the one-shot flag is spent. A failed commit
	// keeps it set: the rollback undid the wipe too.
	p.newIndex = false
	p.pending = nil
	p.dirty = make(map[int64]struct{})
	return nil
}

func (p *Pipeline) truncate(word string) string {
	if p.maxWordLen <= 0 {
		return word
	}
	runes := []rune(word)
	if len(runes) <= p.maxWordLen {
		return word
	}
	return string(runes[:p.maxWordLen])
}
