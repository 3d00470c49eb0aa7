package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/searchcore/keywordindexer/internal/pipeline"
	"github.com/searchcore/keywordindexer/internal/store"
	"github.com/searchcore/keywordindexer/pkg/config"
	apperrors "github.com/searchcore/keywordindexer/pkg/errors"
	"github.com/searchcore/keywordindexer/pkg/metrics"
)

// Prometheus collectors register globally, so the test binary builds them
// once.
var testMetrics = metrics.New()

type fakeRegistry map[string]int64

func (r fakeRegistry) Resolve(_ context.Context, shortname string) (int64, error) {
	id, ok := r[shortname]
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrTypeNotFound, "shortname %q", shortname)
	}
	return id, nil
}

func testConfig(batchSize int) config.IndexerConfig {
	return config.IndexerConfig{
		BatchSize:     batchSize,
		FlushInterval: time.Minute,
		Types: []config.TypeConfig{
			{
				Shortname: "articles",
				Terms: []config.TermConfig{
					{Field: "title", Weight: 10},
					{Field: "body", Weight: 1},
				},
			},
		},
	}
}

func newTestService(t *testing.T, st pipeline.Store, batchSize int) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), testConfig(batchSize), st,
		fakeRegistry{"articles": 1}, nil, testMetrics)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func encodeEvent(t *testing.T, event DocumentEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("encoding event: %v", err)
	}
	return data
}

func TestHandleMessageIndexesAndCommitsAtBatchSize(t *testing.T) {
	st := store.NewMemStore()
	svc := newTestService(t, st, 2)

	events := []DocumentEvent{
		{DocumentID: 1, DocumentType: "articles", Fields: map[string]string{"title": "first piece"}},
		{DocumentID: 2, DocumentType: "articles", Fields: map[string]string{"title": "second piece"}},
	}
	if err := svc.HandleMessage(context.Background(), nil, encodeEvent(t, events[0])); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if got := len(st.Rows()); got != 0 {
		t.Fatalf("committed before the batch filled: %d rows", got)
	}
	if err := svc.HandleMessage(context.Background(), nil, encodeEvent(t, events[1])); err != nil {
		t.Fatalf("second event: %v", err)
	}
	if got := len(st.Rows()); got != 4 {
		t.Fatalf("after batch commit store holds %d rows, want 4", got)
	}
}

func TestHandleMessageDropsUndecodableEvents(t *testing.T) {
	st := store.NewMemStore()
	svc := newTestService(t, st, 1)

	// A poison message must be dropped, not retried forever.
	if err := svc.HandleMessage(context.Background(), []byte("k"), []byte("{not json")); err != nil {
		t.Errorf("undecodable event propagated an error: %v", err)
	}
	if err := svc.HandleMessage(context.Background(), []byte("k"), encodeEvent(t, DocumentEvent{
		DocumentID: 0, DocumentType: "articles",
	})); err != nil {
		t.Errorf("event without document id propagated an error: %v", err)
	}
	if got := len(st.Rows()); got != 0 {
		t.Errorf("dropped events reached the store: %d rows", got)
	}
}

func TestHandleMessageDropsUnknownTypes(t *testing.T) {
	st := store.NewMemStore()
	svc := newTestService(t, st, 1)

	err := svc.HandleMessage(context.Background(), nil, encodeEvent(t, DocumentEvent{
		DocumentID: 1, DocumentType: "widgets", Fields: map[string]string{"title": "x"},
	}))
	if err != nil {
		t.Errorf("unknown type propagated an error: %v", err)
	}
	if got := len(st.Rows()); got != 0 {
		t.Errorf("unknown type reached the store: %d rows", got)
	}
}

func TestFlushAllCommitsPending(t *testing.T) {
	st := store.NewMemStore()
	svc := newTestService(t, st, 100)

	if err := svc.HandleMessage(context.Background(), nil, encodeEvent(t, DocumentEvent{
		DocumentID: 1, DocumentType: "articles", Fields: map[string]string{"title": "pending piece"},
	})); err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := svc.FlushAll(context.Background()); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if got := len(st.Rows()); got != 2 {
		t.Fatalf("after flush store holds %d rows, want 2", got)
	}
	// A second flush with nothing pending is a no-op.
	if err := svc.FlushAll(context.Background()); err != nil {
		t.Errorf("idle FlushAll: %v", err)
	}
}

func TestServiceRejectsUnregisteredConfiguredType(t *testing.T) {
	cfg := testConfig(1)
	cfg.Types = append(cfg.Types, config.TypeConfig{
		Shortname: "bogus",
		Terms:     []config.TermConfig{{Field: "title", Weight: 1}},
	})
	_, err := NewService(context.Background(), cfg, store.NewMemStore(),
		fakeRegistry{"articles": 1}, nil, testMetrics)
	if err == nil {
		t.Fatal("service construction succeeded with an unregistered type")
	}
}
