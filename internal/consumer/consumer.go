// Package consumer reads document events from Kafka and drives one indexing
// pipeline per configured document type, committing accumulated keywords on
// batch boundaries and on a periodic flush interval.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/searchcore/keywordindexer/internal/pipeline"
	"github.com/searchcore/keywordindexer/pkg/config"
	apperrors "github.com/searchcore/keywordindexer/pkg/errors"
	"github.com/searchcore/keywordindexer/pkg/kafka"
	"github.com/searchcore/keywordindexer/pkg/metrics"
	"github.com/searchcore/keywordindexer/pkg/resilience"
)

// DocumentEvent is the Kafka message payload describing one document to
// (re)index. Fields carries the raw field texts keyed by selector.
type DocumentEvent struct {
	DocumentID   int64             `json:"document_id"`
	DocumentType string            `json:"document_type"`
	Fields       map[string]string `json:"fields"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// eventDocument adapts a DocumentEvent to the pipeline's Document
// capability. A missing field resolves to empty text.
type eventDocument struct {
	id     int64
	fields map[string]string
}

func (d eventDocument) ID() int64 { return d.id }
func (d eventDocument) Field(selector string) string { return d.fields[selector] }

// Service owns the per-type pipelines and the commit policy. Pipelines are
// not safe for concurrent use, so all access is serialized through mu: the
// consume loop and the flush loop never touch a pipeline at the same time.
type Service struct {
	cfg     config.IndexerConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	pipelines map[string]*pipeline.Pipeline
	docsSince map[string]int
}

// NewService constructs one pipeline per configured document type. Every
// shortname must already be registered; an unknown one fails construction.
func NewService(
	ctx context.Context,
	cfg config.IndexerConfig,
	st pipeline.Store,
	reg pipeline.TypeRegistry,
	checker pipeline.SpellChecker,
	m *metrics.Metrics,
) (*Service, error) {
	s := &Service{
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "index-consumer"),
		pipelines: make(map[string]*pipeline.Pipeline, len(cfg.Types)),
		docsSince: make(map[string]int, len(cfg.Types)),
	}
	for _, tc := range cfg.Types {
		p, err := pipeline.New(ctx, tc.Shortname, st, reg, pipeline.Options{Append: tc.Append})
		if err != nil {
			return nil, fmt.Errorf("building pipeline for type %q: %w", tc.Shortname, err)
		}
		p.SetMaxWordLength(cfg.MaxWordLength)
		p.AddUnindexedWords(pipeline.DefaultUnindexedWords()...)
		for _, term := range tc.Terms {
			p.AddTerm(pipeline.Term{Field: term.Field, Weight: term.Weight})
		}
		if checker != nil && cfg.Spell.Enabled {
			p.SetSpellChecker(checker)
		}
		s.pipelines[tc.Shortname] = p
	}
	return s, nil
}

// HandleMessage is the Kafka MessageHandler. Undecodable events and unknown
// document types are dropped (logged and counted), never retried; indexing
// itself has no error path, so only a failed batch commit propagates and
// holds back the Kafka offset.
func (s *Service) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[DocumentEvent](value)
	if err != nil {
		s.metrics.EventsRejectedTotal.Inc()
		s.logger.Error("failed to decode document event", "key", string(key), "error", err)
		return nil
	}
	if event.DocumentID == 0 || event.DocumentType == "" {
		s.metrics.EventsRejectedTotal.Inc()
		s.logger.Error("document event missing id or type",
			"error", apperrors.Newf(apperrors.ErrInvalidEvent, "key %s", key))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[event.DocumentType]
	if !ok {
		s.metrics.EventsRejectedTotal.Inc()
		s.logger.Error("no pipeline for document type", "document_type", event.DocumentType)
		return nil
	}

	p.Index(ctx, eventDocument{id: event.DocumentID, fields: event.Fields})
	s.docsSince[event.DocumentType]++
	s.metrics.DocumentsIndexedTotal.WithLabelValues(event.DocumentType).Inc()
	s.metrics.PendingKeywords.WithLabelValues(event.DocumentType).Set(float64(p.Pending()))

	if s.docsSince[event.DocumentType] >= s.cfg.BatchSize {
		if err := s.commitLocked(ctx, event.DocumentType); err != nil {
			return err
		}
	}
	return nil
}

// StartFlushLoop periodically commits every pipeline with pending keywords
// until ctx is cancelled, then performs a final flush.
func (s *Service) StartFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("flush loop stopping, committing remaining keywords")
				if err := s.FlushAll(context.Background()); err != nil {
					s.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.FlushAll(ctx); err != nil {
					s.logger.Error("periodic flush failed", "error", err)
				}
			}
		}
	}()
}

// FlushAll commits every pipeline that has pending keywords or documents
// since its last commit.
func (s *Service) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for shortname := range s.pipelines {
		if s.docsSince[shortname] == 0 {
			continue
		}
		if err := s.commitLocked(ctx, shortname); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// commitLocked commits one pipeline with retry. Callers hold s.mu. The
// accumulator survives a failed commit, so every retry replays the full
// batch.
func (s *Service) commitLocked(ctx context.Context, shortname string) error {
	p := s.pipelines[shortname]
	keywords := p.Pending()
	start := time.Now()
	err := resilience.Retry(ctx, "commit-"+shortname, resilience.RetryConfig{}, func() error {
		return p.Commit(ctx)
	})
	s.metrics.CommitDuration.WithLabelValues(shortname).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.CommitsTotal.WithLabelValues(shortname, "error").Inc()
		return fmt.Errorf("committing batch for type %q: %w", shortname, err)
	}
	s.metrics.CommitsTotal.WithLabelValues(shortname, "ok").Inc()
	s.metrics.KeywordsCommittedTotal.WithLabelValues(shortname).Add(float64(keywords))
	s.metrics.PendingKeywords.WithLabelValues(shortname).Set(0)
	s.logger.Info("batch committed",
		"document_type", shortname,
		"documents", s.docsSince[shortname],
		"keywords", keywords,
	)
	s.docsSince[shortname] = 0
	return nil
}
