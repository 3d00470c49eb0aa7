// Command reindex rebuilds the shared keyword index for one document type
// from scratch: it wipes every entry for the type on the first commit
// ("new index" mode) and streams documents out of the source table in
// batches. Concurrent rebuilds of the same type race at the store level,
// so run at most one per document type at a time.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchcore/keywordindexer/internal/pipeline"
	"github.com/searchcore/keywordindexer/internal/registry"
	"github.com/searchcore/keywordindexer/internal/store"
	"github.com/searchcore/keywordindexer/pkg/config"
	"github.com/searchcore/keywordindexer/pkg/kafka"
	"github.com/searchcore/keywordindexer/pkg/logger"
	"github.com/searchcore/keywordindexer/pkg/postgres"
)

type sourceDocument struct {
	id     int64
	fields map[string]string
}

func (d sourceDocument) ID() int64 { return d.id }
func (d sourceDocument) Field(selector string) string { return d.fields[selector] }

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	shortname := flag.String("type", "", "document type shortname to rebuild")
	sourceTable := flag.String("source", "source_documents", "table holding (id, doc_type, fields) rows")
	batchSize := flag.Int("batch", 500, "documents per commit")
	notify := flag.Bool("notify", true, "publish a completion event to kafka")
	flag.Parse()

	if *shortname == "" {
		fmt.Fprintln(os.Stderr, "usage: reindex -type <shortname> [-config path] [-source table] [-batch n]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	typeCfg, ok := findType(cfg.Indexer.Types, *shortname)
	if !ok {
		slog.Error("document type not configured", "type", *shortname)
		os.Exit(1)
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(db, nil, 0)
	p, err := pipeline.New(ctx, *shortname, store.NewPostgres(db), reg, pipeline.Options{New: true})
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	p.SetMaxWordLength(cfg.Indexer.MaxWordLength)
	p.AddUnindexedWords(pipeline.DefaultUnindexedWords()...)
	for _, term := range typeCfg.Terms {
		p.AddTerm(pipeline.Term{Field: term.Field, Weight: term.Weight})
	}

	start := time.Now()
	total, err := rebuild(ctx, db, p, *shortname, *sourceTable, *batchSize)
	if err != nil {
		slog.Error("rebuild failed", "type", *shortname, "error", err)
		os.Exit(1)
	}
	slog.Info("rebuild complete",
		"type", *shortname,
		"documents", total,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if *notify {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ReindexComplete)
		defer producer.Close()
		err := producer.Publish(ctx, kafka.Event{
			Key: *shortname,
			Value: map[string]any{
				"document_type": *shortname,
				"documents":     total,
				"completed_at":  time.Now().UTC(),
			},
		})
		if err != nil {
			slog.Error("failed to publish completion event", "error", err)
		}
	}
}

// rebuild streams documents from the source table and commits in batches.
// The first commit carries the whole-type wipe, so the index transitions
// from "old state" to "first batch" atomically and grows from there.
func rebuild(ctx context.Context, db *postgres.Client, p *pipeline.Pipeline, shortname, table string, batchSize int) (int, error) {
	rows, err := db.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, fields FROM %s WHERE doc_type = $1 ORDER BY id`, table),
		shortname,
	)
	if err != nil {
		return 0, fmt.Errorf("querying source documents: %w", err)
	}
	defer rows.Close()

	total := 0
	inBatch := 0
	for rows.Next() {
		var (
			id        int64
			rawFields []byte
		)
		if err := rows.Scan(&id, &rawFields); err != nil {
			return total, fmt.Errorf("scanning source row: %w", err)
		}
		fields := make(map[string]string)
		if len(rawFields) > 0 {
			if err := json.Unmarshal(rawFields, &fields); err != nil {
				return total, fmt.Errorf("decoding fields for document %d: %w", id, err)
			}
		}
		p.Index(ctx, sourceDocument{id: id, fields: fields})
		total++
		inBatch++
		if inBatch >= batchSize {
			if err := p.Commit(ctx); err != nil {
				return total, err
			}
			inBatch = 0
		}
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("iterating source documents: %w", err)
	}
	if err := p.Commit(ctx); err != nil {
		return total, err
	}
	return total, nil
}

func findType(types []config.TypeConfig, shortname string) (config.TypeConfig, bool) {
	for _, tc := range types {
		if tc.Shortname == shortname {
			return tc, true
		}
	}
	return config.TypeConfig{}, false
}
