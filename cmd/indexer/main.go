package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchcore/keywordindexer/internal/consumer"
	"github.com/searchcore/keywordindexer/internal/pipeline"
	"github.com/searchcore/keywordindexer/internal/registry"
	"github.com/searchcore/keywordindexer/internal/spell"
	"github.com/searchcore/keywordindexer/internal/store"
	"github.com/searchcore/keywordindexer/pkg/config"
	"github.com/searchcore/keywordindexer/pkg/health"
	"github.com/searchcore/keywordindexer/pkg/kafka"
	"github.com/searchcore/keywordindexer/pkg/logger"
	"github.com/searchcore/keywordindexer/pkg/metrics"
	"github.com/searchcore/keywordindexer/pkg/postgres"
	pkgredis "github.com/searchcore/keywordindexer/pkg/redis"
	"github.com/searchcore/keywordindexer/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service", "document_types", len(cfg.Indexer.Types))

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis backs the registry cache and the personal wordlist; the service
	// runs without it, just slower and with a process-local wordlist.
	cache, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, continuing without cache", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	reg := registry.New(db, cache, cfg.Redis.CacheTTL)
	keywords := store.NewPostgres(db)

	checker, err := buildSpellChecker(cfg.Indexer.Spell, cache, m)
	if err != nil {
		slog.Error("failed to build spell checker", "error", err)
		os.Exit(1)
	}

	svc, err := consumer.NewService(ctx, cfg.Indexer, keywords, reg, checker, m)
	if err != nil {
		slog.Error("failed to build index consumer", "error", err)
		os.Exit(1)
	}
	svc.StartFlushLoop(ctx)

	checks := health.NewChecker()
	checks.Register("postgres", func(ctx context.Context) error {
		return db.DB.PingContext(ctx)
	})
	if cache != nil {
		checks.Register("redis", func(ctx context.Context) error {
			return cache.Ping(ctx)
		})
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, checks)
	}

	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentEvents, svc.HandleMessage)
	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentEvents,
		"group", cfg.Kafka.ConsumerGroup,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return kafkaConsumer.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("committing remaining keywords before shutdown")
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.FlushAll(flushCtx); err != nil {
		slog.Error("final flush failed", "error", err)
	}
	if shutdownMetrics != nil {
		if err := shutdownMetrics(flushCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}
	slog.Info("indexer service stopped")
}

// buildSpellChecker loads the configured dictionary and wraps the checker in
// a circuit breaker. Returns nil when spell-assist is disabled.
func buildSpellChecker(cfg config.SpellConfig, cache *pkgredis.Client, m *metrics.Metrics) (pipeline.SpellChecker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	words, err := readWordFile(cfg.DictionaryFile)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary %s: %w", cfg.DictionaryFile, err)
	}
	checker, err := spell.NewDictChecker(words, cache, cfg.Wordlist)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewBreaker("spell-check", resilience.BreakerConfig{})
	return spell.Guard(checker, breaker, m), nil
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if word := scanner.Text(); word != "" {
			words = append(words, word)
		}
	}
	return words, scanner.Err()
}
