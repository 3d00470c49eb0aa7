package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "localhost" || cfg.Postgres.Port != 5432 {
		t.Errorf("unexpected postgres defaults: %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	if cfg.Indexer.BatchSize != 500 {
		t.Errorf("default batch size = %d, want 500", cfg.Indexer.BatchSize)
	}
	if cfg.Indexer.MaxWordLength != 60 {
		t.Errorf("default max word length = %d, want 60", cfg.Indexer.MaxWordLength)
	}
	if cfg.Indexer.Spell.Enabled {
		t.Error("spell assist enabled by default")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9090 {
		t.Errorf("unexpected metrics defaults: enabled=%v port=%d", cfg.Metrics.Enabled, cfg.Metrics.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
postgres:
  host: db.internal
  port: 6432
indexer:
  batchSize: 50
  flushInterval: 2s
  types:
    - shortname: articles
      terms:
        - field: title
          weight: 10
        - field: body
          weight: 1
    - shortname: comments
      append: true
      terms:
        - field: text
          weight: 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 6432 {
		t.Errorf("file values not applied: %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	if cfg.Postgres.Database != "keywordindex" {
		t.Errorf("default lost on partial override: database = %q", cfg.Postgres.Database)
	}
	if cfg.Indexer.BatchSize != 50 || cfg.Indexer.FlushInterval != 2*time.Second {
		t.Errorf("indexer values not applied: batch=%d flush=%s",
			cfg.Indexer.BatchSize, cfg.Indexer.FlushInterval)
	}
	if len(cfg.Indexer.Types) != 2 {
		t.Fatalf("loaded %d types, want 2", len(cfg.Indexer.Types))
	}
	articles := cfg.Indexer.Types[0]
	if articles.Shortname != "articles" || len(articles.Terms) != 2 || articles.Terms[0].Weight != 10 {
		t.Errorf("unexpected articles type: %+v", articles)
	}
	if !cfg.Indexer.Types[1].Append {
		t.Error("append flag not loaded for comments type")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KI_POSTGRES_HOST", "pg.override")
	t.Setenv("KI_POSTGRES_PORT", "7777")
	t.Setenv("KI_KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("KI_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "pg.override" || cfg.Postgres.Port != 7777 {
		t.Errorf("postgres env override not applied: %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b2:9092" {
		t.Errorf("broker env override not applied: %v", cfg.Kafka.Brokers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging env override not applied: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadTypes(t *testing.T) {
	cases := []struct {
		name  string
		types []TypeConfig
	}{
		{"empty shortname", []TypeConfig{
			{Shortname: "", Terms: []TermConfig{{Field: "title", Weight: 1}}},
		}},
		{"duplicate shortname", []TypeConfig{
			{Shortname: "articles", Terms: []TermConfig{{Field: "title", Weight: 1}}},
			{Shortname: "articles", Terms: []TermConfig{{Field: "body", Weight: 1}}},
		}},
		{"no terms", []TypeConfig{
			{Shortname: "articles"},
		}},
		{"empty field", []TypeConfig{
			{Shortname: "articles", Terms: []TermConfig{{Field: "", Weight: 1}}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Indexer.Types = tc.types
			if err := cfg.validate(); err == nil {
				t.Errorf("validate accepted %s", tc.name)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "h", Port: 5432, User: "u", Password: "p",
		Database: "d", SSLMode: "disable",
	}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
