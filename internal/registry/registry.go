// Package registry resolves document type shortnames to the integer ids
// that partition the shared keyword store. Types live in the document_types
// table in PostgreSQL; resolution is read-through cached in Redis and
// deduplicated with singleflight so a burst of pipeline constructions hits
// the database once.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/searchcore/keywordindexer/pkg/errors"
	"github.com/searchcore/keywordindexer/pkg/postgres"
	pkgredis "github.com/searchcore/keywordindexer/pkg/redis"
)

const cacheKeyPrefix = "doctype:"

// Registry is the PostgreSQL-backed document type registry.
type Registry struct {
	db     *postgres.Client
	cache  *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Registry. cache may be nil to disable the Redis layer.
func New(db *postgres.Client, cache *pkgredis.Client, ttl time.Duration) *Registry {
	return &Registry{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: slog.Default().With("component", "type-registry"),
	}
}

// Resolve returns the type id for shortname, or ErrTypeNotFound. It never
// creates missing types.
func (r *Registry) Resolve(ctx context.Context, shortname string) (int64, error) {
	if id, ok := r.cachedID(ctx, shortname); ok {
		return id, nil
	}
	v, err, _ := r.group.Do(shortname, func() (any, error) {
		var id int64
		err := r.db.DB.QueryRowContext(ctx,
			`SELECT id FROM document_types WHERE shortname = $1`,
			shortname,
		).Scan(&id)
		if err == sql.ErrNoRows {
			return int64(0), apperrors.Newf(apperrors.ErrTypeNotFound, "shortname %q", shortname)
		}
		if err != nil {
			return int64(0), fmt.Errorf("querying document type %q: %w", shortname, err)
		}
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	id := v.(int64)
	r.cacheID(ctx, shortname, id)
	return id, nil
}

// Register inserts a shortname if absent and returns its id either way.
// Registration is always explicit; Resolve never falls back to it.
func (r *Registry) Register(ctx context.Context, shortname string) (int64, error) {
	var id int64
	err := r.db.DB.QueryRowContext(ctx,
		`INSERT INTO document_types (shortname) VALUES ($1)
		 ON CONFLICT (shortname) DO UPDATE SET shortname = EXCLUDED.shortname
		 RETURNING id`,
		shortname,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("registering document type %q: %w", shortname, err)
	}
	r.cacheID(ctx, shortname, id)
	r.logger.Info("document type registered", "shortname", shortname, "id", id)
	return id, nil
}

func (r *Registry) cachedID(ctx context.Context, shortname string) (int64, bool) {
	if r.cache == nil {
		return 0, false
	}
	data, err := r.cache.Get(ctx, cacheKeyPrefix+shortname)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			r.logger.Error("registry cache get failed", "shortname", shortname, "error", err)
		}
		return 0, false
	}
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		r.logger.Error("registry cache holds bad id", "shortname", shortname, "value", data)
		return 0, false
	}
	return id, true
}

func (r *Registry) cacheID(ctx context.Context, shortname string, id int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKeyPrefix+shortname, strconv.FormatInt(id, 10), r.ttl); err != nil {
		r.logger.Error("registry cache set failed", "shortname", shortname, "error", err)
	}
}
