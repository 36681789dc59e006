package viewcache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	DefaultTable = "view_cache"
)

// Config selects and tunes the cache backend.
type Config struct {
	Backend    string        `json:",default=memory,options=memory|sqlite|redis|postgres"`
	TTL        time.Duration `json:",default=1h"`
	SQLitePath string        `json:",optional"`
	Table      string        `json:",default=view_cache"`
}

// Deps carries the shared connections a backend may need.
type Deps struct {
	Redis           *redis.Redis
	PostgresDSN     string
	PostgresMaxOpen int
	PostgresMaxIdle int
}

// NewStore builds the configured backend, creating SQL tables when needed.
func NewStore(ctx context.Context, cfg Config, deps Deps) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("viewcache: redis backend requires Redis config")
		}
		return NewRedisStore(deps.Redis), nil
	case BackendSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("viewcache: sqlite backend requires SQLitePath")
		}
		return newSQL(ctx, sqlx.NewSqlConn(SQLite.Driver, cfg.SQLitePath), SQLite, cfg.Table)
	case BackendPostgres:
		if strings.TrimSpace(deps.PostgresDSN) == "" {
			return nil, fmt.Errorf("viewcache: postgres backend requires Postgres.DSN")
		}
		db, err := sql.Open(Postgres.Driver, deps.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("viewcache: open postgres: %w", err)
		}
		if deps.PostgresMaxOpen > 0 {
			db.SetMaxOpenConns(deps.PostgresMaxOpen)
		}
		if deps.PostgresMaxIdle > 0 {
			db.SetMaxIdleConns(deps.PostgresMaxIdle)
		}
		return newSQL(ctx, sqlx.NewSqlConnFromDB(db), Postgres, cfg.Table)
	default:
		return nil, fmt.Errorf("viewcache: unknown backend %q", cfg.Backend)
	}
}

func newSQL(ctx context.Context, conn sqlx.SqlConn, dialect Dialect, table string) (Store, error) {
	store, err := NewSQLStore(conn, dialect, table)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("viewcache: ensure %s schema: %w", dialect.Driver, err)
	}
	return store, nil
}
