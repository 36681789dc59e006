package viewcache

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	_ "modernc.org/sqlite" // register sqlite driver
)

// Dialect holds the statements that differ between SQL engines.
type Dialect struct {
	Driver string
	create string
	get    string
	put    string
}

var (
	SQLite = Dialect{
		Driver: "sqlite",
		create: `CREATE TABLE IF NOT EXISTS %s (cache_key TEXT PRIMARY KEY, payload BLOB NOT NULL, updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
		get:    `SELECT payload FROM %s WHERE cache_key = ? LIMIT 1`,
		put:    `INSERT INTO %s (cache_key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
	}
	Postgres = Dialect{
		Driver: "pgx",
		create: `CREATE TABLE IF NOT EXISTS %s (cache_key TEXT PRIMARY KEY, payload BYTEA NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		get:    `SELECT payload FROM %s WHERE cache_key = $1 LIMIT 1`,
		put:    `INSERT INTO %s (cache_key, payload, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
	}
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps entries in a single key/payload table.
type SQLStore struct {
	conn    sqlx.SqlConn
	dialect Dialect
	table   string
}

type payloadRow struct {
	Payload []byte `db:"payload"`
}

// NewSQLStore wraps conn. Call EnsureSchema before first use on a fresh database.
func NewSQLStore(conn sqlx.SqlConn, dialect Dialect, table string) (*SQLStore, error) {
	if conn == nil {
		return nil, errors.New("viewcache: sql connection is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("viewcache: invalid table name %q", table)
	}
	return &SQLStore{conn: conn, dialect: dialect, table: table}, nil
}

// EnsureSchema creates the cache table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.ExecCtx(ctx, fmt.Sprintf(s.dialect.create, s.table))
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row payloadRow
	err := s.conn.QueryRowCtx(ctx, &row, fmt.Sprintf(s.dialect.get, s.table), key)
	switch {
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return row.Payload, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.conn.ExecCtx(ctx, fmt.Sprintf(s.dialect.put, s.table), key, value)
	return err
}
