package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/i474232898/address-forecast/internal/weather"
)

// Dialect names a supported SQL backend. The value doubles as the
// database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var ErrUnknownDialect = errors.New("unknown cache dialect")

const (
	schemaStmt = `CREATE TABLE IF NOT EXISTS forecast_cache (key TEXT PRIMARY KEY, value TEXT NOT NULL, expires_at BIGINT NOT NULL)`
	readStmt   = `SELECT value FROM forecast_cache WHERE key = ? AND expires_at > ?`
	writeStmt  = `INSERT INTO forecast_cache (key, value, expires_at) VALUES (?, ?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	sweepStmt  = `DELETE FROM forecast_cache WHERE expires_at <= ?`
)

// SQLCache implements weather.Cache on a forecast_cache table. Values are
// stored as JSON and expiry as unix milliseconds.
type SQLCache struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger

	now func() time.Time
}

// OpenSQLCache opens dsn with the driver for dialect, checks the connection
// and creates the table if it is missing.
func OpenSQLCache(ctx context.Context, dialect Dialect, dsn string) (*SQLCache, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening cache database: %w", err)
	}
	if dialect == DialectSQLite {
		// sqlite serialises writers anyway
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxIdleTime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to cache database: %w", err)
	}

	c := NewSQLCache(db, dialect)
	if err := c.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLCache wraps an already opened database.
func NewSQLCache(db *sql.DB, dialect Dialect) *SQLCache {
	return &SQLCache{
		db:      db,
		dialect: dialect,
		log:     slog.Default().With("service", "sql_cache", "dialect", string(dialect)),
		now:     time.Now,
	}
}

func (c *SQLCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schemaStmt); err != nil {
		return fmt.Errorf("error creating forecast_cache table: %w", err)
	}
	return nil
}

func (c *SQLCache) Read(ctx context.Context, key string) (weather.Result, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, c.rebind(readStmt), key, c.now().UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Result{}, false, nil
	}
	if err != nil {
		return weather.Result{}, false, fmt.Errorf("cache read %q: %w", key, err)
	}

	var result weather.Result
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		// a row we cannot decode is as good as absent
		c.log.WarnContext(ctx, "discarding undecodable cache row", "event", "cache_decode_failed", "cache_key", key, "detail", err.Error())
		return weather.Result{}, false, nil
	}
	return result, true, nil
}

func (c *SQLCache) Write(ctx context.Context, key string, result weather.Result, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}

	expiresAt := c.now().Add(ttl).UnixMilli()
	if _, err := c.db.ExecContext(ctx, c.rebind(writeStmt), key, string(value), expiresAt); err != nil {
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	return nil
}

// Sweep deletes expired rows and reports how many were removed.
func (c *SQLCache) Sweep(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, c.rebind(sweepStmt), c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	return int(n), nil
}

func (c *SQLCache) Close() error {
	return c.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (c *SQLCache) rebind(query string) string {
	if c.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
