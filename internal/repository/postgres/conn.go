// Package postgres stores datasets, document records and bucket postings in PostgreSQL.
// Unsigned 64-bit values are bit-cast to BIGINT on the way in and back on the way out.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Config holds connection parameters.
type Config struct {
	DSN          string
	MaxOpenConns int
}

// Conn owns the connection pool and hands out repositories bound to it.
type Conn struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL. The pool is created lazily; use WaitForReady to block
// until the server answers.
func Open(cfg Config) (*Conn, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	return &Conn{db: db}, nil
}

// NewConn wraps an existing pool.
func NewConn(db *sqlx.DB) *Conn {
	return &Conn{db: db}
}

// Ping checks connectivity.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (c *Conn) Close() {
	_ = c.db.Close()
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (c *Conn) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Migrate creates the tables if they do not exist.
func (c *Conn) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// CheckSchema verifies that the index tables are present and readable.
func (c *Conn) CheckSchema(ctx context.Context) error {
	for _, table := range []string{"datasets", "documents", "document_buckets"} {
		if _, err := c.db.ExecContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1"); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
	}
	return nil
}

// Datasets returns the dataset repository.
func (c *Conn) Datasets() *DatasetRepo { return &DatasetRepo{db: c.db} }

// Documents returns the document repository.
func (c *Conn) Documents() *DocumentRepo { return &DocumentRepo{db: c.db} }

func isConflict(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == uniqueViolation
	}
	return false
}

func toInt64s(vs []uint64) pq.Int64Array {
	if vs == nil {
		return nil
	}
	out := make(pq.Int64Array, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

func toUint64s(vs pq.Int64Array) []uint64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = uint64(v)
	}
	return out
}
