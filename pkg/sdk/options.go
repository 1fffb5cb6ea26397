package lshdex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// SeedSource produces dataset seeds. *rand.Rand and the math/rand/v2 sources satisfy it.
type SeedSource interface {
	Uint64() uint64
}

type clientConfig struct {
	driver       string // valkey, redis, memory or postgres
	addrs        []string
	password     string
	dsn          string
	maxOpenConns int
	keyPrefix    string

	readinessTimeout time.Duration

	lsh         LSHDefaults
	keyAttempts int
	seeds       SeedSource

	maxBatchSize          int
	similarityConcurrency int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps the whole index in process memory. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
	})
}

// WithPostgres configures the client to store the index in PostgreSQL.
// The schema is created on connect.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverPostgres
		c.dsn = dsn
	})
}

// WithPostgresPool caps the PostgreSQL connection pool.
func WithPostgresPool(maxOpenConns int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxOpenConns = maxOpenConns
	})
}

// WithKeyPrefix namespaces every Redis/Valkey key. Default: "lshdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithReadinessTimeout bounds the initial connectivity check. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLSHDefaults sets the hashing parameters used by new datasets.
// Zero fields keep the built-in defaults (5 rows, 20 bands, c4 shingles,
// modulo 2^31-1, 64-bit buckets).
func WithLSHDefaults(d LSHDefaults) Option {
	return optionFunc(func(c *clientConfig) {
		c.lsh = d
	})
}

// WithKeyAttempts sets how many candidate keys dataset creation tries. Default: 4.
func WithKeyAttempts(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyAttempts = n
	})
}

// WithSeedSource replaces the cryptographically seeded generator used for
// dataset seeds. Useful for reproducible datasets in tests.
func WithSeedSource(src SeedSource) Option {
	return optionFunc(func(c *clientConfig) {
		c.seeds = src
	})
}

// WithMaxBatchSize sets the maximum number of items per batch operation.
// Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithSimilarityConcurrency bounds parallel bucket lookups per neighbor query.
// Default: 8.
func WithSimilarityConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.similarityConcurrency = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
