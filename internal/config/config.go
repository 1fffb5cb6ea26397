package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/lshdex/internal/lsh"
	"github.com/kailas-cloud/lshdex/internal/shingle"
)

// Supported database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var drivers = []string{DriverValkey, DriverRedis, DriverMemory, DriverPostgres}

// Config holds the lshdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	LSH        LSHConfig        `yaml:"lsh"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Cache      CacheConfig      `yaml:"cache"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory, postgres (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	DSN              string   `yaml:"dsn"`
	MaxOpenConns     int      `yaml:"max_open_conns"`
}

// LSHConfig holds the hashing defaults for new datasets.
type LSHConfig struct {
	Rows        int    `yaml:"rows"`
	Bands       int    `yaml:"bands"`
	ShingleType string `yaml:"shingle_type"`
	Modulo      uint64 `yaml:"modulo"`
	BitWidth    uint   `yaml:"bit_width"`
	KeyAttempts int    `yaml:"key_attempts"`
}

// SimilarityConfig holds neighbor query settings.
type SimilarityConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
	DefaultLimit   int `yaml:"default_limit"` // 0 = unlimited
}

// CacheConfig holds the dataset config cache settings.
type CacheConfig struct {
	DatasetsSize   int `yaml:"datasets_size"`
	DatasetsTTLSec int `yaml:"datasets_ttl_sec"`
}

// IndexConfig holds ingest and pagination settings.
type IndexConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	MaxBatchSize    int `yaml:"max_batch_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.LSH.Rows <= 0 {
		c.LSH.Rows = 5
	}
	if c.LSH.Bands <= 0 {
		c.LSH.Bands = 20
	}
	if c.LSH.ShingleType == "" {
		c.LSH.ShingleType = string(shingle.C4)
	}
	if c.LSH.Modulo == 0 {
		c.LSH.Modulo = 1<<31 - 1
	}
	if c.LSH.BitWidth == 0 {
		c.LSH.BitWidth = lsh.MaxBitWidth
	}
	if c.LSH.KeyAttempts <= 0 {
		c.LSH.KeyAttempts = 4
	}
	if c.Similarity.MaxConcurrency <= 0 {
		c.Similarity.MaxConcurrency = 8
	}
	if c.Cache.DatasetsSize <= 0 {
		c.Cache.DatasetsSize = 256
	}
	if c.Cache.DatasetsTTLSec <= 0 {
		c.Cache.DatasetsTTLSec = 300
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 100
	}
	if c.Index.MaxPageSize <= 0 {
		c.Index.MaxPageSize = 1000
	}
	if c.Index.MaxBatchSize <= 0 {
		c.Index.MaxBatchSize = 100
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "lshdex:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !slices.Contains(drivers, c.Database.Driver) {
		return fmt.Errorf("database.driver must be one of %s, got %q", strings.Join(drivers, ", "), c.Database.Driver)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %s", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver postgres")
		}
	}
	if _, err := shingle.Parse(c.LSH.ShingleType); err != nil {
		return fmt.Errorf("lsh.shingle_type: %w", err)
	}
	if _, err := lsh.NewBanding(c.LSH.Rows, c.LSH.Bands, c.LSH.BitWidth); err != nil {
		return fmt.Errorf("lsh: %w", err)
	}
	if c.LSH.Modulo > lsh.MaxModulo(c.LSH.BitWidth) {
		return fmt.Errorf("lsh.modulo %d exceeds %d at bit width %d",
			c.LSH.Modulo, lsh.MaxModulo(c.LSH.BitWidth), c.LSH.BitWidth)
	}
	if c.Similarity.DefaultLimit < 0 {
		return fmt.Errorf("similarity.default_limit must be >= 0, got %d", c.Similarity.DefaultLimit)
	}
	if c.Index.DefaultPageSize > c.Index.MaxPageSize {
		return fmt.Errorf(
			"index.default_page_size (%d) exceeds index.max_page_size (%d)",
			c.Index.DefaultPageSize, c.Index.MaxPageSize,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
