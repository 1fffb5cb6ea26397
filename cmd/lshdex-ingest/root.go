package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lshdex/internal/config"
	logpkg "github.com/kailas-cloud/lshdex/internal/logger"
	"github.com/kailas-cloud/lshdex/internal/version"
	lshdex "github.com/kailas-cloud/lshdex/pkg/sdk"
)

// app holds the global flags and the state shared by every subcommand.
type app struct {
	env        string
	configPath string
	driver     string
	addr       string
	password   string
	dsn        string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lshdex-ingest",
		Short: "Bulk-load and query an lshdex near-duplicate index",
		Long: `lshdex-ingest creates datasets, ingests files or JSONL records into them
and queries near-duplicate neighbors, talking to the configured store directly.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.env, "env", config.GetEnv(), "Config environment (config/{env}.yaml)")
	pf.StringVarP(&a.configPath, "config", "c", "", "Explicit config file path")
	pf.StringVar(&a.driver, "driver", "", "Override database driver (valkey, redis, memory, postgres)")
	pf.StringVar(&a.addr, "addr", "", "Override Redis/Valkey address")
	pf.StringVar(&a.password, "password", "", "Override Redis/Valkey password")
	pf.StringVar(&a.dsn, "dsn", "", "Override PostgreSQL DSN")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newIngestCmd(a),
		newNeighborsCmd(a),
		newPurgeCmd(a),
		newDatasetsCmd(a),
	)
	return root
}

// setup loads config and applies flag overrides. A missing config file falls back to defaults.
func (a *app) setup() error {
	var (
		cfg config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load(a.env)
	}
	switch {
	case err == nil:
	case a.configPath == "" && errors.Is(err, fs.ErrNotExist):
		cfg = config.Config{}
		cfg.ApplyDefaults()
	default:
		return err
	}

	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.addr != "" {
		cfg.Database.Addrs = []string{a.addr}
	}
	if a.password != "" {
		cfg.Database.Password = a.password
	}
	if a.dsn != "" {
		cfg.Database.DSN = a.dsn
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(a.env, "ingest", level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// client connects the SDK to the configured store.
func (a *app) client(ctx context.Context) (*lshdex.Client, error) {
	opts, err := clientOptions(a.cfg)
	if err != nil {
		return nil, err
	}
	c, err := lshdex.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("connected", zap.String("driver", a.cfg.Database.Driver))
	return c, nil
}

// clientOptions maps the service config onto SDK options.
func clientOptions(cfg config.Config) ([]lshdex.Option, error) {
	var opts []lshdex.Option
	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		if len(cfg.Database.Addrs) == 0 {
			return nil, fmt.Errorf("database.addrs is required for %s", cfg.Database.Driver)
		}
		if cfg.Database.Driver == config.DriverValkey {
			opts = append(opts, lshdex.WithValkey(cfg.Database.Addrs[0], cfg.Database.Password))
		} else {
			opts = append(opts, lshdex.WithRedis(cfg.Database.Addrs[0], cfg.Database.Password))
		}
	case config.DriverMemory:
		opts = append(opts, lshdex.WithMemory())
	case config.DriverPostgres:
		opts = append(opts,
			lshdex.WithPostgres(cfg.Database.DSN),
			lshdex.WithPostgresPool(cfg.Database.MaxOpenConns),
		)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	return append(opts,
		lshdex.WithKeyPrefix(cfg.Storage.KeyPrefix),
		lshdex.WithLSHDefaults(lshdex.LSHDefaults{
			Rows:        cfg.LSH.Rows,
			Bands:       cfg.LSH.Bands,
			ShingleType: lshdex.ShingleType(cfg.LSH.ShingleType),
			Modulo:      cfg.LSH.Modulo,
			BitWidth:    cfg.LSH.BitWidth,
		}),
		lshdex.WithKeyAttempts(cfg.LSH.KeyAttempts),
		lshdex.WithMaxBatchSize(cfg.Index.MaxBatchSize),
		lshdex.WithSimilarityConcurrency(cfg.Similarity.MaxConcurrency),
	), nil
}
