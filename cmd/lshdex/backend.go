package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/lshdex/internal/config"
	"github.com/kailas-cloud/lshdex/internal/db"
	"github.com/kailas-cloud/lshdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/lshdex/internal/db/redis"
	datasetrepo "github.com/kailas-cloud/lshdex/internal/repository/dataset"
	documentrepo "github.com/kailas-cloud/lshdex/internal/repository/document"
	"github.com/kailas-cloud/lshdex/internal/repository/postgres"
	datasetuc "github.com/kailas-cloud/lshdex/internal/usecase/dataset"
	documentuc "github.com/kailas-cloud/lshdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/lshdex/internal/usecase/health"
	similarityuc "github.com/kailas-cloud/lshdex/internal/usecase/similarity"
)

// documentStore is what every backend provides for document records.
type documentStore interface {
	documentuc.Repository
	similarityuc.Repository
	datasetuc.DocumentStore
}

// backend bundles the repositories of the configured driver.
type backend struct {
	pinger    healthuc.DBPinger
	datasets  datasetuc.Repository
	documents documentStore
	checks    map[string]healthuc.Checker
	close     func()
}

// openBackend connects to the configured driver and waits until it answers.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	ready := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		return storeBackend(ctx, s, cfg.Storage.KeyPrefix, ready)
	case config.DriverMemory:
		return storeBackend(ctx, memory.NewStore(), cfg.Storage.KeyPrefix, ready)
	case config.DriverPostgres:
		conn, err := postgres.Open(postgres.Config{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		if err := conn.WaitForReady(ctx, ready); err != nil {
			conn.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		if err := conn.Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &backend{
			pinger:    conn,
			datasets:  conn.Datasets(),
			documents: conn.Documents(),
			checks:    map[string]healthuc.Checker{"schema": healthuc.CheckerFunc(conn.CheckSchema)},
			close:     conn.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func storeBackend(ctx context.Context, store db.Store, prefix string, ready time.Duration) (*backend, error) {
	if err := store.WaitForReady(ctx, ready); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return &backend{
		pinger:    store,
		datasets:  datasetrepo.New(store).WithKeyPrefix(prefix),
		documents: documentrepo.New(store).WithKeyPrefix(prefix),
		close:     store.Close,
	}, nil
}
