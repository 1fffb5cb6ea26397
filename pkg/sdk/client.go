package lshdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/lshdex/internal/db"
	"github.com/kailas-cloud/lshdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/lshdex/internal/db/redis"
	dombatch "github.com/kailas-cloud/lshdex/internal/domain/batch"
	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
	"github.com/kailas-cloud/lshdex/internal/domain/neighbor"
	datasetrepo "github.com/kailas-cloud/lshdex/internal/repository/dataset"
	documentrepo "github.com/kailas-cloud/lshdex/internal/repository/document"
	"github.com/kailas-cloud/lshdex/internal/repository/postgres"
	"github.com/kailas-cloud/lshdex/internal/shingle"
	batchuc "github.com/kailas-cloud/lshdex/internal/usecase/batch"
	datasetuc "github.com/kailas-cloud/lshdex/internal/usecase/dataset"
	documentuc "github.com/kailas-cloud/lshdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/lshdex/internal/usecase/health"
	similarityuc "github.com/kailas-cloud/lshdex/internal/usecase/similarity"
)

const defaultReadinessTimeout = 10 * time.Second

const (
	driverValkey   = "valkey"
	driverRedis    = "redis"
	driverMemory   = "memory"
	driverPostgres = "postgres"
)

// Internal interfaces, swapped for mocks in tests.
type datasetUseCase interface {
	Create(
		ctx context.Context, source, filename, fileKey string, ov datasetuc.Overrides,
	) (domds.Dataset, bool, error)
	Get(ctx context.Context, key string) (domds.Dataset, error)
	List(ctx context.Context) ([]domds.Dataset, error)
	Stats(ctx context.Context, key string) (datasetuc.Stats, error)
	Purge(ctx context.Context, key string) error
}

type documentUseCase interface {
	Ingest(ctx context.Context, datasetKey, docID, text string) (domdoc.Record, bool, documentuc.IngestStats, error)
	Get(ctx context.Context, datasetKey, docID string) (domdoc.Record, error)
	List(ctx context.Context, datasetKey, cursor string, limit int) ([]string, string, error)
	Count(ctx context.Context, datasetKey string) (int, error)
}

type batchUseCase interface {
	Ingest(ctx context.Context, datasetKey string, items []batchuc.Item) []dombatch.Result
}

type similarityUseCase interface {
	FindNeighbors(
		ctx context.Context, datasetKey, docID string, opts similarityuc.Options,
	) ([]neighbor.Neighbor, error)
}

// documentStore is what every backend provides for document records.
type documentStore interface {
	documentuc.Repository
	similarityuc.Repository
	datasetuc.DocumentStore
}

// backend bundles the repositories of one storage driver.
type backend struct {
	pinger    healthuc.DBPinger
	datasets  datasetuc.Repository
	documents documentStore
	checks    map[string]healthuc.Checker
	close     func()
}

// Client is the lshdex SDK entry point.
type Client struct {
	backend   *backend
	dsSvc     datasetUseCase
	docSvc    documentUseCase
	batchSvc  batchUseCase
	simSvc    similarityUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates an lshdex Client and connects to the configured backend.
// The provided context is used for the initial readiness check and schema setup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("lshdex: backend required (use WithRedis, WithValkey, WithPostgres or WithMemory)")
	}

	params, err := lshParams(cfg.lsh)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return wireClient(b, cfg, params, obs), nil
}

func lshParams(d LSHDefaults) (domds.Params, error) {
	if d.Rows < 0 || d.Bands < 0 {
		return domds.Params{}, fmt.Errorf("lshdex: %w: rows and bands must be positive", ErrInvalidConfig)
	}
	p := domds.Params{
		Rows:        5,
		Bands:       20,
		ShingleType: shingle.C4,
		Modulo:      1<<31 - 1,
		BitWidth:    64,
	}
	if d.Rows > 0 {
		p.Rows = d.Rows
	}
	if d.Bands > 0 {
		p.Bands = d.Bands
	}
	if d.ShingleType != "" {
		p.ShingleType = shingle.Type(d.ShingleType)
	}
	if d.Modulo > 0 {
		p.Modulo = d.Modulo
	}
	if d.BitWidth > 0 {
		p.BitWidth = d.BitWidth
	}
	if err := p.Validate(); err != nil {
		return domds.Params{}, fmt.Errorf("lshdex: %w: %w", ErrInvalidConfig, err)
	}
	return p, nil
}

func openBackend(ctx context.Context, cfg *clientConfig) (*backend, error) {
	switch cfg.driver {
	case driverValkey, driverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("lshdex: create %s store: %w", cfg.driver, err)
		}
		return storeBackend(ctx, s, cfg)
	case driverMemory:
		return storeBackend(ctx, memory.NewStore(), cfg)
	case driverPostgres:
		conn, err := postgres.Open(postgres.Config{DSN: cfg.dsn, MaxOpenConns: cfg.maxOpenConns})
		if err != nil {
			return nil, fmt.Errorf("lshdex: open postgres: %w", err)
		}
		if err := conn.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			conn.Close()
			return nil, fmt.Errorf("lshdex: database not ready: %w", err)
		}
		if err := conn.Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("lshdex: migrate: %w", err)
		}
		return &backend{
			pinger:    conn,
			datasets:  conn.Datasets(),
			documents: conn.Documents(),
			checks:    map[string]healthuc.Checker{"schema": healthuc.CheckerFunc(conn.CheckSchema)},
			close:     conn.Close,
		}, nil
	default:
		return nil, fmt.Errorf("lshdex: unknown driver %q", cfg.driver)
	}
}

func storeBackend(ctx context.Context, store db.Store, cfg *clientConfig) (*backend, error) {
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("lshdex: database not ready: %w", err)
	}

	dsRepo := datasetrepo.New(store)
	docRepo := documentrepo.New(store)
	if cfg.keyPrefix != "" {
		dsRepo = dsRepo.WithKeyPrefix(cfg.keyPrefix)
		docRepo = docRepo.WithKeyPrefix(cfg.keyPrefix)
	}
	return &backend{
		pinger:    store,
		datasets:  dsRepo,
		documents: docRepo,
		close:     store.Close,
	}, nil
}

func wireClient(b *backend, cfg *clientConfig, params domds.Params, obs *observer) *Client {
	dsSvc := datasetuc.New(b.datasets, b.documents, params)
	if cfg.keyAttempts > 0 {
		dsSvc = dsSvc.WithKeyAttempts(cfg.keyAttempts)
	}
	if cfg.seeds != nil {
		dsSvc = dsSvc.WithSeedSource(cfg.seeds)
	}

	docSvc := documentuc.New(b.documents, dsSvc)
	simSvc := similarityuc.New(b.documents, dsSvc)
	if cfg.similarityConcurrency > 0 {
		simSvc = simSvc.WithMaxConcurrency(cfg.similarityConcurrency)
	}
	batchSvc := batchuc.New(docSvc, dsSvc)
	if cfg.maxBatchSize > 0 {
		batchSvc = batchSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}

	healthSvc := healthuc.New(b.pinger)
	for name, c := range b.checks {
		healthSvc = healthSvc.WithCheck(name, c)
	}

	return &Client{
		backend:   b,
		dsSvc:     dsSvc,
		docSvc:    docSvc,
		batchSvc:  batchSvc,
		simSvc:    simSvc,
		healthSvc: healthSvc,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.backend != nil && c.backend.close != nil {
		c.backend.close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.backend.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Datasets returns the dataset management service.
func (c *Client) Datasets() *DatasetService {
	return &DatasetService{svc: c.dsSvc, obs: c.obs}
}

// Documents returns the document service for a given dataset.
func (c *Client) Documents(datasetKey string) *DocumentService {
	return &DocumentService{
		dataset:  datasetKey,
		docSvc:   c.docSvc,
		batchSvc: c.batchSvc,
		simSvc:   c.simSvc,
		obs:      c.obs,
	}
}
