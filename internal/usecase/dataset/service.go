package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lshdex/internal/domain"
	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	"github.com/kailas-cloud/lshdex/internal/logger"
	"github.com/kailas-cloud/lshdex/internal/metrics"
	"github.com/kailas-cloud/lshdex/internal/shingle"
)

// Defaults for dataset creation.
const (
	DefaultKeyAttempts = 4
	DefaultCacheSize   = 256
	DefaultCacheTTL    = 5 * time.Minute
)

// Overrides replaces individual default hashing parameters. Zero values keep the default.
type Overrides struct {
	Rows        int
	Bands       int
	ShingleType shingle.Type
	Modulo      uint64
	BitWidth    uint
}

// Stats summarizes a dataset.
type Stats struct {
	Dataset   domds.Dataset
	Documents int
}

// Service handles dataset creation, lookup and purge.
// Configs are immutable once created, so Get is served from an expiring LRU cache.
type Service struct {
	repo        Repository
	docs        DocumentStore
	defaults    domds.Params
	keyAttempts int
	seeds       *lockedSource
	cache       *expirable.LRU[string, domds.Dataset]
}

// New creates a dataset service.
func New(repo Repository, docs DocumentStore, defaults domds.Params) *Service {
	return &Service{
		repo:        repo,
		docs:        docs,
		defaults:    defaults,
		keyAttempts: DefaultKeyAttempts,
		seeds:       &lockedSource{src: newSeedSource()},
		cache:       expirable.NewLRU[string, domds.Dataset](DefaultCacheSize, nil, DefaultCacheTTL),
	}
}

// WithKeyAttempts sets how many candidate keys Create tries.
func (s *Service) WithKeyAttempts(n int) *Service {
	if n > 0 {
		s.keyAttempts = n
	}
	return s
}

// WithSeedSource replaces the seed generator.
func (s *Service) WithSeedSource(src domds.SeedSource) *Service {
	if src != nil {
		s.seeds = &lockedSource{src: src}
	}
	return s
}

// WithCache configures the dataset config cache.
func (s *Service) WithCache(size int, ttl time.Duration) *Service {
	if size > 0 && ttl > 0 {
		s.cache = expirable.NewLRU[string, domds.Dataset](size, nil, ttl)
	}
	return s
}

// Defaults returns the hashing parameters used when no override is given.
func (s *Service) Defaults() domds.Params { return s.defaults }

// Create allocates a key for (source, filename) and stores a new dataset with fresh seeds.
// A dataset already holding the candidate key with the same filename is returned with
// created=false. Exhausting every candidate key fails with domain.ErrDatasetKeyExhausted.
func (s *Service) Create(
	ctx context.Context, source, filename, fileKey string, ov Overrides,
) (domds.Dataset, bool, error) {
	if filename == "" {
		return domds.Dataset{}, false, fmt.Errorf("filename is required: %w", domain.ErrInvalidRequest)
	}
	params, err := s.params(ov)
	if err != nil {
		return domds.Dataset{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	if err := params.Validate(); err != nil {
		return domds.Dataset{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	log := logger.FromContext(ctx)
	for attempt := range s.keyAttempts {
		key := CandidateKey(source, filename, attempt)

		existing, err := s.repo.Get(ctx, key)
		switch {
		case err == nil:
			if existing.Filename() == filename {
				s.cache.Add(key, existing)
				return existing, false, nil
			}
		case errors.Is(err, domain.ErrNotFound):
			ds, err := domds.New(key, source, filename, fileKey, params, s.seeds)
			if err != nil {
				return domds.Dataset{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
			}
			err = s.repo.Create(ctx, ds)
			if err == nil {
				s.cache.Add(key, ds)
				return ds, true, nil
			}
			if !errors.Is(err, domain.ErrAlreadyExists) {
				return domds.Dataset{}, false, fmt.Errorf("create dataset: %w", err)
			}
			// Lost a race for this key; the winner may be the same file.
			winner, err := s.repo.Get(ctx, key)
			if err != nil {
				return domds.Dataset{}, false, fmt.Errorf("get dataset %s: %w", key, err)
			}
			if winner.Filename() == filename {
				s.cache.Add(key, winner)
				return winner, false, nil
			}
		default:
			return domds.Dataset{}, false, fmt.Errorf("get dataset %s: %w", key, err)
		}

		metrics.DatasetKeyCollisionsTotal.Inc()
		log.Debug("dataset key collision",
			zap.String("key", key),
			zap.Int("attempt", attempt),
			zap.String("filename", filename),
		)
	}

	return domds.Dataset{}, false, fmt.Errorf(
		"%d keys tried for %q: %w", s.keyAttempts, filename, domain.ErrDatasetKeyExhausted,
	)
}

// Get retrieves a dataset by key.
func (s *Service) Get(ctx context.Context, key string) (domds.Dataset, error) {
	if ds, ok := s.cache.Get(key); ok {
		metrics.DatasetCacheTotal.WithLabelValues("hit").Inc()
		return ds, nil
	}
	metrics.DatasetCacheTotal.WithLabelValues("miss").Inc()

	ds, err := s.repo.Get(ctx, key)
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	s.cache.Add(key, ds)
	return ds, nil
}

// List returns all datasets sorted by creation time.
func (s *Service) List(ctx context.Context) ([]domds.Dataset, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return list, nil
}

// Stats returns the dataset and its document count.
func (s *Service) Stats(ctx context.Context, key string) (Stats, error) {
	ds, err := s.Get(ctx, key)
	if err != nil {
		return Stats{}, err
	}
	n, err := s.docs.Count(ctx, key)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	return Stats{Dataset: ds, Documents: n}, nil
}

// Purge deletes a dataset with every record and bucket posting it owns.
// The cache entry is dropped again on return: a Get racing the purge may have
// re-cached the config from the store before it was deleted.
func (s *Service) Purge(ctx context.Context, key string) error {
	s.cache.Remove(key)
	defer s.cache.Remove(key)

	if _, err := s.repo.Get(ctx, key); err != nil {
		return fmt.Errorf("get dataset: %w", err)
	}

	if err := s.docs.DeleteAll(ctx, key); err != nil {
		return fmt.Errorf("purge documents: %w", err)
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}

	logger.FromContext(ctx).Info("dataset purged", zap.String("key", key))
	return nil
}

// params applies overrides to the defaults. Zero leaves a field unset; a negative
// count is rejected rather than replaced.
func (s *Service) params(ov Overrides) (domds.Params, error) {
	if ov.Rows < 0 {
		return domds.Params{}, fmt.Errorf("rows must be >= 1, got %d", ov.Rows)
	}
	if ov.Bands < 0 {
		return domds.Params{}, fmt.Errorf("bands must be >= 1, got %d", ov.Bands)
	}

	p := s.defaults
	if ov.Rows > 0 {
		p.Rows = ov.Rows
	}
	if ov.Bands > 0 {
		p.Bands = ov.Bands
	}
	if ov.ShingleType != "" {
		p.ShingleType = ov.ShingleType
	}
	if ov.Modulo > 0 {
		p.Modulo = ov.Modulo
	}
	if ov.BitWidth > 0 {
		p.BitWidth = ov.BitWidth
	}
	return p, nil
}
