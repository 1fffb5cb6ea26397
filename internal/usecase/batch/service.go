package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/lshdex/internal/domain"
	dombatch "github.com/kailas-cloud/lshdex/internal/domain/batch"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// DefaultWorkers bounds concurrent ingests within one batch.
const DefaultWorkers = 8

// Item is one document of a batch.
type Item struct {
	ID   string
	Text string
}

// Service handles batch ingest with per-item error reporting.
type Service struct {
	docs         DocumentIngester
	datasets     DatasetReader
	maxBatchSize int
	workers      int
}

// New creates a batch service.
func New(docs DocumentIngester, datasets DatasetReader) *Service {
	return &Service{
		docs:         docs,
		datasets:     datasets,
		maxBatchSize: MaxBatchSize,
		workers:      DefaultWorkers,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithWorkers configures how many items are ingested concurrently.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// MaxBatchSize returns the configured batch limit.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// Ingest stores every item and returns one result per item, in input order.
// Item failures do not stop the batch; a missing dataset fails every item.
func (s *Service) Ingest(ctx context.Context, datasetKey string, items []Item) []dombatch.Result {
	if len(items) > s.maxBatchSize {
		return failAll(items, fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRequest))
	}

	if _, err := s.datasets.Get(ctx, datasetKey); err != nil {
		return failAll(items, fmt.Errorf("get dataset: %w", err))
	}

	results := make([]dombatch.Result, len(items))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = dombatch.NewError(item.ID, err)
				return nil
			}
			_, created, _, err := s.docs.Ingest(ctx, datasetKey, item.ID, item.Text)
			if err != nil {
				results[i] = dombatch.NewError(item.ID, fmt.Errorf("ingest: %w", err))
				return nil
			}
			results[i] = dombatch.NewOK(item.ID, created)
			return nil
		})
	}
	_ = g.Wait() // workers report through results

	return results
}

func failAll(items []Item, err error) []dombatch.Result {
	results := make([]dombatch.Result, len(items))
	for i, item := range items {
		results[i] = dombatch.NewError(item.ID, err)
	}
	return results
}
