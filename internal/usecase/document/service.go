package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lshdex/internal/domain"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
	"github.com/kailas-cloud/lshdex/internal/logger"
	"github.com/kailas-cloud/lshdex/internal/metrics"
	"github.com/kailas-cloud/lshdex/internal/shingle"
)

// IngestStats holds the duration of each ingest stage.
// It is zero when the record already existed.
type IngestStats struct {
	Shingles  int
	Shingle   time.Duration
	Minhash   time.Duration
	Bucketize time.Duration
	Database  time.Duration
}

// Service ingests documents into a dataset and reads them back.
type Service struct {
	repo            Repository
	datasets        DatasetReader
	now             func() time.Time
	defaultPageSize int
	maxPageSize     int
}

// New creates a document service.
func New(repo Repository, datasets DatasetReader) *Service {
	return &Service{
		repo:            repo,
		datasets:        datasets,
		now:             time.Now,
		defaultPageSize: 100,
		maxPageSize:     1000,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Ingest shingles, signs and bucketizes text and stores the record under docID.
// An existing record is returned unchanged with created=false; its buckets are not recomputed.
func (s *Service) Ingest(
	ctx context.Context, datasetKey, docID, text string,
) (domdoc.Record, bool, IngestStats, error) {
	rec, created, stats, err := s.ingest(ctx, datasetKey, docID, text)
	switch {
	case err != nil:
		metrics.IngestTotal.WithLabelValues(metrics.OutcomeError).Inc()
	case created:
		metrics.IngestTotal.WithLabelValues(metrics.OutcomeCreated).Inc()
	default:
		metrics.IngestTotal.WithLabelValues(metrics.OutcomeExisting).Inc()
	}
	return rec, created, stats, err
}

func (s *Service) ingest(
	ctx context.Context, datasetKey, docID, text string,
) (domdoc.Record, bool, IngestStats, error) {
	var stats IngestStats
	if err := domdoc.ValidateID(docID); err != nil {
		return domdoc.Record{}, false, stats, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	ds, err := s.datasets.Get(ctx, datasetKey)
	if err != nil {
		return domdoc.Record{}, false, stats, fmt.Errorf("get dataset: %w", err)
	}

	existing, err := s.repo.Get(ctx, datasetKey, docID)
	switch {
	case err == nil:
		return existing, false, stats, nil
	case !errors.Is(err, domain.ErrDocumentNotFound):
		return domdoc.Record{}, false, stats, fmt.Errorf("get document: %w", err)
	}

	start := time.Now()
	shingles := shingle.Extract(text, ds.ShingleType())
	stats.Shingles = len(shingles)
	stats.Shingle = observeStage(metrics.StageShingle, start)

	start = time.Now()
	signature := ds.Signer().Sign(shingles)
	stats.Minhash = observeStage(metrics.StageMinhash, start)

	start = time.Now()
	buckets, err := ds.Banding().Bucketize(signature)
	if err != nil {
		return domdoc.Record{}, false, stats, fmt.Errorf("bucketize: %w", err)
	}
	stats.Bucketize = observeStage(metrics.StageBucketize, start)

	rec, err := domdoc.New(
		datasetKey, docID, buckets, signature, ds.Bands(), ds.Hashes(), s.now().UnixMilli(),
	)
	if err != nil {
		return domdoc.Record{}, false, stats, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	start = time.Now()
	stored, created, err := s.repo.Insert(ctx, rec)
	stats.Database = observeStage(metrics.StageDatabase, start)
	if err != nil {
		return domdoc.Record{}, false, stats, fmt.Errorf("insert document: %w", err)
	}

	if !created {
		logger.FromContext(ctx).Debug("document inserted concurrently",
			zap.String("dataset", datasetKey),
			zap.String("doc_id", docID),
		)
	}
	return stored, created, stats, nil
}

// Get retrieves a record by dataset key and document ID.
func (s *Service) Get(ctx context.Context, datasetKey, docID string) (domdoc.Record, error) {
	if _, err := s.datasets.Get(ctx, datasetKey); err != nil {
		return domdoc.Record{}, fmt.Errorf("get dataset: %w", err)
	}

	rec, err := s.repo.Get(ctx, datasetKey, docID)
	if err != nil {
		return domdoc.Record{}, fmt.Errorf("get document: %w", err)
	}
	return rec, nil
}

// List returns one page of document IDs in lexical order.
// An empty next cursor means the listing is complete.
func (s *Service) List(
	ctx context.Context, datasetKey, cursor string, limit int,
) ([]string, string, error) {
	if _, err := s.datasets.Get(ctx, datasetKey); err != nil {
		return nil, "", fmt.Errorf("get dataset: %w", err)
	}

	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	ids, next, err := s.repo.List(ctx, datasetKey, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list documents: %w", err)
	}
	return ids, next, nil
}

// Count returns the number of records in a dataset.
func (s *Service) Count(ctx context.Context, datasetKey string) (int, error) {
	if _, err := s.datasets.Get(ctx, datasetKey); err != nil {
		return 0, fmt.Errorf("get dataset: %w", err)
	}
	n, err := s.repo.Count(ctx, datasetKey)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func observeStage(stage string, start time.Time) time.Duration {
	d := time.Since(start)
	metrics.IngestStageDuration.WithLabelValues(stage).Observe(d.Seconds())
	return d
}
