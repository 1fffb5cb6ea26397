package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/lshdex/internal/domain"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
	"github.com/kailas-cloud/lshdex/internal/domain/neighbor"
	"github.com/kailas-cloud/lshdex/internal/logger"
	"github.com/kailas-cloud/lshdex/internal/lsh"
	"github.com/kailas-cloud/lshdex/internal/metrics"
)

// DefaultMaxConcurrency bounds parallel bucket lookups per query.
const DefaultMaxConcurrency = 8

// logEvery samples one in this many distance estimates for debug logging.
const logEvery = 100

// Options narrows a neighbor query.
type Options struct {
	// MaxDistance keeps neighbors at or below this distance, in [0, 1].
	MaxDistance float64
	// Limit truncates the result. Zero falls back to the service default limit.
	Limit int
}

// DefaultOptions returns options that keep every candidate.
func DefaultOptions() Options {
	return Options{MaxDistance: 1}
}

// Service finds near-duplicate documents through shared LSH buckets.
type Service struct {
	repo           Repository
	datasets       DatasetReader
	maxConcurrency int
	defaultLimit   int
	estimates      atomic.Uint64
}

// New creates a similarity service.
func New(repo Repository, datasets DatasetReader) *Service {
	return &Service{
		repo:           repo,
		datasets:       datasets,
		maxConcurrency: DefaultMaxConcurrency,
	}
}

// WithMaxConcurrency sets how many bucket lookups run at once.
func (s *Service) WithMaxConcurrency(n int) *Service {
	if n > 0 {
		s.maxConcurrency = n
	}
	return s
}

// WithDefaultLimit sets the limit applied when Options.Limit is zero.
func (s *Service) WithDefaultLimit(n int) *Service {
	if n >= 0 {
		s.defaultLimit = n
	}
	return s
}

// FindNeighbors returns documents sharing at least one bucket with docID, ordered by
// estimated Jaccard distance. A missing document yields an empty result, not an error.
func (s *Service) FindNeighbors(
	ctx context.Context, datasetKey, docID string, opts Options,
) ([]neighbor.Neighbor, error) {
	maxDistance := opts.MaxDistance
	if math.IsNaN(maxDistance) || maxDistance < 0 || maxDistance > 1 {
		return nil, fmt.Errorf("max distance must be in [0, 1]: %w", domain.ErrInvalidRequest)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative: %w", domain.ErrInvalidRequest)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}

	if _, err := s.datasets.Get(ctx, datasetKey); err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}

	log := logger.FromContext(ctx)
	query, err := s.repo.Get(ctx, datasetKey, docID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			log.Info("document not found",
				zap.String("dataset", datasetKey),
				zap.String("doc_id", docID),
			)
			return []neighbor.Neighbor{}, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	ids, err := s.candidates(ctx, query)
	if err != nil {
		return nil, err
	}
	metrics.NeighborCandidates.Observe(float64(len(ids)))
	if len(ids) == 0 {
		return []neighbor.Neighbor{}, nil
	}

	recs, err := s.repo.GetMany(ctx, datasetKey, ids)
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}

	out := make([]neighbor.Neighbor, 0, len(recs))
	for _, rec := range recs {
		n, err := s.estimate(query, rec)
		if err != nil {
			return nil, fmt.Errorf("estimate %s: %w", rec.ID(), err)
		}
		if s.estimates.Add(1)%logEvery == 0 {
			log.Debug("jaccard estimate",
				zap.String("doc_id", docID),
				zap.String("candidate", rec.ID()),
				zap.Float64("distance", n.Distance()),
				zap.Bool("exact", n.Exact()),
			)
		}
		out = append(out, n)
	}

	neighbor.Sort(out)
	return neighbor.Filter(out, maxDistance, limit), nil
}

// candidates unions the postings of every query bucket, excluding the query itself.
func (s *Service) candidates(ctx context.Context, query domdoc.Record) ([]string, error) {
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for _, bucket := range query.Buckets() {
		g.Go(func() error {
			ids, err := s.repo.Candidates(gctx, query.DatasetKey(), bucket)
			if err != nil {
				return fmt.Errorf("bucket %d: %w", bucket, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if id != query.ID() {
					seen[id] = struct{}{}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("lookup candidates: %w", err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

// estimate scores a candidate from signatures, falling back to band agreement
// when either side was stored without one.
func (s *Service) estimate(query, candidate domdoc.Record) (neighbor.Neighbor, error) {
	if query.HasSignature() && candidate.HasSignature() {
		d, err := lsh.JaccardDistance(query.Signature(), candidate.Signature())
		if err != nil {
			return neighbor.Neighbor{}, err
		}
		return neighbor.New(candidate.ID(), d, true), nil
	}

	metrics.NeighborFallbackTotal.Inc()
	d, err := lsh.BandDistance(query.Buckets(), candidate.Buckets())
	if err != nil {
		return neighbor.Neighbor{}, err
	}
	return neighbor.New(candidate.ID(), d, false), nil
}
