package lshdex

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	dombatch "github.com/kailas-cloud/lshdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
	"github.com/kailas-cloud/lshdex/internal/domain/neighbor"
	batchuc "github.com/kailas-cloud/lshdex/internal/usecase/batch"
	similarityuc "github.com/kailas-cloud/lshdex/internal/usecase/similarity"
)

// DocumentService manages documents within a single dataset.
type DocumentService struct {
	dataset  string
	docSvc   documentUseCase
	batchSvc batchUseCase
	simSvc   similarityUseCase
	obs      *observer
}

// Ingest stores text under id. An existing document is returned unchanged with created=false.
func (s *DocumentService) Ingest(
	ctx context.Context, id, text string,
) (_ DocumentInfo, created bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.ingest", start, err) }()

	rec, created, _, err := s.docSvc.Ingest(ctx, s.dataset, id, text)
	if err != nil {
		return DocumentInfo{}, false, fmt.Errorf("ingest: %w", err)
	}
	return fromInternalRecord(rec), created, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (_ DocumentInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.get", start, err) }()

	rec, err := s.docSvc.Get(ctx, s.dataset, id)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalRecord(rec), nil
}

// List returns a page of document IDs in lexical order.
func (s *DocumentService) List(
	ctx context.Context, cursor string, limit int,
) (_ ListResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.list", start, err) }()

	ids, next, err := s.docSvc.List(ctx, s.dataset, cursor, limit)
	if err != nil {
		return ListResult{}, fmt.Errorf("list documents: %w", err)
	}
	return ListResult{IDs: ids, NextCursor: next}, nil
}

// Count returns the number of documents in the dataset.
func (s *DocumentService) Count(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.count", start, err) }()

	n, err := s.docSvc.Count(ctx, s.dataset)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// IngestBatch ingests docs concurrently and reports a result per item.
// Documents without an ID are assigned a random UUID.
func (s *DocumentService) IngestBatch(ctx context.Context, docs []Document) []BatchResult {
	start := time.Now()
	items := make([]batchuc.Item, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		items[i] = batchuc.Item{ID: id, Text: d.Text}
	}

	raw := s.batchSvc.Ingest(ctx, s.dataset, items)
	results := fromBatchResults(raw)

	s.obs.observe("document.ingest_batch", start, dombatch.Summarize(raw).FirstErr)
	s.obs.observeBatch(results)
	return results
}

// Neighbors returns near-duplicates of id ordered by estimated Jaccard distance.
// A missing document yields an empty result.
func (s *DocumentService) Neighbors(
	ctx context.Context, id string, opts ...NeighborOption,
) (_ []Neighbor, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.neighbors", start, err) }()

	cfg := &neighborConfig{maxDistance: similarityuc.DefaultOptions().MaxDistance}
	for _, o := range opts {
		o(cfg)
	}

	ns, err := s.simSvc.FindNeighbors(ctx, s.dataset, id, similarityuc.Options{
		MaxDistance: cfg.maxDistance,
		Limit:       cfg.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}
	s.obs.observeNeighbors(len(ns))
	return fromInternalNeighbors(ns), nil
}

func fromInternalRecord(rec domdoc.Record) DocumentInfo {
	return DocumentInfo{
		ID:        rec.ID(),
		Buckets:   slices.Clone(rec.Buckets()),
		Signature: slices.Clone(rec.Signature()),
		CreatedAt: rec.CreatedAt(),
	}
}

func fromInternalNeighbors(ns []neighbor.Neighbor) []Neighbor {
	out := make([]Neighbor, len(ns))
	for i, n := range ns {
		out[i] = Neighbor{ID: n.ID(), Distance: n.Distance(), Exact: n.Exact()}
	}
	return out
}

func fromBatchResults(results []dombatch.Result) []BatchResult {
	out := make([]BatchResult, len(results))
	for i, r := range results {
		out[i] = BatchResult{
			ID:      r.ID(),
			OK:      r.OK(),
			Created: r.Created(),
			Err:     r.Err(),
		}
	}
	return out
}
