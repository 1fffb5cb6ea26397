package lshdex

import (
	"context"
	"errors"
	"fmt"
)

// TypedIndex is a generic, schema-first index backed by an lshdex Client.
// Schema is inferred from T's struct tags at construction time.
type TypedIndex[T any] struct {
	source   string
	filename string
	opts     []DatasetOption
	client   *Client
	meta     *schemaMeta

	key string
}

// NewIndex creates a typed index handle for the dataset of (source, filename).
// T must be a struct with lshdex tags. Schema is parsed once and cached.
func NewIndex[T any](
	client *Client, source, filename string, opts ...DatasetOption,
) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", filename, err)
	}
	return &TypedIndex[T]{
		source:   source,
		filename: filename,
		opts:     opts,
		client:   client,
		meta:     meta,
	}, nil
}

// Ensure creates the dataset or reuses the one already allocated for the filename.
func (idx *TypedIndex[T]) Ensure(ctx context.Context) error {
	ds, _, err := idx.client.Datasets().Create(ctx, idx.source, idx.filename, idx.opts...)
	if err != nil {
		return fmt.Errorf("ensure %q: %w", idx.filename, err)
	}
	idx.key = ds.Key
	return nil
}

// Key returns the dataset key, empty until Ensure succeeds.
func (idx *TypedIndex[T]) Key() string { return idx.key }

func (idx *TypedIndex[T]) docs() (*DocumentService, error) {
	if idx.key == "" {
		return nil, errors.New("lshdex: index not ensured")
	}
	return idx.client.Documents(idx.key), nil
}

// Ingest stores a single item. Returns true if created.
func (idx *TypedIndex[T]) Ingest(ctx context.Context, item T) (bool, error) {
	docs, err := idx.docs()
	if err != nil {
		return false, err
	}
	d := idx.meta.toDocument(item)
	_, created, err := docs.Ingest(ctx, d.ID, d.Text)
	return created, err
}

// IngestBatch stores items concurrently with per-item results.
func (idx *TypedIndex[T]) IngestBatch(ctx context.Context, items []T) ([]BatchResult, error) {
	docs, err := idx.docs()
	if err != nil {
		return nil, err
	}
	batch := make([]Document, len(items))
	for i, item := range items {
		batch[i] = idx.meta.toDocument(item)
	}
	return docs.IngestBatch(ctx, batch), nil
}

// Count returns the number of items in the dataset.
func (idx *TypedIndex[T]) Count(ctx context.Context) (int, error) {
	docs, err := idx.docs()
	if err != nil {
		return 0, err
	}
	return docs.Count(ctx)
}

// Neighbors returns a fluent query for near-duplicates of the document with this id.
func (idx *TypedIndex[T]) Neighbors(id string) *NeighborQuery[T] {
	return &NeighborQuery[T]{idx: idx, id: id, maxDistance: 1}
}

// Like returns a fluent query for near-duplicates of an already ingested item.
func (idx *TypedIndex[T]) Like(item T) *NeighborQuery[T] {
	return idx.Neighbors(idx.meta.idOf(item))
}
