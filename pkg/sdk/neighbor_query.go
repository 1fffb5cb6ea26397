package lshdex

import (
	"context"
	"fmt"
)

// NeighborQuery is a fluent builder for typed neighbor queries.
type NeighborQuery[T any] struct {
	idx *TypedIndex[T]
	id  string

	maxDistance float64
	limit       int
}

// Within keeps neighbors at or below the given Jaccard distance.
func (q *NeighborQuery[T]) Within(maxDistance float64) *NeighborQuery[T] {
	q.maxDistance = maxDistance
	return q
}

// AtLeast keeps neighbors whose estimated Jaccard similarity is at least s.
func (q *NeighborQuery[T]) AtLeast(s float64) *NeighborQuery[T] {
	q.maxDistance = 1 - s
	return q
}

// Limit sets the maximum number of results.
func (q *NeighborQuery[T]) Limit(n int) *NeighborQuery[T] {
	q.limit = n
	return q
}

// Do executes the query.
func (q *NeighborQuery[T]) Do(ctx context.Context) ([]Neighbor, error) {
	docs, err := q.idx.docs()
	if err != nil {
		return nil, err
	}
	ns, err := docs.Neighbors(ctx, q.id, MaxDistance(q.maxDistance), Limit(q.limit))
	if err != nil {
		return nil, fmt.Errorf("neighbors of %q: %w", q.id, err)
	}
	return ns, nil
}
