package neighbor

import (
	"cmp"
	"slices"
)

// Neighbor is one candidate document and its estimated Jaccard distance to the query.
type Neighbor struct {
	id       string
	distance float64
	exact    bool
}

// New creates a Neighbor. exact is false when the distance came from band
// agreement because the candidate's signature was not stored.
func New(id string, distance float64, exact bool) Neighbor {
	return Neighbor{id: id, distance: distance, exact: exact}
}

// ID returns the candidate document ID.
func (n Neighbor) ID() string { return n.id }

// Distance returns the estimated Jaccard distance in [0, 1].
func (n Neighbor) Distance() float64 { return n.distance }

// Similarity returns 1 - Distance.
func (n Neighbor) Similarity() float64 { return 1 - n.distance }

// Exact reports whether the distance was estimated from full signatures.
func (n Neighbor) Exact() bool { return n.exact }

// Sort orders neighbors by distance ascending, then by ID.
func Sort(ns []Neighbor) {
	slices.SortFunc(ns, func(a, b Neighbor) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
}

// Filter keeps neighbors with distance <= maxDistance and truncates to limit.
// limit <= 0 means no limit. ns must already be sorted.
func Filter(ns []Neighbor, maxDistance float64, limit int) []Neighbor {
	out := ns[:0]
	for _, n := range ns {
		if n.distance <= maxDistance {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
