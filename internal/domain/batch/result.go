// Package batch holds per-document outcomes of bulk ingest.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of ingesting one document of a batch.
type Result struct {
	id      string
	status  ItemStatus
	created bool
	err     error
}

// NewOK records a stored document. created is false when the record already existed
// and was returned unchanged.
func NewOK(id string, created bool) Result { return Result{id: id, status: StatusOK, created: created} }

// NewError records a document that could not be ingested.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the document ID.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// OK reports whether the document is stored.
func (r Result) OK() bool { return r.status == StatusOK }

// Created reports whether the document was newly stored.
func (r Result) Created() bool { return r.created }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts batch outcomes.
type Summary struct {
	Created  int
	Existing int
	Failed   int

	// FirstErr is the error of the lowest-indexed failed item.
	FirstErr error
}

// Succeeded is the number of stored documents, new or existing.
func (s Summary) Succeeded() int { return s.Created + s.Existing }

// Summarize tallies results in input order.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case !r.OK():
			s.Failed++
			if s.FirstErr == nil {
				s.FirstErr = r.err
			}
		case r.created:
			s.Created++
		default:
			s.Existing++
		}
	}
	return s
}
