package lshdex

// ShingleType selects how text is split before hashing.
type ShingleType string

// Shingle type constants.
const (
	ShingleWord ShingleType = "w"
	ShingleC4   ShingleType = "c4"
	ShingleChar ShingleType = "c"
)

// LSHDefaults holds hashing parameters for new datasets. Zero fields keep the built-in default.
type LSHDefaults struct {
	Rows        int
	Bands       int
	ShingleType ShingleType
	Modulo      uint64
	BitWidth    uint
}

// DatasetInfo represents dataset metadata.
type DatasetInfo struct {
	Key         string
	Source      string
	Filename    string
	FileKey     string
	Rows        int
	Bands       int
	ShingleType ShingleType
	Modulo      uint64
	BitWidth    uint
	Seeds       []uint64
	// Threshold is the similarity at which the candidate probability curve is steepest.
	Threshold float64
	CreatedAt int64
	// Documents is filled by Get only; List leaves it at -1.
	Documents int
}

// Document is one text to ingest.
type Document struct {
	ID   string
	Text string
}

// DocumentInfo represents a stored document record.
type DocumentInfo struct {
	ID        string
	Buckets   []uint64
	Signature []uint64
	CreatedAt int64
}

// Neighbor is one near-duplicate candidate.
type Neighbor struct {
	ID       string
	Distance float64
	// Exact is false when the distance came from band agreement instead of signatures.
	Exact bool
}

// BatchResult is the outcome of one item in a batch operation.
type BatchResult struct {
	ID      string
	OK      bool
	Created bool
	Err     error
}

// ListResult is a page of document IDs.
type ListResult struct {
	IDs        []string
	NextCursor string
}
