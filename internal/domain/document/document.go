package document

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxIDLength is the maximum document ID length in bytes.
const MaxIDLength = 512

// reservedIDs collide with sub-routes under /documents.
var reservedIDs = map[string]bool{"batch": true}

// Record is the stored artifact of one ingested document (immutable value object).
// Buckets has one entry per band. Signature is empty for records written by producers
// that persist buckets only.
type Record struct {
	datasetKey string
	id         string
	buckets    []uint64
	signature  []uint64
	createdAt  int64
}

// ValidateID checks a document ID. IDs are usually relative file paths, so '/' is allowed.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("document ID must be valid UTF-8")
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return fmt.Errorf("document ID must not contain control characters")
	}
	if reservedIDs[id] {
		return fmt.Errorf("document ID %q is reserved", id)
	}
	return nil
}

// New validates and creates a Record. len(buckets) must equal bands;
// a non-empty signature must hold hashes values.
func New(datasetKey, id string, buckets, signature []uint64, bands, hashes int, createdAt int64) (Record, error) {
	if datasetKey == "" {
		return Record{}, fmt.Errorf("dataset key is required")
	}
	if err := ValidateID(id); err != nil {
		return Record{}, err
	}
	if len(buckets) != bands {
		return Record{}, fmt.Errorf("record has %d buckets, want %d", len(buckets), bands)
	}
	if len(signature) != 0 && len(signature) != hashes {
		return Record{}, fmt.Errorf("record signature has %d values, want %d", len(signature), hashes)
	}

	return Record{
		datasetKey: datasetKey,
		id:         id,
		buckets:    cloneUint64s(buckets),
		signature:  cloneUint64s(signature),
		createdAt:  createdAt,
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(datasetKey, id string, buckets, signature []uint64, createdAt int64) Record {
	return Record{datasetKey: datasetKey, id: id, buckets: buckets, signature: signature, createdAt: createdAt}
}

// DatasetKey returns the owning dataset key.
func (r Record) DatasetKey() string { return r.datasetKey }

// ID returns the document identifier.
func (r Record) ID() string { return r.id }

// Buckets returns the per-band bucket values. The slice must not be modified.
func (r Record) Buckets() []uint64 { return r.buckets }

// Signature returns the MinHash signature, or nil when it was not persisted.
// The slice must not be modified.
func (r Record) Signature() []uint64 { return r.signature }

// HasSignature reports whether the full signature is available.
func (r Record) HasSignature() bool { return len(r.signature) > 0 }

// CreatedAt returns the insert time in Unix milliseconds.
func (r Record) CreatedAt() int64 { return r.createdAt }

func cloneUint64s(s []uint64) []uint64 {
	if len(s) == 0 {
		return nil
	}
	out := make([]uint64, len(s))
	copy(out, s)
	return out
}
