package chi

import (
	"strconv"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
	"github.com/kailas-cloud/lshdex/internal/domain/neighbor"
	docuc "github.com/kailas-cloud/lshdex/internal/usecase/document"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeInvalidConfig       ErrorCode = "invalid_config"
	CodeDatasetNotFound     ErrorCode = "dataset_not_found"
	CodeDocumentNotFound    ErrorCode = "document_not_found"
	CodeAlreadyExists       ErrorCode = "already_exists"
	CodeDatasetKeyExhausted ErrorCode = "dataset_key_exhausted"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateDatasetRequest is the body of POST /datasets. Zero hashing fields keep the server defaults.
type CreateDatasetRequest struct {
	Source      string `json:"source"`
	Filename    string `json:"filename"`
	FileKey     string `json:"file_key,omitempty"`
	Rows        int    `json:"rows,omitempty"`
	Bands       int    `json:"bands,omitempty"`
	ShingleType string `json:"shingle_type,omitempty"`
	Modulo      string `json:"modulo,omitempty"`
	BitWidth    uint   `json:"bit_width,omitempty"`
}

// DatasetResponse describes a dataset. Unsigned 64-bit values are decimal strings.
type DatasetResponse struct {
	Key         string   `json:"key"`
	Source      string   `json:"source"`
	Filename    string   `json:"filename"`
	FileKey     string   `json:"file_key,omitempty"`
	Rows        int      `json:"rows"`
	Bands       int      `json:"bands"`
	Hashes      int      `json:"hashes"`
	ShingleType string   `json:"shingle_type"`
	Modulo      string   `json:"modulo"`
	BitWidth    uint     `json:"bit_width"`
	BandBits    uint     `json:"band_bits"`
	HashBits    uint     `json:"hash_bits"`
	Threshold   float64  `json:"threshold"`
	Seeds       []string `json:"seeds,omitempty"`
	Documents   *int     `json:"document_count,omitempty"`
	CreatedAt   int64    `json:"created_at"`
}

// DatasetListResponse is the body of GET /datasets.
type DatasetListResponse struct {
	Items []DatasetResponse `json:"items"`
}

// IngestRequest is the body of PUT /datasets/{key}/documents/{id}.
type IngestRequest struct {
	Text string `json:"text"`
}

// IngestStatsResponse reports per-stage ingest timings in microseconds.
type IngestStatsResponse struct {
	Shingles    int   `json:"shingles"`
	ShingleUS   int64 `json:"shingle_us"`
	MinhashUS   int64 `json:"minhash_us"`
	BucketizeUS int64 `json:"bucketize_us"`
	DatabaseUS  int64 `json:"database_us"`
}

// DocumentResponse describes a stored record.
type DocumentResponse struct {
	ID        string               `json:"id"`
	Dataset   string               `json:"dataset"`
	Buckets   []string             `json:"buckets"`
	Signature []string             `json:"signature,omitempty"`
	CreatedAt int64                `json:"created_at"`
	Stats     *IngestStatsResponse `json:"stats,omitempty"`
}

// DocumentListResponse is one page of document IDs.
type DocumentListResponse struct {
	Items      []string `json:"items"`
	NextCursor *string  `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// BatchIngestItem is one document of a batch.
type BatchIngestItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BatchIngestRequest is the body of POST /datasets/{key}/documents/batch.
type BatchIngestRequest struct {
	Items []BatchIngestItem `json:"items"`
}

// BatchResultItem is the outcome of one batch item.
type BatchResultItem struct {
	ID      string         `json:"id"`
	Status  string         `json:"status"`
	Created bool           `json:"created"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// BatchIngestResponse is the body of a batch ingest response.
type BatchIngestResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Created   int               `json:"created"`
	Failed    int               `json:"failed"`
}

// NeighborItem is one near-duplicate candidate.
type NeighborItem struct {
	ID         string  `json:"id"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Exact      bool    `json:"exact"`
}

// NeighborListResponse is the body of GET .../neighbors.
type NeighborListResponse struct {
	Document string         `json:"document"`
	Items    []NeighborItem `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func formatUint64s(vs []uint64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatUint(v, 10)
	}
	return out
}

func datasetToResponse(ds domds.Dataset, withSeeds bool) DatasetResponse {
	resp := DatasetResponse{
		Key:         ds.Key(),
		Source:      ds.Source(),
		Filename:    ds.Filename(),
		FileKey:     ds.FileKey(),
		Rows:        ds.Rows(),
		Bands:       ds.Bands(),
		Hashes:      ds.Hashes(),
		ShingleType: string(ds.ShingleType()),
		Modulo:      strconv.FormatUint(ds.Modulo(), 10),
		BitWidth:    ds.BitWidth(),
		BandBits:    ds.Banding().BandBits(),
		HashBits:    ds.Banding().HashBits(),
		Threshold:   ds.Banding().Threshold(),
		CreatedAt:   ds.CreatedAt(),
	}
	if withSeeds {
		resp.Seeds = formatUint64s(ds.Seeds())
	}
	return resp
}

func documentToResponse(rec domdoc.Record) DocumentResponse {
	resp := DocumentResponse{
		ID:        rec.ID(),
		Dataset:   rec.DatasetKey(),
		Buckets:   formatUint64s(rec.Buckets()),
		CreatedAt: rec.CreatedAt(),
	}
	if rec.HasSignature() {
		resp.Signature = formatUint64s(rec.Signature())
	}
	return resp
}

func statsToResponse(st docuc.IngestStats) *IngestStatsResponse {
	return &IngestStatsResponse{
		Shingles:    st.Shingles,
		ShingleUS:   st.Shingle.Microseconds(),
		MinhashUS:   st.Minhash.Microseconds(),
		BucketizeUS: st.Bucketize.Microseconds(),
		DatabaseUS:  st.Database.Microseconds(),
	}
}

func neighborsToResponse(docID string, ns []neighbor.Neighbor) NeighborListResponse {
	items := make([]NeighborItem, len(ns))
	for i, n := range ns {
		items[i] = NeighborItem{
			ID:         n.ID(),
			Distance:   n.Distance(),
			Similarity: n.Similarity(),
			Exact:      n.Exact(),
		}
	}
	return NeighborListResponse{Document: docID, Items: items}
}
