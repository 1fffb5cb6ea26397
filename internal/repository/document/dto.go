package document

import (
	"encoding/json"
	"fmt"

	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
)

// recordJSON is the stored form of a document record.
type recordJSON struct {
	ID        string   `json:"id"`
	Buckets   []uint64 `json:"buckets"`
	Signature []uint64 `json:"signature,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

func marshalRecord(rec domdoc.Record) ([]byte, error) {
	data, err := json.Marshal(recordJSON{
		ID:        rec.ID(),
		Buckets:   rec.Buckets(),
		Signature: rec.Signature(),
		CreatedAt: rec.CreatedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

func unmarshalRecord(datasetKey, id string, data []byte) (domdoc.Record, error) {
	var rj recordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return domdoc.Record{}, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return domdoc.Reconstruct(datasetKey, id, rj.Buckets, rj.Signature, rj.CreatedAt), nil
}
