package dataset

import (
	"encoding/json"
	"fmt"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	"github.com/kailas-cloud/lshdex/internal/shingle"
)

// datasetJSON is the stored form of a dataset config.
// Seeds are JSON integers; encoding/json round-trips uint64 exactly.
type datasetJSON struct {
	Key         string   `json:"key"`
	Source      string   `json:"source"`
	Filename    string   `json:"filename"`
	FileKey     string   `json:"file_key,omitempty"`
	Rows        int      `json:"rows"`
	Bands       int      `json:"bands"`
	ShingleType string   `json:"shingle_type"`
	Modulo      uint64   `json:"modulo"`
	BitWidth    uint     `json:"bit_width"`
	Seeds       []uint64 `json:"seeds"`
	CreatedAt   int64    `json:"created_at"`
}

func marshalDataset(ds domds.Dataset) ([]byte, error) {
	data, err := json.Marshal(datasetJSON{
		Key:         ds.Key(),
		Source:      ds.Source(),
		Filename:    ds.Filename(),
		FileKey:     ds.FileKey(),
		Rows:        ds.Rows(),
		Bands:       ds.Bands(),
		ShingleType: string(ds.ShingleType()),
		Modulo:      ds.Modulo(),
		BitWidth:    ds.BitWidth(),
		Seeds:       ds.Seeds(),
		CreatedAt:   ds.CreatedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal dataset: %w", err)
	}
	return data, nil
}

func unmarshalDataset(data []byte) (domds.Dataset, error) {
	var dj datasetJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return domds.Dataset{}, fmt.Errorf("unmarshal dataset: %w", err)
	}

	ds, err := domds.Reconstruct(dj.Key, dj.Source, dj.Filename, dj.FileKey, domds.Params{
		Rows:        dj.Rows,
		Bands:       dj.Bands,
		ShingleType: shingle.Type(dj.ShingleType),
		Modulo:      dj.Modulo,
		BitWidth:    dj.BitWidth,
	}, dj.Seeds, dj.CreatedAt)
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("reconstruct dataset %s: %w", dj.Key, err)
	}
	return ds, nil
}
