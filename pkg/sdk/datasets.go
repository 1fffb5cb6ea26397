package lshdex

import (
	"context"
	"fmt"
	"time"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	"github.com/kailas-cloud/lshdex/internal/shingle"
	datasetuc "github.com/kailas-cloud/lshdex/internal/usecase/dataset"
)

// DatasetService manages datasets.
type DatasetService struct {
	svc datasetUseCase
	obs *observer
}

// Create allocates a dataset for (source, filename) with fresh seeds.
// If a dataset for the same filename already holds the key, it is returned with created=false.
func (s *DatasetService) Create(
	ctx context.Context, source, filename string, opts ...DatasetOption,
) (_ DatasetInfo, created bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("dataset.create", start, err) }()

	cfg := &datasetConfig{}
	for _, o := range opts {
		o.applyDataset(cfg)
	}

	ds, created, err := s.svc.Create(ctx, source, filename, cfg.fileKey, datasetuc.Overrides{
		Rows:        cfg.rows,
		Bands:       cfg.bands,
		ShingleType: shingle.Type(cfg.shingleType),
		Modulo:      cfg.modulo,
		BitWidth:    cfg.bitWidth,
	})
	if err != nil {
		return DatasetInfo{}, false, fmt.Errorf("create dataset: %w", err)
	}
	return fromInternalDataset(ds, -1), created, nil
}

// Get retrieves dataset metadata with its document count.
func (s *DatasetService) Get(ctx context.Context, key string) (_ DatasetInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("dataset.get", start, err) }()

	st, err := s.svc.Stats(ctx, key)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("get dataset: %w", err)
	}
	return fromInternalDataset(st.Dataset, st.Documents), nil
}

// List returns all datasets ordered by creation time.
func (s *DatasetService) List(ctx context.Context) (_ []DatasetInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("dataset.list", start, err) }()

	list, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out := make([]DatasetInfo, len(list))
	for i, ds := range list {
		out[i] = fromInternalDataset(ds, -1)
	}
	return out, nil
}

// Purge deletes a dataset together with every document it owns.
func (s *DatasetService) Purge(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("dataset.purge", start, err) }()

	if err = s.svc.Purge(ctx, key); err != nil {
		return fmt.Errorf("purge dataset: %w", err)
	}
	return nil
}

func fromInternalDataset(ds domds.Dataset, documents int) DatasetInfo {
	return DatasetInfo{
		Key:         ds.Key(),
		Source:      ds.Source(),
		Filename:    ds.Filename(),
		FileKey:     ds.FileKey(),
		Rows:        ds.Rows(),
		Bands:       ds.Bands(),
		ShingleType: ShingleType(ds.ShingleType()),
		Modulo:      ds.Modulo(),
		BitWidth:    ds.BitWidth(),
		Seeds:       ds.Seeds(),
		Threshold:   ds.Banding().Threshold(),
		CreatedAt:   ds.CreatedAt(),
		Documents:   documents,
	}
}
