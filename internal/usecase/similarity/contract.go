package similarity

import (
	"context"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
)

// Repository is the read side of document storage used for neighbor lookup.
type Repository interface {
	Get(ctx context.Context, datasetKey, id string) (domdoc.Record, error)
	GetMany(ctx context.Context, datasetKey string, ids []string) ([]domdoc.Record, error)
	Candidates(ctx context.Context, datasetKey string, bucket uint64) ([]string, error)
}

// DatasetReader reads dataset configs.
type DatasetReader interface {
	Get(ctx context.Context, key string) (domds.Dataset, error)
}
