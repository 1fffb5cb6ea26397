package document

import (
	"context"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
)

// Repository defines the storage contract for document records.
type Repository interface {
	Insert(ctx context.Context, rec domdoc.Record) (stored domdoc.Record, created bool, err error)
	Get(ctx context.Context, datasetKey, id string) (domdoc.Record, error)
	List(ctx context.Context, datasetKey, cursor string, limit int) (ids []string, nextCursor string, err error)
	Count(ctx context.Context, datasetKey string) (int, error)
}

// DatasetReader reads dataset configs for existence and hashing parameters.
type DatasetReader interface {
	Get(ctx context.Context, key string) (domds.Dataset, error)
}
