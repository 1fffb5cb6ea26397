package dataset

import (
	"context"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
)

// Repository defines the storage contract for dataset configs.
type Repository interface {
	// Create fails with domain.ErrAlreadyExists when the key is taken.
	Create(ctx context.Context, ds domds.Dataset) error
	Get(ctx context.Context, key string) (domds.Dataset, error)
	List(ctx context.Context) ([]domds.Dataset, error)
	Delete(ctx context.Context, key string) error
}

// DocumentStore is the slice of document storage a dataset owns.
type DocumentStore interface {
	Count(ctx context.Context, datasetKey string) (int, error)
	DeleteAll(ctx context.Context, datasetKey string) error
}
