package batch

import (
	"context"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
	docuc "github.com/kailas-cloud/lshdex/internal/usecase/document"
)

// DocumentIngester ingests a single document.
type DocumentIngester interface {
	Ingest(ctx context.Context, datasetKey, docID, text string) (domdoc.Record, bool, docuc.IngestStats, error)
}

// DatasetReader reads datasets for existence checks.
type DatasetReader interface {
	Get(ctx context.Context, key string) (domds.Dataset, error)
}
