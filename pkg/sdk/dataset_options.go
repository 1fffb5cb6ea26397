package lshdex

// DatasetOption configures dataset creation.
type DatasetOption interface {
	applyDataset(*datasetConfig)
}

type datasetOptionFunc func(*datasetConfig)

func (f datasetOptionFunc) applyDataset(c *datasetConfig) { f(c) }

type datasetConfig struct {
	fileKey     string
	rows        int
	bands       int
	shingleType ShingleType
	modulo      uint64
	bitWidth    uint
}

// WithFileKey records where the source file is stored.
func WithFileKey(key string) DatasetOption {
	return datasetOptionFunc(func(c *datasetConfig) { c.fileKey = key })
}

// WithRows overrides the number of signature values per band.
func WithRows(rows int) DatasetOption {
	return datasetOptionFunc(func(c *datasetConfig) { c.rows = rows })
}

// WithBands overrides the number of bands.
func WithBands(bands int) DatasetOption {
	return datasetOptionFunc(func(c *datasetConfig) { c.bands = bands })
}

// WithShingleType overrides the shingling mode.
func WithShingleType(t ShingleType) DatasetOption {
	return datasetOptionFunc(func(c *datasetConfig) { c.shingleType = t })
}

// WithModulo overrides the MinHash modulo.
func WithModulo(m uint64) DatasetOption {
	return datasetOptionFunc(func(c *datasetConfig) { c.modulo = m })
}

// WithBitWidth overrides the bucket width (1..64).
func WithBitWidth(w uint) DatasetOption {
	return datasetOptionFunc(func(c *datasetConfig) { c.bitWidth = w })
}

// NeighborOption narrows a neighbor query.
type NeighborOption func(*neighborConfig)

type neighborConfig struct {
	maxDistance float64
	limit       int
}

// MaxDistance keeps neighbors at or below d, in [0, 1]. Default: 1.
func MaxDistance(d float64) NeighborOption {
	return func(c *neighborConfig) { c.maxDistance = d }
}

// Limit caps the number of neighbors returned. Zero means unlimited.
func Limit(n int) NeighborOption {
	return func(c *neighborConfig) { c.limit = n }
}
