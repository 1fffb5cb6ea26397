package dataset

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/lshdex/internal/lsh"
	"github.com/kailas-cloud/lshdex/internal/shingle"
)

var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SeedSource produces the random seeds of a new dataset.
// *rand.Rand and the math/rand/v2 sources satisfy it.
type SeedSource interface {
	Uint64() uint64
}

// Params is the hashing configuration chosen at dataset creation.
type Params struct {
	Rows        int
	Bands       int
	ShingleType shingle.Type
	Modulo      uint64
	BitWidth    uint
}

// Validate checks that Params describe a usable configuration.
func (p Params) Validate() error {
	if !p.ShingleType.IsValid() {
		return fmt.Errorf("unknown shingle type %q", p.ShingleType)
	}
	if p.Modulo == 0 {
		return fmt.Errorf("modulo must be positive")
	}
	if _, err := lsh.NewBanding(p.Rows, p.Bands, p.BitWidth); err != nil {
		return err
	}
	if p.Modulo > lsh.MaxModulo(p.BitWidth) {
		return fmt.Errorf("modulo %d exceeds %d at bit width %d", p.Modulo, lsh.MaxModulo(p.BitWidth), p.BitWidth)
	}
	return nil
}

// Dataset is the similarity corpus aggregate (immutable value object).
// Banding and signer are derived once at construction and shared read-only by all workers.
type Dataset struct {
	key         string
	source      string
	filename    string
	fileKey     string
	shingleType shingle.Type
	modulo      uint64
	seeds       []uint64
	banding     lsh.Banding
	signer      lsh.Signer
	createdAt   int64
}

// GenerateSeeds draws n seeds from src, each masked to bitWidth bits.
func GenerateSeeds(src SeedSource, n int, bitWidth uint) []uint64 {
	mask := ^uint64(0)
	if bitWidth < 64 {
		mask = (uint64(1) << bitWidth) - 1
	}
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = src.Uint64() & mask
	}
	return seeds
}

// New validates p and creates a Dataset with rows*bands fresh seeds from src.
func New(key, source, filename, fileKey string, p Params, src SeedSource) (Dataset, error) {
	if !keyRegex.MatchString(key) {
		return Dataset{}, fmt.Errorf("dataset key must be 1-64 alphanumeric, underscore or hyphen characters")
	}
	if filename == "" {
		return Dataset{}, fmt.Errorf("filename is required")
	}
	if err := p.Validate(); err != nil {
		return Dataset{}, err
	}
	if src == nil {
		return Dataset{}, fmt.Errorf("seed source is required")
	}

	seeds := GenerateSeeds(src, p.Rows*p.Bands, p.BitWidth)
	return build(key, source, filename, fileKey, p, seeds, time.Now().UnixMilli())
}

// Reconstruct hydrates a Dataset from storage. Derived fields are recomputed,
// so a stored configuration that no longer validates is rejected.
func Reconstruct(
	key, source, filename, fileKey string, p Params, seeds []uint64, createdAt int64,
) (Dataset, error) {
	if len(seeds) != p.Rows*p.Bands {
		return Dataset{}, fmt.Errorf("dataset %s has %d seeds, want %d", key, len(seeds), p.Rows*p.Bands)
	}
	return build(key, source, filename, fileKey, p, seeds, createdAt)
}

func build(
	key, source, filename, fileKey string, p Params, seeds []uint64, createdAt int64,
) (Dataset, error) {
	banding, err := lsh.NewBanding(p.Rows, p.Bands, p.BitWidth)
	if err != nil {
		return Dataset{}, err
	}
	signer, err := lsh.NewSigner(seeds, p.Modulo, p.ShingleType, p.BitWidth)
	if err != nil {
		return Dataset{}, err
	}

	owned := make([]uint64, len(seeds))
	copy(owned, seeds)
	return Dataset{
		key:         key,
		source:      source,
		filename:    filename,
		fileKey:     fileKey,
		shingleType: p.ShingleType,
		modulo:      p.Modulo,
		seeds:       owned,
		banding:     banding,
		signer:      signer,
		createdAt:   createdAt,
	}, nil
}

// Key returns the dataset key.
func (d Dataset) Key() string { return d.key }

// Source returns the provenance label.
func (d Dataset) Source() string { return d.source }

// Filename returns the name of the file the dataset was built from.
func (d Dataset) Filename() string { return d.filename }

// FileKey returns the storage key of the source file, if any.
func (d Dataset) FileKey() string { return d.fileKey }

// Rows returns the number of signature values per band.
func (d Dataset) Rows() int { return d.banding.Rows() }

// Bands returns the number of bands.
func (d Dataset) Bands() int { return d.banding.Bands() }

// Hashes returns the signature length.
func (d Dataset) Hashes() int { return d.banding.Hashes() }

// ShingleType returns the shingling mode.
func (d Dataset) ShingleType() shingle.Type { return d.shingleType }

// Modulo returns the MinHash modulo.
func (d Dataset) Modulo() uint64 { return d.modulo }

// BitWidth returns the bucket width W.
func (d Dataset) BitWidth() uint { return d.banding.BitWidth() }

// Seeds returns a copy of the seeds.
func (d Dataset) Seeds() []uint64 {
	out := make([]uint64, len(d.seeds))
	copy(out, d.seeds)
	return out
}

// Params returns the hashing configuration.
func (d Dataset) Params() Params {
	return Params{
		Rows:        d.Rows(),
		Bands:       d.Bands(),
		ShingleType: d.shingleType,
		Modulo:      d.modulo,
		BitWidth:    d.BitWidth(),
	}
}

// Banding returns the derived bucket layout.
func (d Dataset) Banding() lsh.Banding { return d.banding }

// Signer returns the MinHash signer bound to this dataset's seeds.
func (d Dataset) Signer() lsh.Signer { return d.signer }

// CreatedAt returns the creation time in Unix milliseconds.
func (d Dataset) CreatedAt() int64 { return d.createdAt }
