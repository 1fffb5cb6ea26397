// Package lsh implements MinHash signatures, LSH banding and signature-based
// Jaccard distance estimation.
package lsh

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// MaxBitWidth is the widest supported hash and bucket width.
const MaxBitWidth = 64

// bandDelimiter joins the signature values of one band before digesting.
const bandDelimiter = '-'

// Banding holds the hashing geometry of a dataset.
// All derived fields are computed once by NewBanding and never change.
type Banding struct {
	rows     int
	bands    int
	bitWidth uint
	bandBits uint
	hashBits uint
	bandMask uint64
	hashMask uint64
	maxMask  uint64
}

// NewBanding validates rows, bands and bitWidth and derives the bucket bit layout:
// bandBits = ceil(log2(bands)), hashBits = bitWidth - bandBits.
func NewBanding(rows, bands int, bitWidth uint) (Banding, error) {
	if rows < 1 {
		return Banding{}, fmt.Errorf("rows must be >= 1, got %d", rows)
	}
	if bands < 1 {
		return Banding{}, fmt.Errorf("bands must be >= 1, got %d", bands)
	}
	if bitWidth < 1 || bitWidth > MaxBitWidth {
		return Banding{}, fmt.Errorf("bit width must be between 1 and %d, got %d", MaxBitWidth, bitWidth)
	}

	bandBits := uint(bits.Len(uint(bands - 1)))
	if bandBits > bitWidth {
		return Banding{}, fmt.Errorf(
			"%d bands need %d band bits, more than bit width %d", bands, bandBits, bitWidth,
		)
	}
	hashBits := bitWidth - bandBits

	return Banding{
		rows:     rows,
		bands:    bands,
		bitWidth: bitWidth,
		bandBits: bandBits,
		hashBits: hashBits,
		bandMask: lowMask(bandBits),
		hashMask: lowMask(hashBits),
		maxMask:  lowMask(bitWidth),
	}, nil
}

// lowMask returns 2^n - 1 for n in [0, 64].
func lowMask(n uint) uint64 {
	if n == 0 {
		return 0
	}
	return ^uint64(0) >> (64 - n)
}

// Rows returns the number of signature values per band.
func (b Banding) Rows() int { return b.rows }

// Bands returns the number of bands.
func (b Banding) Bands() int { return b.bands }

// Hashes returns the signature length, rows*bands.
func (b Banding) Hashes() int { return b.rows * b.bands }

// BitWidth returns the total bucket width W.
func (b Banding) BitWidth() uint { return b.bitWidth }

// BandBits returns the number of high bits carrying the band index.
func (b Banding) BandBits() uint { return b.bandBits }

// HashBits returns the number of low bits carrying the band digest.
func (b Banding) HashBits() uint { return b.hashBits }

// BandMask returns 2^bandBits - 1.
func (b Banding) BandMask() uint64 { return b.bandMask }

// HashMask returns 2^hashBits - 1.
func (b Banding) HashMask() uint64 { return b.hashMask }

// MaxMask returns 2^W - 1, the signature sentinel.
func (b Banding) MaxMask() uint64 { return b.maxMask }

// IsZero reports whether b was never initialized.
func (b Banding) IsZero() bool { return b.bands == 0 }

// Bucketize folds a signature into one bucket per band.
// Bucket i carries i in its high bandBits and the digest of band i in its low hashBits,
// so buckets of different bands never collide.
func (b Banding) Bucketize(signature []uint64) ([]uint64, error) {
	if len(signature) != b.Hashes() {
		return nil, fmt.Errorf("signature length %d, want %d", len(signature), b.Hashes())
	}

	buckets := make([]uint64, b.bands)
	buf := make([]byte, 0, b.rows*21)
	for i := 0; i < b.bands; i++ {
		buf = buf[:0]
		for j, v := range signature[i*b.rows : (i+1)*b.rows] {
			if j > 0 {
				buf = append(buf, bandDelimiter)
			}
			buf = strconv.AppendUint(buf, v, 10)
		}
		buckets[i] = b.bandPrefix(i) | (digest(buf) & b.hashMask)
	}
	return buckets, nil
}

// BandOf returns the band index encoded in a bucket.
func (b Banding) BandOf(bucket uint64) int {
	if b.hashBits >= 64 {
		return 0
	}
	return int((bucket >> b.hashBits) & b.bandMask)
}

func (b Banding) bandPrefix(band int) uint64 {
	if b.hashBits >= 64 {
		return 0
	}
	return (uint64(band) & b.bandMask) << b.hashBits
}

// CandidateProbability is the chance that two documents with Jaccard similarity s
// share at least one bucket: 1 - (1 - s^rows)^bands.
func (b Banding) CandidateProbability(s float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return 1 - math.Pow(1-math.Pow(s, float64(b.rows)), float64(b.bands))
}

// Threshold approximates the similarity at which the candidate probability curve
// is steepest: (1/bands)^(1/rows).
func (b Banding) Threshold() float64 {
	return math.Pow(1/float64(b.bands), 1/float64(b.rows))
}

// digest returns the low-order 64 bits of the big-endian blake2b-256 digest of data.
func digest(data []byte) uint64 {
	sum := blake2b.Sum256(data)
	return binary.BigEndian.Uint64(sum[len(sum)-8:])
}
