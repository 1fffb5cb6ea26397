package lsh

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/lshdex/internal/shingle"
)

// Signer computes MinHash signatures for one dataset configuration.
// A Signer is immutable and safe for concurrent use.
type Signer struct {
	seeds       []uint64
	modulo      uint64
	shingleType shingle.Type
	maxMask     uint64
}

// NewSigner builds a Signer. len(seeds) is the signature length.
func NewSigner(seeds []uint64, modulo uint64, shingleType shingle.Type, bitWidth uint) (Signer, error) {
	if len(seeds) == 0 {
		return Signer{}, fmt.Errorf("at least one seed is required")
	}
	if modulo == 0 {
		return Signer{}, fmt.Errorf("modulo must be positive")
	}
	if !shingleType.IsValid() {
		return Signer{}, fmt.Errorf("unknown shingle type %q", shingleType)
	}
	if bitWidth < 1 || bitWidth > MaxBitWidth {
		return Signer{}, fmt.Errorf("bit width must be between 1 and %d, got %d", MaxBitWidth, bitWidth)
	}
	if modulo > MaxModulo(bitWidth) {
		return Signer{}, fmt.Errorf(
			"modulo %d exceeds %d, the largest allowed at bit width %d", modulo, MaxModulo(bitWidth), bitWidth,
		)
	}

	owned := make([]uint64, len(seeds))
	copy(owned, seeds)
	return Signer{
		seeds:       owned,
		modulo:      modulo,
		shingleType: shingleType,
		maxMask:     lowMask(bitWidth),
	}, nil
}

// MaxModulo is the largest modulo usable at bitWidth. Every slot value is then
// below the sentinel, so only empty documents carry an all-sentinel signature.
func MaxModulo(bitWidth uint) uint64 { return lowMask(bitWidth) }

// Hashes returns the signature length.
func (s Signer) Hashes() int { return len(s.seeds) }

// Sentinel is the initial value of every signature slot.
func (s Signer) Sentinel() uint64 { return s.maxMask }

// Sign computes the MinHash signature of a shingle set.
// Slot h holds min over shingles of (baseHash XOR seeds[h]) mod modulo.
// An empty set yields a signature made entirely of the sentinel.
func (s Signer) Sign(shingles shingle.Set) []uint64 {
	sig := make([]uint64, len(s.seeds))
	for h := range sig {
		sig[h] = s.maxMask
	}

	for sh := range shingles {
		base := BaseHash(sh, s.shingleType, s.maxMask)
		for h, seed := range s.seeds {
			if v := (base ^ seed) % s.modulo; v < sig[h] {
				sig[h] = v
			}
		}
	}
	return sig
}

// BaseHash maps a shingle to a non-negative integer masked to maxMask.
func BaseHash(sh string, t shingle.Type, maxMask uint64) uint64 {
	if t == shingle.C4 {
		return c4Hash([]byte(sh)) & maxMask
	}
	return xxhash.Sum64String(sh) & maxMask
}

// c4Hash reads a 4-byte shingle as a little-endian signed 32-bit integer.
// Longer input is split into 4-byte big-endian chunks that are XOR-folded;
// a trailing partial chunk is dropped. Input shorter than 4 bytes is read
// big-endian as a single chunk.
func c4Hash(b []byte) uint64 {
	if len(b) == 4 {
		return uint64(int64(int32(binary.LittleEndian.Uint32(b))))
	}
	if len(b) < 4 {
		var h uint64
		for _, c := range b {
			h = h<<8 | uint64(c)
		}
		return h
	}

	var h uint64
	for i := 0; i+4 <= len(b); i += 4 {
		h ^= uint64(binary.BigEndian.Uint32(b[i : i+4]))
	}
	return h
}
