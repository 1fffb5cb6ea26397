package dataset

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"

	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
)

// lockedSource serializes access to a SeedSource shared by concurrent creators.
type lockedSource struct {
	mu  sync.Mutex
	src domds.SeedSource
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}

// newSeedSource returns a ChaCha8 generator keyed from the OS entropy pool.
func newSeedSource() domds.SeedSource {
	var key [32]byte
	_, _ = crand.Read(key[:]) // crypto/rand.Read never returns an error
	return rand.NewChaCha8(key)
}
