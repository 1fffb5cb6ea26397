package dataset

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// keySpace bounds candidate dataset keys to k0000..k9999.
const keySpace = 10000

// CandidateKey derives the dataset key tried on the given attempt.
// Each attempt pads the input with one more space, so a collision moves to a new key.
func CandidateKey(source, filename string, attempt int) string {
	h := xxhash.Sum64String(source + filename + strings.Repeat(" ", attempt))
	return fmt.Sprintf("k%04d", h%keySpace)
}
