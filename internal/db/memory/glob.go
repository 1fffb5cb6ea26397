package memory

import (
	"errors"
	"strings"
)

var errClosed = errors.New("store closed")

// matchGlob supports the one SCAN MATCH form the repositories issue:
// a literal prefix followed by a single trailing '*'. Any other pattern
// matches only the identical key.
func matchGlob(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return pattern == key
}
