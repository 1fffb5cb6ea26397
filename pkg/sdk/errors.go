package lshdex

import (
	"errors"

	"github.com/kailas-cloud/lshdex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound            = domain.ErrNotFound
	ErrAlreadyExists       = domain.ErrAlreadyExists
	ErrDocumentNotFound    = domain.ErrDocumentNotFound
	ErrInvalidConfig       = domain.ErrInvalidConfig
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrDatasetKeyExhausted = domain.ErrDatasetKeyExhausted
)

var errUnhealthy = errors.New("lshdex: backend unhealthy")
