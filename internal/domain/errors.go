package domain

import "errors"

var (
	// ErrNotFound signals a missing dataset.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidConfig signals an unusable dataset hashing configuration.
	ErrInvalidConfig = errors.New("invalid dataset config")
	// ErrInvalidRequest signals malformed input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDatasetKeyExhausted signals that every candidate dataset key is held by another file.
	ErrDatasetKeyExhausted = errors.New("unable to allocate dataset key")
)
