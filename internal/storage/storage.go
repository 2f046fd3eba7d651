package storage

import (
	"context"
	"errors"
)

// PayloadArchive defines the interface for archiving raw provider payloads.
// Ingested activities keep only the fields the product needs; the untouched
// provider JSON goes here, referenced by object key from the activity record.
type PayloadArchive interface {
	// Put stores a payload under the given object key.
	Put(ctx context.Context, objectKey string, contentType string, body []byte) error

	// Get retrieves a previously archived payload.
	Get(ctx context.Context, objectKey string) ([]byte, error)

	// Delete removes an archived payload.
	Delete(ctx context.Context, objectKey string) error
}

// Error constants for the storage layer
var (
	ErrObjectNotFound = errors.New("object not found in storage")
)
