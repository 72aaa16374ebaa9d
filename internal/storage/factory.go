// Package storage provides blob-based persistence with pluggable backends.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/assessor/internal/common"
)

// Backend type constants.
const (
	BackendFile = "file"
	BackendGCS  = "gcs"
	BackendS3   = "s3"
)

// NewBlobStore creates a blob store based on the configuration.
// Supported backends: "file" (default) and "s3". "gcs" is recognised but
// returns a not-implemented error.
func NewBlobStore(ctx context.Context, logger *common.Logger, config *BlobStoreConfig) (BlobStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendFile // Default to file backend
	}

	switch backend {
	case BackendFile:
		return NewFileBlobStore(logger, &config.File)

	case BackendGCS:
		return nil, fmt.Errorf("GCS blob store not yet implemented")

	case BackendS3:
		return NewS3BlobStore(ctx, logger, &config.S3)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, s3)", backend)
	}
}
