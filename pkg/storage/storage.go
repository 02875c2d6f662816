// Package storage persists finished conversion results so async clients
// can retrieve them after the worker has moved on.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
	"github.com/feichai0017/doc-converter/pkg/storage/minio"
	"github.com/feichai0017/doc-converter/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// ResultStore holds one response envelope per task ID.
type ResultStore interface {
	// StoreResult persists the envelope for a finished task.
	StoreResult(ctx context.Context, taskID string, envelope *models.ResponseEnvelope) error
	// GetResult returns the stored envelope for a task.
	GetResult(ctx context.Context, taskID string) (*models.ResponseEnvelope, error)
	// DeleteResult removes a stored envelope.
	DeleteResult(ctx context.Context, taskID string) error
	// CleanupBefore removes envelopes stored before the threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewResultStore is the factory for the configured backend.
func NewResultStore(storageType StorageType, log logger.Logger) (ResultStore, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
