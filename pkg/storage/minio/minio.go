package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/feichai0017/doc-converter/config"
	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

const resultPrefix = "results/"

type MinioStore struct {
	client     *minio.Client
	bucketName string
	logger     logger.Logger
}

func resultKey(taskID string) string {
	return resultPrefix + taskID + ".json"
}

// StoreResult implements ResultStore.StoreResult
func (m *MinioStore) StoreResult(ctx context.Context, taskID string, envelope *models.ResponseEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	key := resultKey(taskID)
	_, err = m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		m.logger.Error("Failed to store result to MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to store result: %w", err)
	}

	return nil
}

// GetResult implements ResultStore.GetResult
func (m *MinioStore) GetResult(ctx context.Context, taskID string) (*models.ResponseEnvelope, error) {
	key := resultKey(taskID)
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		m.logger.Error("Failed to get result from MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer obj.Close()

	var envelope models.ResponseEnvelope
	if err := json.NewDecoder(obj).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", key, err)
	}

	return &envelope, nil
}

// DeleteResult implements ResultStore.DeleteResult
func (m *MinioStore) DeleteResult(ctx context.Context, taskID string) error {
	key := resultKey(taskID)
	err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		m.logger.Error("Failed to delete result from MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to delete result: %w", err)
	}

	return nil
}

// CleanupBefore implements ResultStore.CleanupBefore
func (m *MinioStore) CleanupBefore(ctx context.Context, threshold time.Time) error {
	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix: resultPrefix,
	})

	for obj := range objectCh {
		if obj.Err != nil {
			m.logger.Error("Error listing results",
				logger.String("bucket", m.bucketName),
				logger.Error(obj.Err),
			)
			continue
		}

		if obj.LastModified.Before(threshold) {
			taskID := strings.TrimSuffix(strings.TrimPrefix(obj.Key, resultPrefix), ".json")
			if err := m.DeleteResult(ctx, taskID); err != nil {
				continue
			}
			m.logger.Info("Deleted expired result",
				logger.String("key", obj.Key),
				logger.Time("lastModified", obj.LastModified),
			)
		}
	}

	return nil
}

func NewMinioStore(log logger.Logger) (*MinioStore, error) {
	minioConfig := cfg.GetMinioConfig()
	client, err := minio.New(minioConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioConfig.AccessKey, minioConfig.SecretKey, ""),
		Secure: minioConfig.UseSSL,
		Region: minioConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), minioConfig.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(context.Background(), minioConfig.BucketName, minio.MakeBucketOptions{
			Region: minioConfig.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioStore{
		client:     client,
		bucketName: minioConfig.BucketName,
		logger:     log,
	}, nil
}

func GetClient(log logger.Logger) (*MinioStore, error) {
	return NewMinioStore(log)
}
