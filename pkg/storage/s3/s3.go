package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/feichai0017/doc-converter/config"
	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

const resultPrefix = "results/"

type S3Store struct {
	client     *s3.Client
	bucketName string
	region     string
	logger     logger.Logger
}

func resultKey(taskID string) string {
	return resultPrefix + taskID + ".json"
}

// StoreResult implements ResultStore.StoreResult
func (s *S3Store) StoreResult(ctx context.Context, taskID string, envelope *models.ResponseEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	key := resultKey(taskID)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	}

	_, err = s.client.PutObject(ctx, input)
	if err != nil {
		s.logger.Error("Failed to store result to S3",
			logger.String("bucket", s.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to store result: %w", err)
	}

	return nil
}

// GetResult implements ResultStore.GetResult
func (s *S3Store) GetResult(ctx context.Context, taskID string) (*models.ResponseEnvelope, error) {
	key := resultKey(taskID)
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	result, err := s.client.GetObject(ctx, input)
	if err != nil {
		s.logger.Error("Failed to get result from S3",
			logger.String("bucket", s.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer result.Body.Close()

	var envelope models.ResponseEnvelope
	if err := json.NewDecoder(result.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", key, err)
	}

	return &envelope, nil
}

// DeleteResult implements ResultStore.DeleteResult
func (s *S3Store) DeleteResult(ctx context.Context, taskID string) error {
	key := resultKey(taskID)
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	_, err := s.client.DeleteObject(ctx, input)
	if err != nil {
		s.logger.Error("Failed to delete result from S3",
			logger.String("bucket", s.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to delete result: %w", err)
	}

	return nil
}

// CleanupBefore implements ResultStore.CleanupBefore
func (s *S3Store) CleanupBefore(ctx context.Context, threshold time.Time) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(resultPrefix),
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("Failed to list results",
				logger.String("bucket", s.bucketName),
				logger.Error(err),
			)
			return fmt.Errorf("failed to list results: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.LastModified.Before(threshold) {
				deleteInput := &s3.DeleteObjectInput{
					Bucket: aws.String(s.bucketName),
					Key:    obj.Key,
				}
				if _, err := s.client.DeleteObject(ctx, deleteInput); err != nil {
					s.logger.Error("Failed to delete expired result",
						logger.String("key", *obj.Key),
						logger.Error(err),
					)
					continue
				}
				s.logger.Info("Deleted expired result",
					logger.String("key", *obj.Key),
					logger.Time("lastModified", *obj.LastModified),
				)
			}
		}
	}

	return nil
}

func NewS3Store(log logger.Logger) (*S3Store, error) {
	s3Config := cfg.GetS3Config()

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(s3Config.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3Config.AccessKey,
			s3Config.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	_, err = client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(s3Config.BucketName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: s3Config.BucketName,
		region:     s3Config.Region,
		logger:     log,
	}, nil
}

func GetClient(log logger.Logger) (*S3Store, error) {
	return NewS3Store(log)
}
