// Package queue wraps asynq for the async conversion path. Task status
// is mirrored into redis so it survives asynq's retention window.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/doc-converter/internal/models"
)

const (
	// TaskTypeConvert is the single task type this service processes.
	TaskTypeConvert = "convert:document"

	statusKeyFormat = "convert_status:%s"
	statusTTL       = 24 * time.Hour
)

// ConvertPayload is the serialized body of a queued conversion task.
type ConvertPayload struct {
	ID        string                  `json:"id"`
	Request   *models.DocumentRequest `json:"request"`
	Priority  int                     `json:"priority"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Queue is the producer/status side of the task queue. The consumer
// side lives in pkg/worker.
type Queue interface {
	Enqueue(ctx context.Context, payload *ConvertPayload) error
	GetStatus(ctx context.Context, taskID string) (*models.ConvertTask, error)
	Cancel(ctx context.Context, taskID string) error
	SaveStatus(ctx context.Context, task *models.ConvertTask) error
	Close() error
}

type Config struct {
	RedisAddr      string
	RedisDB        int
	MaxRetries     int
	RetryDelay     time.Duration
	ProcessTimeout time.Duration
	Concurrency    int
}

// AsynqQueue implements Queue on top of asynq plus a raw redis client
// for status bookkeeping.
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	cfg       *Config
}

func NewAsynqQueue(cfg *Config) (*AsynqQueue, error) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Minute
	}
	if cfg.ProcessTimeout == 0 {
		cfg.ProcessTimeout = 30 * time.Minute
	}

	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     redisClient,
		cfg:       cfg,
	}, nil
}

// Enqueue submits a conversion task and records its pending status.
func (q *AsynqQueue) Enqueue(ctx context.Context, payload *ConvertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(q.cfg.MaxRetries),
		asynq.Timeout(q.cfg.ProcessTimeout),
		asynq.TaskID(payload.ID),
	}

	switch payload.Priority {
	case 1:
		opts = append(opts, asynq.Queue("critical"))
	case 2:
		opts = append(opts, asynq.Queue("default"))
	default:
		opts = append(opts, asynq.Queue("low"))
	}

	t := asynq.NewTask(TaskTypeConvert, data, opts...)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	now := time.Now()
	return q.SaveStatus(ctx, &models.ConvertTask{
		ID:        payload.ID,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// GetStatus reads the mirrored status from redis first and falls back
// to inspecting asynq's queues.
func (q *AsynqQueue) GetStatus(ctx context.Context, taskID string) (*models.ConvertTask, error) {
	key := fmt.Sprintf(statusKeyFormat, taskID)
	data, err := q.redis.Get(ctx, key).Bytes()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	if err == nil {
		var task models.ConvertTask
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &task, nil
	}

	queues := []string{"critical", "default", "low"}
	var info *asynq.TaskInfo
	var lastErr error
	for _, queueName := range queues {
		info, err = q.inspector.GetTaskInfo(queueName, taskID)
		if err == nil {
			break
		}
		lastErr = err
	}
	if lastErr != nil && info == nil {
		return nil, fmt.Errorf("task not found: %w", lastErr)
	}

	task := convertTaskInfo(info)
	if err := q.SaveStatus(ctx, task); err != nil {
		return task, nil
	}
	return task, nil
}

// Cancel removes a task that has not started yet. Running tasks finish
// on their own; their status still reflects the final outcome.
func (q *AsynqQueue) Cancel(ctx context.Context, taskID string) error {
	queues := []string{"critical", "default", "low"}
	var lastErr error
	for _, queueName := range queues {
		err := q.inspector.DeleteTask(queueName, taskID)
		if err == nil {
			now := time.Now()
			return q.SaveStatus(ctx, &models.ConvertTask{
				ID:        taskID,
				Status:    models.TaskStatusCancelled,
				UpdatedAt: now,
			})
		}
		lastErr = err
	}
	return fmt.Errorf("failed to cancel task: %w", lastErr)
}

// SaveStatus mirrors a task status into redis with a 24h TTL.
func (q *AsynqQueue) SaveStatus(ctx context.Context, task *models.ConvertTask) error {
	key := fmt.Sprintf(statusKeyFormat, task.ID)
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := q.redis.Set(ctx, key, data, statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}

func convertTaskInfo(info *asynq.TaskInfo) *models.ConvertTask {
	task := &models.ConvertTask{
		ID:        info.ID,
		UpdatedAt: time.Now(),
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled:
		task.Status = models.TaskStatusPending
	case asynq.TaskStateActive:
		task.Status = models.TaskStatusRunning
		task.Progress = 0.5
	case asynq.TaskStateCompleted:
		task.Status = models.TaskStatusCompleted
		task.Progress = 1.0
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		task.Status = models.TaskStatusFailed
		task.Error = info.LastErr
	default:
		task.Status = models.TaskStatusPending
	}

	return task
}
