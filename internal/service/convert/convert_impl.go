package convert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/feichai0017/doc-converter/config"
	"github.com/feichai0017/doc-converter/internal/capability"
	pipeline "github.com/feichai0017/doc-converter/internal/convert"
	"github.com/feichai0017/doc-converter/internal/engine"
	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/internal/staging"
	"github.com/feichai0017/doc-converter/pkg/logger"
	"github.com/feichai0017/doc-converter/pkg/queue"
	"github.com/feichai0017/doc-converter/pkg/storage"
)

type ConvertService struct {
	orchestrator *pipeline.Orchestrator
	queue        queue.Queue
	store        storage.ResultStore
	logger       logger.Logger
	cfg          *ServiceConfig
}

type ServiceConfig struct {
	MaxConcurrent   int
	RetentionPeriod time.Duration
}

func NewService(
	orchestrator *pipeline.Orchestrator,
	q queue.Queue,
	store storage.ResultStore,
	log logger.Logger,
	cfg *ServiceConfig,
) Converter {
	if cfg == nil {
		cfg = &ServiceConfig{
			MaxConcurrent:   5,
			RetentionPeriod: 24 * time.Hour,
		}
	}

	return &ConvertService{
		orchestrator: orchestrator,
		queue:        q,
		store:        store,
		logger:       log,
		cfg:          cfg,
	}
}

// GetService wires the full pipeline from the process configuration.
func GetService(log logger.Logger) (Converter, error) {
	cfg := appcfg.GetAppConfig()

	factoryCfg := engine.FactoryConfig{
		OCRLanguages: cfg.OCRLanguages,
	}
	if cfg.DoclingEndpoint != "" {
		factoryCfg.Docling = &engine.DoclingConfig{
			Endpoint: cfg.DoclingEndpoint,
			Timeout:  cfg.ConvertTimeout,
		}
	}
	if cfg.OllamaEndpoint != "" {
		factoryCfg.Ollama = &engine.OllamaConfig{
			Endpoint: cfg.OllamaEndpoint,
			Model:    cfg.OllamaModel,
		}
	}
	if textract := appcfg.GetTextractConfig(); textract.Region != "" {
		factoryCfg.Textract = &engine.TextractConfig{
			Region:    textract.Region,
			AccessKey: textract.AccessKey,
			SecretKey: textract.SecretKey,
		}
	}

	factory, err := engine.NewFactory(context.Background(), factoryCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine factory: %w", err)
	}

	stager := staging.NewStager(staging.Config{
		MaxBytes:     cfg.MaxFileSize,
		FetchTimeout: cfg.FetchTimeout,
		TempDir:      cfg.TempDir,
	}, log)

	orchestrator := pipeline.NewOrchestrator(stager, factory, pipeline.Config{
		DefaultCapability: capability.Level(cfg.DeviceCapability),
		ConvertTimeout:    cfg.ConvertTimeout,
		MaxPages:          cfg.MaxPages,
	}, log)

	q, err := queue.NewAsynqQueue(&queue.Config{
		RedisAddr:      cfg.RedisAddr,
		RedisDB:        cfg.RedisDB,
		ProcessTimeout: cfg.ConvertTimeout + cfg.FetchTimeout,
		Concurrency:    cfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	store, err := storage.NewResultStore(storage.StorageType(cfg.StorageType), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return NewService(orchestrator, q, store, log, &ServiceConfig{
		MaxConcurrent:   cfg.Concurrency,
		RetentionPeriod: 24 * time.Hour,
	}), nil
}

// Convert implements Converter.Convert
func (s *ConvertService) Convert(ctx context.Context, req *models.DocumentRequest) *models.ResponseEnvelope {
	return s.orchestrator.Process(ctx, req)
}

// Submit implements Converter.Submit
func (s *ConvertService) Submit(ctx context.Context, req *models.DocumentRequest, priority int) (*models.ConvertTask, error) {
	// Reject malformed requests before they reach the queue.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.ConvertTask{
		ID:       uuid.New().String(),
		Status:   models.TaskStatusPending,
		Progress: 0,
		Metadata: map[string]string{
			"source":   req.Source(),
			"filename": req.InferredFilename(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload := &queue.ConvertPayload{
		ID:        task.ID,
		Request:   req,
		Priority:  priority,
		CreatedAt: now,
	}

	if err := s.queue.Enqueue(ctx, payload); err != nil {
		s.logger.Error("Failed to enqueue conversion",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("Conversion task created",
		logger.String("taskId", task.ID),
		logger.String("source", req.Source()),
	)

	return task, nil
}

// SubmitBatch implements Converter.SubmitBatch
func (s *ConvertService) SubmitBatch(ctx context.Context, reqs []*models.DocumentRequest, priority int) ([]*models.ConvertTask, error) {
	tasks := make([]*models.ConvertTask, 0, len(reqs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for _, req := range reqs {
		req := req
		g.Go(func() error {
			task, err := s.Submit(ctx, req, priority)
			if err != nil {
				return err
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, nil
}

// Status implements Converter.Status
func (s *ConvertService) Status(ctx context.Context, taskID string) (*models.ConvertTask, error) {
	task, err := s.queue.GetStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}
	return task, nil
}

// Result implements Converter.Result
func (s *ConvertService) Result(ctx context.Context, taskID string) (*models.ResponseEnvelope, error) {
	task, err := s.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusCompleted && task.Status != models.TaskStatusFailed {
		return nil, fmt.Errorf("task is not finished: %s", task.Status)
	}

	envelope, err := s.store.GetResult(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return envelope, nil
}

// Cancel implements Converter.Cancel
func (s *ConvertService) Cancel(ctx context.Context, taskID string) error {
	if err := s.queue.Cancel(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled",
		logger.String("taskId", taskID),
	)
	return nil
}

// HandleTask implements Converter.HandleTask. The orchestrator never
// returns an error, so a failed conversion still stores its error
// envelope and the task counts as processed; only infrastructure
// failures bubble up for asynq to retry.
func (s *ConvertService) HandleTask(ctx context.Context, payload *queue.ConvertPayload) error {
	if payload == nil || payload.Request == nil {
		return fmt.Errorf("invalid task: missing request")
	}

	running := &models.ConvertTask{
		ID:        payload.ID,
		Status:    models.TaskStatusRunning,
		Progress:  0.5,
		CreatedAt: payload.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if err := s.queue.SaveStatus(ctx, running); err != nil {
		s.logger.Error("Failed to save running status",
			logger.String("taskId", payload.ID),
			logger.Error(err),
		)
	}

	envelope := s.orchestrator.Process(ctx, payload.Request)

	if err := s.store.StoreResult(ctx, payload.ID, envelope); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	final := &models.ConvertTask{
		ID:        payload.ID,
		Progress:  1.0,
		CreatedAt: payload.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if envelope.Succeeded() {
		final.Status = models.TaskStatusCompleted
	} else {
		final.Status = models.TaskStatusFailed
		final.Error = envelope.Error
	}

	if err := s.queue.SaveStatus(ctx, final); err != nil {
		s.logger.Error("Failed to save final status",
			logger.String("taskId", payload.ID),
			logger.Error(err),
		)
	}

	s.logger.Info("Conversion task finished",
		logger.String("taskId", payload.ID),
		logger.String("status", string(final.Status)),
	)
	return nil
}

// CleanupResults removes stored envelopes older than the retention
// period.
func (s *ConvertService) CleanupResults(ctx context.Context) error {
	threshold := time.Now().Add(-s.cfg.RetentionPeriod)

	if err := s.store.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup results: %w", err)
	}

	s.logger.Info("Completed results cleanup",
		logger.Time("threshold", threshold),
	)
	return nil
}
