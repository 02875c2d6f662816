package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/doc-converter/internal/service/convert"
	"github.com/feichai0017/doc-converter/pkg/logger"
	"github.com/feichai0017/doc-converter/pkg/queue"
)

// ConvertWorker consumes conversion tasks and hands them to the
// service layer.
type ConvertWorker struct {
	BaseWorker
	service convert.Converter
}

func NewConvertWorker(cfg *Config, service convert.Converter, log logger.Logger) (*ConvertWorker, error) {
	if cfg.Queues == nil {
		cfg.Queues = map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		}
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &ConvertWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		service: service,
	}

	w.mux.HandleFunc(queue.TaskTypeConvert, w.handleConvert)
	return w, nil
}

func (w *ConvertWorker) handleConvert(ctx context.Context, t *asynq.Task) error {
	var payload queue.ConvertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	if payload.ID == "" || payload.Request == nil {
		w.logger.Error("Invalid task data",
			logger.String("taskId", payload.ID),
		)
		return fmt.Errorf("invalid task data: missing required fields")
	}

	w.logger.Info("Processing conversion task",
		logger.String("taskId", payload.ID),
		logger.String("source", payload.Request.Source()),
	)

	if err := w.service.HandleTask(ctx, &payload); err != nil {
		w.logger.Error("Conversion task failed",
			logger.String("taskId", payload.ID),
			logger.Error(err),
		)
		return err
	}

	return nil
}

func (w *ConvertWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
