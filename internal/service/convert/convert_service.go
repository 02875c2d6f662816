package convert

import (
	"context"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/queue"
)

// Converter is the service surface shared by the HTTP handlers and the
// queue worker.
type Converter interface {
	// Convert runs one job synchronously and always returns an envelope.
	Convert(ctx context.Context, req *models.DocumentRequest) *models.ResponseEnvelope
	// Submit enqueues one job and returns its task.
	Submit(ctx context.Context, req *models.DocumentRequest, priority int) (*models.ConvertTask, error)
	// SubmitBatch enqueues several jobs concurrently.
	SubmitBatch(ctx context.Context, reqs []*models.DocumentRequest, priority int) ([]*models.ConvertTask, error)
	// Status reports the current state of a queued task.
	Status(ctx context.Context, taskID string) (*models.ConvertTask, error)
	// Result returns the stored envelope of a completed task.
	Result(ctx context.Context, taskID string) (*models.ResponseEnvelope, error)
	// Cancel removes a task that has not started yet.
	Cancel(ctx context.Context, taskID string) error
	// HandleTask is the worker-side entry point for one queued job.
	HandleTask(ctx context.Context, payload *queue.ConvertPayload) error
}
