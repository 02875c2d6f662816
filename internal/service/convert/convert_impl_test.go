package convert

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-converter/internal/capability"
	pipeline "github.com/feichai0017/doc-converter/internal/convert"
	"github.com/feichai0017/doc-converter/internal/engine"
	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/internal/staging"
	"github.com/feichai0017/doc-converter/pkg/logger"
	"github.com/feichai0017/doc-converter/pkg/queue"
)

type stubQueue struct {
	enqueued   []*queue.ConvertPayload
	statuses   []*models.ConvertTask
	status     *models.ConvertTask
	cancelled  []string
	enqueueErr error
}

func (q *stubQueue) Enqueue(_ context.Context, payload *queue.ConvertPayload) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, payload)
	return nil
}

func (q *stubQueue) GetStatus(_ context.Context, taskID string) (*models.ConvertTask, error) {
	if q.status == nil {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	return q.status, nil
}

func (q *stubQueue) Cancel(_ context.Context, taskID string) error {
	q.cancelled = append(q.cancelled, taskID)
	return nil
}

func (q *stubQueue) SaveStatus(_ context.Context, task *models.ConvertTask) error {
	q.statuses = append(q.statuses, task)
	return nil
}

func (q *stubQueue) Close() error { return nil }

type stubStore struct {
	results map[string]*models.ResponseEnvelope
}

func newStubStore() *stubStore {
	return &stubStore{results: make(map[string]*models.ResponseEnvelope)}
}

func (s *stubStore) StoreResult(_ context.Context, taskID string, envelope *models.ResponseEnvelope) error {
	s.results[taskID] = envelope
	return nil
}

func (s *stubStore) GetResult(_ context.Context, taskID string) (*models.ResponseEnvelope, error) {
	envelope, ok := s.results[taskID]
	if !ok {
		return nil, fmt.Errorf("result not found: %s", taskID)
	}
	return envelope, nil
}

func (s *stubStore) DeleteResult(_ context.Context, taskID string) error {
	delete(s.results, taskID)
	return nil
}

func (s *stubStore) CleanupBefore(context.Context, time.Time) error { return nil }

type localSelector struct {
	local *engine.LocalEngine
}

func (s *localSelector) EngineFor(string, capability.Profile) (engine.Engine, error) {
	return s.local, nil
}

func newTestService(t *testing.T, q queue.Queue, store *stubStore) Converter {
	t.Helper()
	log := logger.NewTestLogger()
	stager := staging.NewStager(staging.Config{
		MaxBytes:     1 << 20,
		FetchTimeout: 5 * time.Second,
		TempDir:      t.TempDir(),
	}, log)
	orchestrator := pipeline.NewOrchestrator(stager, &localSelector{local: engine.NewLocalEngine(log)}, pipeline.Config{
		DefaultCapability: capability.Low,
	}, log)
	return NewService(orchestrator, q, store, log, nil)
}

func inlineText(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestSubmitEnqueuesPendingTask(t *testing.T) {
	q := &stubQueue{}
	svc := newTestService(t, q, newStubStore())

	task, err := svc.Submit(context.Background(), &models.DocumentRequest{
		DocumentBytes: inlineText("hello"),
		Filename:      "note.txt",
	}, 2)

	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	require.Len(t, q.enqueued, 1)
	assert.Equal(t, task.ID, q.enqueued[0].ID)
	assert.Equal(t, "note.txt", task.Metadata["filename"])
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	q := &stubQueue{}
	svc := newTestService(t, q, newStubStore())

	_, err := svc.Submit(context.Background(), &models.DocumentRequest{
		DocumentURL:   "https://example.com/a.pdf",
		DocumentBytes: inlineText("x"),
	}, 2)

	require.Error(t, err)
	assert.Equal(t, models.KindInvalidConfiguration, models.KindOf(err))
	assert.Empty(t, q.enqueued, "invalid requests must not reach the queue")
}

func TestSubmitBatch(t *testing.T) {
	q := &stubQueue{}
	svc := newTestService(t, q, newStubStore())

	reqs := []*models.DocumentRequest{
		{DocumentBytes: inlineText("one"), Filename: "1.txt"},
		{DocumentBytes: inlineText("two"), Filename: "2.txt"},
		{DocumentBytes: inlineText("three"), Filename: "3.txt"},
	}

	tasks, err := svc.SubmitBatch(context.Background(), reqs, 2)

	require.NoError(t, err)
	assert.Len(t, tasks, 3)
	assert.Len(t, q.enqueued, 3)
}

func TestHandleTaskStoresSuccessEnvelope(t *testing.T) {
	q := &stubQueue{}
	store := newStubStore()
	svc := newTestService(t, q, store)

	err := svc.HandleTask(context.Background(), &queue.ConvertPayload{
		ID:        "task-1",
		Request:   &models.DocumentRequest{DocumentBytes: inlineText("body"), Filename: "a.txt"},
		CreatedAt: time.Now(),
	})

	require.NoError(t, err)
	envelope, ok := store.results["task-1"]
	require.True(t, ok, "envelope must be stored")
	assert.Equal(t, models.StatusSuccess, envelope.Status)

	require.Len(t, q.statuses, 2)
	assert.Equal(t, models.TaskStatusRunning, q.statuses[0].Status)
	assert.Equal(t, models.TaskStatusCompleted, q.statuses[1].Status)
	assert.Equal(t, 1.0, q.statuses[1].Progress)
}

func TestHandleTaskStoresErrorEnvelope(t *testing.T) {
	q := &stubQueue{}
	store := newStubStore()
	svc := newTestService(t, q, store)

	// Invalid request: the conversion fails but the task itself is
	// processed, so no error reaches asynq.
	err := svc.HandleTask(context.Background(), &queue.ConvertPayload{
		ID: "task-2",
		Request: &models.DocumentRequest{
			DocumentURL:   "https://example.com/a.pdf",
			DocumentBytes: inlineText("x"),
		},
		CreatedAt: time.Now(),
	})

	require.NoError(t, err)
	envelope, ok := store.results["task-2"]
	require.True(t, ok)
	assert.Equal(t, models.StatusError, envelope.Status)

	final := q.statuses[len(q.statuses)-1]
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.NotEmpty(t, final.Error)
}

func TestHandleTaskRejectsMissingRequest(t *testing.T) {
	svc := newTestService(t, &stubQueue{}, newStubStore())

	err := svc.HandleTask(context.Background(), &queue.ConvertPayload{ID: "task-3"})

	assert.Error(t, err)
}

func TestResultRequiresFinishedTask(t *testing.T) {
	q := &stubQueue{status: &models.ConvertTask{
		ID:     "task-4",
		Status: models.TaskStatusRunning,
	}}
	svc := newTestService(t, q, newStubStore())

	_, err := svc.Result(context.Background(), "task-4")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finished")
}

func TestResultReturnsStoredEnvelope(t *testing.T) {
	q := &stubQueue{status: &models.ConvertTask{
		ID:     "task-5",
		Status: models.TaskStatusCompleted,
	}}
	store := newStubStore()
	store.results["task-5"] = &models.ResponseEnvelope{
		Status:  models.StatusSuccess,
		Content: "# done",
	}
	svc := newTestService(t, q, store)

	envelope, err := svc.Result(context.Background(), "task-5")

	require.NoError(t, err)
	assert.Equal(t, "# done", envelope.Content)
}

func TestCancel(t *testing.T) {
	q := &stubQueue{}
	svc := newTestService(t, q, newStubStore())

	require.NoError(t, svc.Cancel(context.Background(), "task-6"))
	assert.Equal(t, []string{"task-6"}, q.cancelled)
}

func TestConvertSyncReturnsEnvelope(t *testing.T) {
	svc := newTestService(t, &stubQueue{}, newStubStore())

	envelope := svc.Convert(context.Background(), &models.DocumentRequest{
		DocumentBytes: inlineText("plain prose\n"),
		Filename:      "prose.txt",
	})

	require.Equal(t, models.StatusSuccess, envelope.Status, "error: %s", envelope.Error)
	assert.Contains(t, envelope.Content, "plain prose")
	assert.Equal(t, "low", envelope.Metadata.DeviceCapability)
}
