package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusValues(t *testing.T) {
	assert.Equal(t, TaskStatus("pending"), TaskStatusPending)
	assert.Equal(t, TaskStatus("running"), TaskStatusRunning)
	assert.Equal(t, TaskStatus("completed"), TaskStatusCompleted)
	assert.Equal(t, TaskStatus("failed"), TaskStatusFailed)
	assert.Equal(t, TaskStatus("cancelled"), TaskStatusCancelled)
}

func TestConvertTaskJSONRoundTrip(t *testing.T) {
	task := &ConvertTask{
		ID:        "abc-123",
		Status:    TaskStatusRunning,
		Progress:  0.5,
		Metadata:  map[string]string{"filename": "a.pdf"},
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"running"`)

	var decoded ConvertTask
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TaskStatusRunning, decoded.Status)
	assert.Equal(t, task.ID, decoded.ID)
}
