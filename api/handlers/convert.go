package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/internal/service/convert"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

type ConvertHandler struct {
	service convert.Converter
	logger  logger.Logger
}

// ErrorResponse is the body for request-level failures (bad JSON,
// unknown task). Conversion failures use the response envelope instead.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TaskResponse describes a queued task.
type TaskResponse struct {
	TaskID    string  `json:"taskId"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Error     string  `json:"error,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// BatchRequest wraps multiple conversion requests.
type BatchRequest struct {
	Documents []*models.DocumentRequest `json:"documents"`
}

func NewConvertHandler(service convert.Converter, log logger.Logger) *ConvertHandler {
	return &ConvertHandler{
		service: service,
		logger:  log,
	}
}

// ConvertSync runs one conversion in the request and returns the
// envelope directly.
func (h *ConvertHandler) ConvertSync(c *gin.Context) {
	var req models.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	envelope := h.service.Convert(c.Request.Context(), &req)
	c.JSON(statusCodeFor(envelope), envelope)
}

// Submit enqueues one conversion and returns its task ID.
func (h *ConvertHandler) Submit(c *gin.Context) {
	var req models.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	task, err := h.service.Submit(c.Request.Context(), &req, 2)
	if err != nil {
		if models.KindOf(err) == models.KindInvalidConfiguration {
			h.handleError(c, http.StatusBadRequest, "Invalid request", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to submit task", err)
		return
	}

	c.JSON(http.StatusAccepted, taskResponse(task))
}

// SubmitBatch enqueues several conversions at once.
func (h *ConvertHandler) SubmitBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Documents) == 0 {
		h.handleError(c, http.StatusBadRequest, "No documents provided", nil)
		return
	}

	tasks, err := h.service.SubmitBatch(c.Request.Context(), req.Documents, 2)
	if err != nil {
		// Partial submissions are reported alongside the error.
		responses := make([]TaskResponse, len(tasks))
		for i, task := range tasks {
			responses[i] = taskResponse(task)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"tasks": responses,
		})
		return
	}

	responses := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = taskResponse(task)
	}
	c.JSON(http.StatusAccepted, gin.H{"tasks": responses})
}

// GetStatus reports the state of a queued task.
func (h *ConvertHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.Status(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Task not found", err)
		return
	}

	c.JSON(http.StatusOK, taskResponse(task))
}

// GetResult returns the stored envelope of a finished task.
func (h *ConvertHandler) GetResult(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	envelope, err := h.service.Result(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Result not available", err)
		return
	}

	c.JSON(statusCodeFor(envelope), envelope)
}

// CancelTask removes a pending task from the queue.
func (h *ConvertHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), taskID); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

// Health is the unauthenticated liveness probe.
func (h *ConvertHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusCodeFor maps an envelope's error kind to an HTTP status.
func statusCodeFor(envelope *models.ResponseEnvelope) int {
	if envelope.Succeeded() {
		return http.StatusOK
	}

	switch models.ErrorKind(envelope.ErrorKind) {
	case models.KindInvalidConfiguration, models.KindDecode:
		return http.StatusBadRequest
	case models.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case models.KindFetch:
		return http.StatusBadGateway
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func taskResponse(task *models.ConvertTask) TaskResponse {
	resp := TaskResponse{
		TaskID:   task.ID,
		Status:   string(task.Status),
		Progress: task.Progress,
		Error:    task.Error,
	}
	if !task.CreatedAt.IsZero() {
		resp.CreatedAt = task.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !task.UpdatedAt.IsZero() {
		resp.UpdatedAt = task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// handleError logs and writes a request-level error.
func (h *ConvertHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
