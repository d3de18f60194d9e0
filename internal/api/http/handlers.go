package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/jsruntime/internal/api/middleware"
	"github.com/GriffinCanCode/jsruntime/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/jsruntime/internal/sandbox"
	"github.com/GriffinCanCode/jsruntime/internal/textcodec"
)

// Executor runs scripts. *sandbox.Pool implements it.
type Executor interface {
	Execute(ctx context.Context, script string) (*sandbox.Result, error)
	Stats() map[string]interface{}
}

// Handlers contains all HTTP handlers
type Handlers struct {
	executor       Executor
	ops            textcodec.Dispatcher
	metrics        *monitoring.Metrics
	logger         *zap.Logger
	maxScriptBytes int64
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(
	executor Executor,
	ops textcodec.Dispatcher,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
	maxScriptBytes int64,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		executor:       executor,
		ops:            ops,
		metrics:        metrics,
		logger:         logger,
		maxScriptBytes: maxScriptBytes,
	}
}

// ExecuteRequest is the body of POST /v1/execute.
type ExecuteRequest struct {
	Script string `json:"script"`
}

// ExecuteResponse reports one script execution.
type ExecuteResponse struct {
	ExecutionID string             `json:"execution_id"`
	RequestID   string             `json:"request_id,omitempty"`
	Value       interface{}        `json:"value"`
	Console     []sandbox.LogEntry `json:"console"`
	Tasks       int                `json:"tasks"`
	DurationMs  float64            `json:"duration_ms"`
	Error       string             `json:"error,omitempty"`
}

// Root reports the service and its routes
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "jsruntime",
		"routes": []string{
			"POST /v1/execute",
			"POST /v1/ops/:namespace/:name",
			"GET /v1/stats",
			"GET /health",
			"GET /metrics",
		},
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"pool":   h.executor.Stats(),
	})
}

// Stats returns the JSON metrics snapshot and pool stats
func (h *Handlers) Stats(c *gin.Context) {
	body := gin.H{"pool": h.executor.Stats()}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// Execute runs a script on a pooled runtime
func (h *Handlers) Execute(c *gin.Context) {
	if h.maxScriptBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxScriptBytes)
	}

	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("script exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Script == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "script is required"})
		return
	}

	reqID := middleware.RequestIDFrom(c.Request.Context())
	result, err := h.executor.Execute(c.Request.Context(), req.Script)
	if result == nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sandbox.ErrPoolClosed) || errors.Is(err, sandbox.ErrTimeout) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Warn("execution not started", zap.String("request_id", reqID), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := ExecuteResponse{
		ExecutionID: result.ExecutionID,
		RequestID:   reqID,
		Value:       jsonSafe(result.Value),
		Console:     result.Console,
		Tasks:       result.Tasks,
		DurationMs:  float64(result.Duration.Microseconds()) / 1000,
	}
	if err != nil {
		resp.Error = err.Error()
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// jsonSafe keeps values the JSON encoder accepts and renders the rest (JS
// functions, cyclic objects) as strings.
func jsonSafe(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if _, err := sonic.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
