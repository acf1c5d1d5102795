package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portscanner/scanner"
)

// Server bundles dependencies for HTTP handlers.
type Server struct {
	store  TaskStore
	logger *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(store TaskStore, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// RegisterRoutes attaches handlers to the provided Gin router group.
func (s *Server) RegisterRoutes(routes gin.IRoutes) {
	routes.POST("/scans", s.createScanHandler)
	routes.GET("/scans/:id", s.getScanHandler)
	routes.GET("/version", s.versionHandler)
}

// @Summary      Create a new scan task
// @Description  Validate a TCP port scan request and queue it for a background worker. Invalid addresses or port ranges are rejected synchronously and no task is created.
// @Description  **Lifecycle**: the response carries the task identifier. Poll GET /scans/{id} to observe pending → running → completed, partial or failed.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        scanRequest  body      CreateScanRequest      true  "Scan request parameters"
// @Success      202          {object}  ScanAcceptedResponse  "Scan accepted"
// @Failure      400          {object}  ErrorResponse         "Malformed body, wrong argument type (kind invalid_argument) or port outside 1-65535 / inverted range (kind out_of_range)"
// @Failure      401          {object}  ErrorResponse         "Missing or incorrect API key"
// @Failure      429          {object}  ErrorResponse         "Rate limit exceeded for the calling client"
// @Failure      500          {object}  ErrorResponse         "Internal error while persisting or queueing the task"
// @Security     ApiKeyAuth
// @Router       /scans [post]
func (s *Server) createScanHandler(c *gin.Context) {
	var body CreateScanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request payload: %v", err),
			Kind:  "invalid_argument",
		})
		return
	}

	req, err := scanner.ParseRequest(body.Address, body.PortStart, body.PortEnd, body.SrcAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: errorKind(err)})
		return
	}
	mode, err := scanner.ParseMode(body.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: errorKind(err)})
		return
	}

	taskID, err := generateUUID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to generate task id", Kind: "internal"})
		return
	}
	c.Set(logKeyTaskID, taskID)

	task := &ScanTask{
		ID:          taskID,
		Status:      StatusPending,
		Address:     req.Destination,
		PortStart:   req.PortStart,
		PortEnd:     req.PortEnd,
		SrcAddress:  req.Source,
		Mode:        string(mode),
		Concurrency: body.Concurrency,
		TimeoutMS:   body.TimeoutMS,
		DeadlineMS:  body.DeadlineMS,
		CreatedAt:   time.Now().UTC(),
	}

	ctx := c.Request.Context()
	if err := s.store.CreateTask(ctx, task); err != nil {
		s.logger.Error("failed to persist task", "task_id", task.ID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to persist task", Kind: "internal"})
		return
	}

	if err := s.store.PushToQueue(ctx, task.ID); err != nil {
		s.logger.Error("failed to queue task", "task_id", task.ID, "error", err)
		task.Status = StatusFailed
		task.Error = "failed to queue task"
		task.ErrorKind = "internal"
		now := time.Now().UTC()
		task.CompletedAt = &now
		if err := s.store.UpdateTask(ctx, task); err != nil {
			s.logger.Error("failed to mark task failed", "task_id", task.ID, "error", err)
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to queue task", Kind: "internal"})
		return
	}

	s.logger.Info("scan task queued",
		"task_id", task.ID,
		"address", task.Address,
		"port_start", task.PortStart,
		"port_end", task.PortEnd,
		"mode", task.Mode,
	)
	c.Set(logKeyTaskStatus, task.Status)
	c.JSON(http.StatusAccepted, ScanAcceptedResponse{ID: task.ID, Status: task.Status})
}

// @Summary      Get scan status and results
// @Description  Retrieve a snapshot of a scan task. Results hold one entry per requested port in ascending order once the task has finished; status strings are filtered, open and closed.
// @Description  A partial task carries results together with incomplete (the session deadline expired) or unresolved (ports the engine could not probe).
// @Tags         Scans
// @Produce      json
// @Param        id   path      string         true  "Scan Task ID (UUID v4)"
// @Success      200  {object}  ScanTask       "Current task snapshot"
// @Failure      400  {object}  ErrorResponse  "Malformed task identifier"
// @Failure      401  {object}  ErrorResponse  "Missing or incorrect API key"
// @Failure      404  {object}  ErrorResponse  "Task with the provided ID does not exist"
// @Failure      429  {object}  ErrorResponse  "Rate limit exceeded for the calling client"
// @Failure      500  {object}  ErrorResponse  "Internal error when loading the task"
// @Security     ApiKeyAuth
// @Router       /scans/{id} [get]
func (s *Server) getScanHandler(c *gin.Context) {
	id := strings.ToLower(c.Param("id"))
	if !uuidV4Pattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id format", Kind: "invalid_argument"})
		return
	}
	c.Set(logKeyTaskID, id)

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "task not found", Kind: "not_found"})
			return
		}
		s.logger.Error("failed to load task", "task_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load task", Kind: "internal"})
		return
	}

	c.Set(logKeyTaskStatus, task.Status)
	c.JSON(http.StatusOK, task)
}

// @Summary      Engine version
// @Tags         Meta
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Security     ApiKeyAuth
// @Router       /version [get]
func (s *Server) versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{Version: scanner.Version()})
}
