package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/generator"
	"github.com/cosmos-link/webgen/internal/logging"
	"github.com/cosmos-link/webgen/internal/metrics"
	"github.com/cosmos-link/webgen/internal/session"
	"github.com/cosmos-link/webgen/internal/task"
)

// Handler handles HTTP requests
type Handler struct {
	generator  *generator.Generator
	sessions   *session.Store
	taskMgr    *task.Manager
	sseManager *SSEManager
}

// NewHandler creates a new handler
func NewHandler(gen *generator.Generator, sessions *session.Store, taskMgr *task.Manager, sseManager *SSEManager) *Handler {
	return &Handler{
		generator:  gen,
		sessions:   sessions,
		taskMgr:    taskMgr,
		sseManager: sseManager,
	}
}

// GenerateRequest represents a generate request
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// ExportRequest represents an export request; an empty repo name commits locally only
type ExportRequest struct {
	RepoName string `json:"repo_name"`
}

// ResponseRequest carries raw model output to apply directly
type ResponseRequest struct {
	Response string `json:"response"`
}

// EditRequest replaces the full content of one file
type EditRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

// SelectRequest selects the file shown in the editor
type SelectRequest struct {
	Name string `json:"name" binding:"required"`
}

// TaskResponse represents the response to a task submission
type TaskResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleCreateSession starts a new bootstrapped session
func (h *Handler) HandleCreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	c.JSON(http.StatusCreated, sess.Snapshot())
}

// SessionSummary is one row of the session listing
type SessionSummary struct {
	ID        string    `json:"session_id"`
	Files     int       `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HandleListSessions lists live sessions, oldest first
func (h *Handler) HandleListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	out := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.Snapshot()
		out = append(out, SessionSummary{
			ID:        snap.ID,
			Files:     len(snap.Files),
			CreatedAt: snap.CreatedAt,
			UpdatedAt: snap.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// HandleGetSession returns a session snapshot
func (h *Handler) HandleGetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// HandleDeleteSession ends a session
func (h *Handler) HandleDeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		ErrorResponse(c, http.StatusNotFound, "Session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListFiles returns all entries, or a single one when ?name= is given
func (h *Handler) HandleListFiles(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	if name, ok := c.GetQuery("name"); ok {
		entry, found := sess.File(name)
		if !found {
			ErrorResponse(c, http.StatusNotFound, "File not found")
			return
		}
		c.JSON(http.StatusOK, entry)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": sess.Files()})
}

// HandleEditFile replaces the content of an existing file.
// Unknown names are not an error; the response reports applied=false.
func (h *Handler) HandleEditFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	applied := sess.Edit(req.Name, req.Content)
	c.JSON(http.StatusOK, gin.H{"name": req.Name, "applied": applied})
}

// HandleSelect marks the file shown in the editor
func (h *Handler) HandleSelect(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if !sess.Select(req.Name) {
		ErrorResponse(c, http.StatusNotFound, "File not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": req.Name})
}

// HandleApplyResponse merges raw model output into the session synchronously
func (h *Handler) HandleApplyResponse(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req ResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	res := sess.ApplyResponse(req.Response)
	c.JSON(http.StatusOK, gin.H{
		"changed": res.Names(),
		"changes": res.Changes,
	})
}

// HandleGenerate queues a completion for the session
func (h *Handler) HandleGenerate(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	t := h.taskMgr.CreateTask(task.Task{
		Kind:      task.KindGenerate,
		SessionID: sess.ID,
		Prompt:    req.Prompt,
		APIKey:    req.APIKey,
		Model:     req.Model,
	})
	h.submit(c, t, h.generator.Generate)
}

// HandleExport queues an export of the session's project
func (h *Handler) HandleExport(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	// The body is optional
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	t := h.taskMgr.CreateTask(task.Task{
		Kind:      task.KindExport,
		SessionID: sess.ID,
		RepoName:  req.RepoName,
	})
	h.submit(c, t, h.generator.Export)
}

// HandleDeploy records a simulated local deployment in the session log
func (h *Handler) HandleDeploy(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.Deploy()
	c.JSON(http.StatusOK, gin.H{"log": sess.Snapshot().Log})
}

// HandleGetTask handles the get task request
func (h *Handler) HandleGetTask(c *gin.Context) {
	taskID := c.Param("task_id")

	t, err := h.taskMgr.GetTask(taskID)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Task not found")
		return
	}

	c.JSON(http.StatusOK, t)
}

// HandleStatus handles the SSE status endpoint
func (h *Handler) HandleStatus(c *gin.Context) {
	HandleSSE(c, h.sseManager, h.taskMgr)
}

// HandleHealth handles health check
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "webgen",
		"sessions": h.sessions.Len(),
	})
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}

func (h *Handler) submit(c *gin.Context, t task.Task, run func(ctx context.Context, taskID string) error) {
	// Subscribe SSE manager to task updates
	h.taskMgr.SubscribeToTask(t.ID, func(update task.Task) {
		h.sseManager.Broadcast(update)
	})

	err := h.taskMgr.Submit(t.ID, func(ctx context.Context) error {
		return run(ctx, t.ID)
	})
	if err != nil {
		logging.WithContext(c.Request.Context()).Warn("task submission rejected", zap.Error(err))
		h.taskMgr.SetTaskError(t.ID, err)
		status := http.StatusInternalServerError
		if errors.Is(err, task.ErrShutdown) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error(), "task_id": t.ID})
		return
	}

	c.JSON(http.StatusAccepted, TaskResponse{
		TaskID:  t.ID,
		Status:  string(t.Status),
		Message: t.Message,
	})
}

// SetupRouter sets up the Gin router
func SetupRouter(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(), metrics.Middleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+logging.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// API routes
	api := r.Group("/api/v1")
	{
		api.POST("/sessions", handler.HandleCreateSession)
		api.GET("/sessions", handler.HandleListSessions)
		api.GET("/sessions/:id", handler.HandleGetSession)
		api.DELETE("/sessions/:id", handler.HandleDeleteSession)
		api.GET("/sessions/:id/files", handler.HandleListFiles)
		api.PUT("/sessions/:id/files", handler.HandleEditFile)
		api.POST("/sessions/:id/select", handler.HandleSelect)
		api.POST("/sessions/:id/responses", handler.HandleApplyResponse)
		api.POST("/sessions/:id/generate", handler.HandleGenerate)
		api.POST("/sessions/:id/export", handler.HandleExport)
		api.POST("/sessions/:id/deploy", handler.HandleDeploy)
		api.GET("/task/:task_id", handler.HandleGetTask)
		api.GET("/status/:task_id", handler.HandleStatus)
	}

	// Health check and metrics
	r.GET("/health", handler.HandleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// ErrorResponse writes an error response
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}
