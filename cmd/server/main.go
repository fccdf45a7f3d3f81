package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/api"
	"github.com/cosmos-link/webgen/internal/config"
	"github.com/cosmos-link/webgen/internal/generator"
	"github.com/cosmos-link/webgen/internal/github"
	"github.com/cosmos-link/webgen/internal/llm"
	"github.com/cosmos-link/webgen/internal/logging"
	"github.com/cosmos-link/webgen/internal/session"
	"github.com/cosmos-link/webgen/internal/task"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Info("starting webgen service",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port))

	// Ensure temp directory exists
	if err := os.MkdirAll(cfg.Task.TempDir, 0755); err != nil {
		logging.Fatal("failed to create temp directory", zap.Error(err))
	}

	completer, err := llm.NewCompleter(cfg.LLM.DefaultProvider, cfg.LLM)
	if err != nil {
		logging.Fatal("failed to create completion client", zap.Error(err))
	}
	logging.Info("completion client initialized", zap.String("provider", completer.Provider()))

	// GitHub push is optional
	var githubClient *github.Client
	if cfg.GitHub.Enabled() {
		githubClient = github.NewClient(cfg.GitHub.Token, cfg.GitHub.Owner)
		logging.Info("GitHub client initialized", zap.String("owner", cfg.GitHub.Owner))
	}

	sessions := session.NewStore()

	taskManager := task.NewManager(cfg.Task.MaxConcurrentTasks, time.Duration(cfg.Task.TaskTimeout)*time.Second)
	logging.Info("task manager initialized", zap.Int("workers", cfg.Task.MaxConcurrentTasks))

	gen := generator.NewGenerator(completer, githubClient, sessions, taskManager, cfg.Task.TempDir)

	sseManager := api.NewSSEManager()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(gen, sessions, taskManager, sseManager)
	router := api.SetupRouter(handler)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// SSE streams stay open, so no write timeout
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("server forced to shutdown", zap.Error(err))
	}

	taskManager.Shutdown()
	sseManager.Close()

	logging.Info("server stopped")
}
