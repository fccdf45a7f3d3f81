package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/github"
	"github.com/cosmos-link/webgen/internal/llm"
	"github.com/cosmos-link/webgen/internal/logging"
	"github.com/cosmos-link/webgen/internal/project"
	"github.com/cosmos-link/webgen/internal/session"
	"github.com/cosmos-link/webgen/internal/task"
)

// ErrPushDisabled is returned when a push is requested without GitHub credentials
var ErrPushDisabled = errors.New("GitHub push is not configured")

// Generator runs completion and export tasks against sessions
type Generator struct {
	completer    llm.Completer
	githubClient *github.Client
	sessions     *session.Store
	taskManager  *task.Manager
	tempDir      string
}

// NewGenerator creates a new generator. githubClient may be nil, in which
// case exports are only committed locally.
func NewGenerator(completer llm.Completer, githubClient *github.Client, sessions *session.Store, taskManager *task.Manager, tempDir string) *Generator {
	return &Generator{
		completer:    completer,
		githubClient: githubClient,
		sessions:     sessions,
		taskManager:  taskManager,
		tempDir:      tempDir,
	}
}

// Generate asks the model for code and merges the answer into the task's session.
// A failed completion leaves the project untouched and leaves a notice in the session log.
func (g *Generator) Generate(ctx context.Context, taskID string) error {
	t, err := g.taskManager.GetTask(taskID)
	if err != nil {
		return err
	}

	sess, err := g.sessions.Get(t.SessionID)
	if err != nil {
		return err
	}

	if err := g.taskManager.UpdateTask(taskID, task.StatusGenerating, "Generating code with LLM..."); err != nil {
		return err
	}

	response, err := g.completer.Complete(ctx, llm.Request{
		Prompt: t.Prompt,
		APIKey: t.APIKey,
		Model:  t.Model,
	})
	if err != nil {
		logging.Error("completion failed", zap.String("task_id", taskID), zap.Error(err))
		sess.Notify(notice(err))
		g.taskManager.SetTaskError(taskID, fmt.Errorf("failed to generate code: %w", err))
		return err
	}

	if err := g.taskManager.UpdateTask(taskID, task.StatusSynchronizing, "Updating project files..."); err != nil {
		return err
	}

	res := sess.ApplyResponse(response)
	names := res.Names()
	g.taskManager.SetTaskChanged(taskID, names)

	logging.WithContext(ctx).Info("response synchronized",
		zap.String("session_id", sess.ID),
		zap.Strings("changed", names),
		zap.Int("unchanged", res.Count(project.ActionUnchanged)),
	)

	return g.taskManager.UpdateTask(taskID, task.StatusCompleted, fmt.Sprintf("Updated %d file(s)", len(names)))
}

// Export writes the session's project to disk, commits it and, when the task
// names a repository, pushes it to GitHub
func (g *Generator) Export(ctx context.Context, taskID string) error {
	t, err := g.taskManager.GetTask(taskID)
	if err != nil {
		return err
	}

	sess, err := g.sessions.Get(t.SessionID)
	if err != nil {
		return err
	}

	if t.RepoName != "" && g.githubClient == nil {
		g.taskManager.SetTaskError(taskID, ErrPushDisabled)
		return ErrPushDisabled
	}

	if err := g.taskManager.UpdateTask(taskID, task.StatusWritingFiles, "Writing files to disk..."); err != nil {
		return err
	}

	projectDir := filepath.Join(g.tempDir, taskID)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		g.taskManager.SetTaskError(taskID, fmt.Errorf("failed to create temp directory: %w", err))
		return err
	}

	// Only a local-only export keeps its directory; it is the result.
	keep := false
	defer func() {
		if !keep {
			if err := os.RemoveAll(projectDir); err != nil {
				logging.Warn("failed to remove export directory", zap.String("path", projectDir), zap.Error(err))
			}
		}
	}()

	if err := github.WriteEntries(projectDir, sess.Files()); err != nil {
		g.taskManager.SetTaskError(taskID, fmt.Errorf("failed to write files: %w", err))
		return err
	}

	commitMessage := "Initial commit: AI generated app"
	if t.Prompt != "" {
		commitMessage = fmt.Sprintf("Initial commit: %s", t.Prompt)
	}
	repo, err := github.CommitAll(projectDir, commitMessage)
	if err != nil {
		g.taskManager.SetTaskError(taskID, err)
		return err
	}

	if t.RepoName == "" {
		keep = true
		g.taskManager.SetTaskPath(taskID, projectDir)
		return g.taskManager.UpdateTask(taskID, task.StatusCompleted, "Project committed locally")
	}

	if err := g.taskManager.UpdateTask(taskID, task.StatusCreatingRepo, "Creating GitHub repository..."); err != nil {
		return err
	}

	remote, err := g.githubClient.CreateRepository(ctx, t.RepoName, t.Prompt, false)
	if err != nil {
		g.taskManager.SetTaskError(taskID, err)
		return err
	}
	g.taskManager.SetTaskRepoURL(taskID, remote.GetHTMLURL())

	if err := g.taskManager.UpdateTask(taskID, task.StatusPushing, "Pushing code to GitHub..."); err != nil {
		return err
	}

	if err := g.githubClient.Push(ctx, repo, remote.GetCloneURL()); err != nil {
		g.taskManager.SetTaskError(taskID, err)
		return err
	}

	return g.taskManager.UpdateTask(taskID, task.StatusCompleted, "Successfully pushed code!")
}

// notice turns a completion failure into the message shown in the session log
func notice(err error) string {
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return "Please enter your API key in the settings."
	case errors.Is(err, llm.ErrEmptyResponse):
		return "No response from AI."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI request timed out. Please try again."
	}
	return "Error calling the AI API. Please check your API key and try again."
}
