package github

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/cosmos-link/webgen/internal/project"
)

// ErrUnsafePath is returned for entry names that would escape the export root
var ErrUnsafePath = errors.New("unsafe file path")

// WriteEntries writes project entries to a local directory.
// Directory placeholders become empty directories.
func WriteEntries(baseDir string, entries []project.Entry) error {
	for _, e := range entries {
		rel, err := safeRel(e.Name)
		if err != nil {
			return err
		}
		fullPath := filepath.Join(baseDir, rel)

		if e.IsDir() {
			if err := os.MkdirAll(fullPath, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
			}
			continue
		}

		// Create directory if it doesn't exist
		dir := filepath.Dir(fullPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(e.Content), 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", fullPath, err)
		}
	}

	return nil
}

func safeRel(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.FromSlash(clean), nil
}

// CommitAll initializes a repository in localPath and commits everything in it
func CommitAll(localPath, commitMessage string) (*git.Repository, error) {
	repo, err := git.PlainInit(localPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := w.AddGlob("."); err != nil {
		return nil, fmt.Errorf("failed to add files: %w", err)
	}

	_, err = w.Commit(commitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Webgen Bot",
			Email: "bot@webgen.dev",
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return repo, nil
}
