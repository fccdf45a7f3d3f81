package github

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Client handles GitHub operations
type Client struct {
	client *github.Client
	token  string
	owner  string
}

// NewClient creates a new GitHub client
func NewClient(token, owner string) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		client: github.NewClient(tc),
		token:  token,
		owner:  owner,
	}
}

// CreateRepository creates a new GitHub repository under the configured
// owner, or under the authenticated user when no owner is set
func (c *Client) CreateRepository(ctx context.Context, name, description string, private bool) (*github.Repository, error) {
	repo := &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
		AutoInit:    github.Bool(false),
	}

	createdRepo, resp, err := c.client.Repositories.Create(ctx, c.owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			if c.owner != "" {
				return nil, fmt.Errorf("failed to create repository: organization or user '%s' not found, or token lacks permission", c.owner)
			}
			return nil, fmt.Errorf("failed to create repository: authentication failed or token lacks 'repo' permission: %w", err)
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return createdRepo, nil
}

// Push adds the remote to a committed local repository and pushes it
func (c *Client) Push(ctx context.Context, repo *git.Repository, repoURL string) error {
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth: &http.BasicAuth{
			Username: "git",
			Password: c.token,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}
