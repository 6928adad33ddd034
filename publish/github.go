// Package publish uploads finished artifacts to a GitHub repository.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const timestampLayout = "2006-01-02 15:04:05"

// PublishFailure wraps any error raised while publishing a file.
type PublishFailure struct {
	File string
	Err  error
}

func (e PublishFailure) Error() string {
	return fmt.Sprintf("publish %s: %v", e.File, e.Err)
}

func (e PublishFailure) Unwrap() error {
	return e.Err
}

// GitHub creates or updates files in one repository.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	now    func() time.Time
}

// New authenticates with cfg.GitHubToken. An *http.Client stored in ctx under
// oauth2.HTTPClient is used as the base transport.
func New(ctx context.Context, cfg *config.Config) (*GitHub, error) {
	if cfg.GitHubToken == "" {
		return nil, fmt.Errorf("github token is required")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHubToken},
	)
	tc := oauth2.NewClient(ctx, ts)
	return NewWithClient(github.NewClient(tc), cfg.GitHubRepo, cfg.GitHubBranch)
}

// NewWithClient publishes through client to repository "owner/name".
// An empty branch targets the repository's default branch.
func NewWithClient(client *github.Client, repository, branch string) (*GitHub, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid github repository %q", repository)
	}
	return &GitHub{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: branch,
		now:    time.Now,
	}, nil
}

// Publish stores content under the base name of filename, updating the file
// when it exists and creating it otherwise.
func (g *GitHub) Publish(ctx context.Context, filename string, content []byte) error {
	name := filepath.Base(filename)
	stamp := g.now().Format(timestampLayout)

	opts := &github.RepositoryContentFileOptions{Content: content}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}

	existing, err := g.lookup(ctx, name)
	if err != nil {
		return PublishFailure{File: name, Err: err}
	}

	if existing != nil {
		opts.Message = github.String(fmt.Sprintf("Updated %s - %s", name, stamp))
		opts.SHA = existing.SHA
		if _, _, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, name, opts); err != nil {
			return PublishFailure{File: name, Err: fmt.Errorf("update file: %w", err)}
		}
		slog.Info("updated file on github", slog.String("file", name), slog.String("repo", g.owner+"/"+g.repo))
		return nil
	}

	opts.Message = github.String(fmt.Sprintf("Added %s - %s", name, stamp))
	if _, _, err := g.client.Repositories.CreateFile(ctx, g.owner, g.repo, name, opts); err != nil {
		return PublishFailure{File: name, Err: fmt.Errorf("create file: %w", err)}
	}
	slog.Info("created file on github", slog.String("file", name), slog.String("repo", g.owner+"/"+g.repo))
	return nil
}

// lookup returns the existing file, or nil when the repository lacks it.
func (g *GitHub) lookup(ctx context.Context, name string) (*github.RepositoryContent, error) {
	var opts *github.RepositoryContentGetOptions
	if g.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.branch}
	}

	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, name, opts)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get contents: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	return file, nil
}
