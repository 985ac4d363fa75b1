// Package github is the hosting-service collaborator for the review
// core: it sources the change set from a pull request, materializes a
// local snapshot of context files, and posts annotations as inline
// review comments. The core never imports this package; wiring happens
// in the CLI layer.
package github

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/stepreview/internal/logging"
	"github.com/stepreview/internal/retry"
	"github.com/stepreview/pkg/models"
)

// PullRequestRef identifies one pull request.
type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ParsePullRequestURL parses a pull request URL of the form
// https://github.com/owner/repo/pull/123.
func ParsePullRequestURL(rawURL string) (PullRequestRef, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PullRequestRef{}, fmt.Errorf("invalid pull request URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return PullRequestRef{}, fmt.Errorf("URL is not a pull request: %s", rawURL)
	}

	number, err := strconv.Atoi(parts[3])
	if err != nil {
		return PullRequestRef{}, fmt.Errorf("invalid pull request number %q: %w", parts[3], err)
	}

	return PullRequestRef{Owner: parts[0], Repo: parts[1], Number: number}, nil
}

// Client wraps the GitHub API for the three collaborator duties: change
// set retrieval, snapshot materialization, and comment posting.
type Client struct {
	gh     *gogithub.Client
	logger *logging.ReviewLogger
}

// NewClient creates an authenticated GitHub client.
func NewClient(token string, logger *logging.ReviewLogger) *Client {
	return &Client{
		gh:     gogithub.NewClient(nil).WithAuthToken(token),
		logger: logger,
	}
}

// HeadSHA returns the SHA of the pull request head commit, which inline
// review comments must be anchored to.
func (c *Client) HeadSHA(ctx context.Context, ref PullRequestRef) (string, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", fmt.Errorf("failed to get pull request %s: %w", ref, err)
	}
	return pr.GetHead().GetSHA(), nil
}

// ChangeSet lists the files changed by the pull request as
// (path, patch) pairs. Files without a textual patch (binary, too
// large) are skipped.
func (c *Client) ChangeSet(ctx context.Context, ref PullRequestRef) ([]models.ChangedFile, error) {
	var changeSet []models.ChangedFile
	opts := &gogithub.ListOptions{PerPage: 100}

	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list files of %s: %w", ref, err)
		}
		for _, f := range files {
			if f.GetPatch() == "" {
				c.logger.LogFileSkipped(f.GetFilename(), "no textual patch")
				continue
			}
			changeSet = append(changeSet, models.ChangedFile{
				FilePath:  f.GetFilename(),
				PatchText: f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Log("Change set for %s: %d files with patches", ref, len(changeSet))
	return changeSet, nil
}

// MaterializeSnapshot downloads the repository files selected by keep
// into a fresh temporary directory and returns its path. The caller owns
// the directory and removes it after the run. Individual file failures
// are logged and skipped; partial context is acceptable.
func (c *Client) MaterializeSnapshot(ctx context.Context, ref PullRequestRef, sha string, keep func(path string) bool) (string, error) {
	tree, _, err := c.gh.Git.GetTree(ctx, ref.Owner, ref.Repo, sha, true)
	if err != nil {
		return "", fmt.Errorf("failed to get repository tree of %s: %w", ref, err)
	}
	if tree.GetTruncated() {
		c.logger.Log("Repository tree of %s is truncated; context may be partial", ref)
	}

	root, err := os.MkdirTemp("", "stepreview-snapshot-")
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	fetched := 0
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !keep(entry.GetPath()) {
			continue
		}
		if err := c.fetchBlob(ctx, ref, entry, root); err != nil {
			c.logger.LogError("fetching "+entry.GetPath(), err)
			continue
		}
		fetched++
	}

	c.logger.Log("Materialized snapshot of %s: %d files in %s", ref, fetched, root)
	return root, nil
}

func (c *Client) fetchBlob(ctx context.Context, ref PullRequestRef, entry *gogithub.TreeEntry, root string) error {
	var content []byte
	result := retry.WithBackoff(ctx, retry.DefaultConfig(), func() error {
		var err error
		content, _, err = c.gh.Git.GetBlobRaw(ctx, ref.Owner, ref.Repo, entry.GetSHA())
		return err
	}, c.logger)
	if !result.Success {
		return result.LastError
	}

	target := filepath.Join(root, filepath.FromSlash(entry.GetPath()))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, content, 0644)
}

// PostAnnotations posts one inline review comment per annotation,
// anchored to the head commit. Posting continues past individual
// failures; the aggregated error reports how many comments were lost so
// the caller can decide to re-post.
func (c *Client) PostAnnotations(ctx context.Context, ref PullRequestRef, sha string, annotations []models.ReviewAnnotation) error {
	var failed int
	var lastErr error

	for i, annotation := range annotations {
		comment := &gogithub.PullRequestComment{
			Body:     gogithub.Ptr(annotation.Body),
			CommitID: gogithub.Ptr(sha),
			Path:     gogithub.Ptr(annotation.FilePath),
			Line:     gogithub.Ptr(annotation.Line),
			Side:     gogithub.Ptr("RIGHT"),
		}

		result := retry.WithBackoff(ctx, retry.PostingConfig(), func() error {
			_, _, err := c.gh.PullRequests.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, comment)
			return err
		}, c.logger)

		if !result.Success {
			failed++
			lastErr = result.LastError
			c.logger.LogError(fmt.Sprintf("posting comment %d/%d (%s:%d)",
				i+1, len(annotations), annotation.FilePath, annotation.Line), result.LastError)
			continue
		}
		c.logger.Log("✓ Posted comment %d/%d at %s:%d", i+1, len(annotations), annotation.FilePath, annotation.Line)
	}

	if failed > 0 {
		return fmt.Errorf("failed to post %d of %d comments: %w", failed, len(annotations), lastErr)
	}
	return nil
}
