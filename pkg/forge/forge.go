// Package forge collects pull-request and issue data from GitHub for a
// repository under analysis. All calls take a context and paginate through
// the full listing; tokenless clients work within the API rate limits.
package forge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
)

// ErrNotGitHubURL is returned when a repository URL cannot be parsed into
// an owner/name pair.
var ErrNotGitHubURL = errors.New("not a github repository url")

// listPageSize is the page size used for all paginated listings.
const listPageSize = 100

// RepoRef identifies a GitHub repository by owner and name.
type RepoRef struct {
	Owner string
	Name  string
}

// String returns the owner/name form.
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL extracts the owner/name pair from an https GitHub URL.
// A trailing ".git" is trimmed first.
func ParseRepoURL(rawURL string) (RepoRef, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	_, after, found := strings.Cut(trimmed, "github.com/")
	if !found {
		return RepoRef{}, fmt.Errorf("%w: %s", ErrNotGitHubURL, rawURL)
	}

	parts := strings.Split(strings.Trim(after, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("%w: %s", ErrNotGitHubURL, rawURL)
	}

	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}

// IsRepoURL reports whether the target looks like a GitHub URL rather than
// a local path.
func IsRepoURL(target string) bool {
	_, err := ParseRepoURL(target)

	return err == nil && strings.Contains(target, "://")
}

// ChangedFile is one file touched by a pull request.
type ChangedFile struct {
	Path      string
	Additions int
	Deletions int
}

// PullRequest is the subset of pull-request data the measurements need.
type PullRequest struct {
	Number    int
	CreatedAt time.Time
	MergedAt  *time.Time
	Files     []ChangedFile
}

// Date returns the measurement date: merge time when present, creation
// time otherwise.
func (pr PullRequest) Date() time.Time {
	if pr.MergedAt != nil {
		return *pr.MergedAt
	}

	return pr.CreatedAt
}

// Client wraps the GitHub API client.
type Client struct {
	gh *github.Client
}

// NewClient creates a client. An empty token yields an unauthenticated
// client.
func NewClient(token string) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}

	return &Client{gh: gh}
}

// PullRequests fetches every pull request (state all) together with its
// per-file addition/deletion counts.
func (c *Client) PullRequests(ctx context.Context, ref RepoRef) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: listPageSize},
	}

	var out []PullRequest

	for {
		page, resp, err := c.gh.PullRequests.List(ctx, ref.Owner, ref.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("list pull requests for %s: %w", ref, err)
		}

		for _, pr := range page {
			item := PullRequest{
				Number:    pr.GetNumber(),
				CreatedAt: pr.GetCreatedAt().Time,
			}

			if pr.MergedAt != nil {
				merged := pr.MergedAt.Time
				item.MergedAt = &merged
			}

			files, filesErr := c.pullRequestFiles(ctx, ref, item.Number)
			if filesErr != nil {
				return nil, filesErr
			}

			item.Files = files
			out = append(out, item)
		}

		if resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return out, nil
}

// pullRequestFiles fetches the changed files of one pull request.
func (c *Client) pullRequestFiles(ctx context.Context, ref RepoRef, number int) ([]ChangedFile, error) {
	opts := &github.ListOptions{PerPage: listPageSize}

	var out []ChangedFile

	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, ref.Owner, ref.Name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list files for %s#%d: %w", ref, number, err)
		}

		for _, f := range page {
			out = append(out, ChangedFile{
				Path:      f.GetFilename(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return out, nil
}

// IssueCount counts every issue (state all). The GitHub issues listing
// includes pull requests and the total keeps that behavior.
func (c *Client) IssueCount(ctx context.Context, ref RepoRef) (int, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: listPageSize},
	}

	count := 0

	for {
		page, resp, err := c.gh.Issues.ListByRepo(ctx, ref.Owner, ref.Name, opts)
		if err != nil {
			return 0, fmt.Errorf("list issues for %s: %w", ref, err)
		}

		count += len(page)

		if resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return count, nil
}
