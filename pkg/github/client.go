package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/gitcal/pkg/log"
	"github.com/harrisonrobin/gitcal/pkg/model"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultPerPage = 100
	// GitHub ignores per_page values above this.
	maxPerPage = 100

	fallbackBranch = "main"
)

// APIError is a non-2xx reply from the GitHub API. It unwraps to one of the
// model error kinds.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("github: %s returned %d", e.URL, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	PerPage int
	// Author, when set, restricts commits to this GitHub login.
	Author string
	// HTTPClient overrides the token-authenticated client. Used by tests.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client lists repositories and commits through the GitHub REST API.
type Client struct {
	baseURL string
	http    *http.Client
	perPage int
	author  string
	log     *log.Logger
}

func NewClient(ctx context.Context, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	perPage := opts.PerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = DefaultPerPage
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		perPage: perPage,
		author:  opts.Author,
		log:     logger,
	}
}

// ListRepositories returns every repository the authenticated user owns.
// If owner is set, repositories owned by anyone else are dropped.
func (c *Client) ListRepositories(ctx context.Context, owner string) ([]model.Repository, error) {
	var repos []model.Repository
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("affiliation", "owner")
		q.Set("per_page", strconv.Itoa(c.perPage))
		q.Set("page", strconv.Itoa(page))

		var records []repositoryRecord
		if err := c.getJSON(ctx, "/user/repos", q, &records); err != nil {
			return nil, fmt.Errorf("failed to list repositories: %w", err)
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if !rec.ownedBy(owner) {
				c.log.Warn("skipping repository owned by another user",
					"repo", rec.FullName, "owner", rec.Owner.Login, "username", owner)
				continue
			}
			repo, err := rec.toRepository()
			if err != nil {
				c.log.Warn("skipping repository", "err", err)
				continue
			}
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

// ListItems returns all commits on the repository's default branch, oldest
// page last as GitHub returns them. When a page fails, the commits gathered
// so far are returned together with the error.
func (c *Client) ListItems(ctx context.Context, repo model.Repository) ([]model.Item, error) {
	branch := repo.DefaultBranch
	if branch == "" {
		var err error
		branch, err = c.defaultBranch(ctx, repo.FullName)
		if err != nil {
			return nil, err
		}
	}
	c.log.Debug("listing commits", "repo", repo.FullName, "branch", branch)

	var items []model.Item
	path := "/repos/" + repo.FullName + "/commits"
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("sha", branch)
		q.Set("per_page", strconv.Itoa(c.perPage))
		q.Set("page", strconv.Itoa(page))
		if c.author != "" {
			q.Set("author", c.author)
		}

		var records []commitRecord
		if err := c.getJSON(ctx, path, q, &records); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
				// GitHub answers 409 for a repository with no commits yet.
				break
			}
			return items, fmt.Errorf("failed to list commits of %s (page %d): %w", repo.FullName, page, err)
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			item, err := rec.toItem(repo.FullName)
			if err != nil {
				c.log.Warn("skipping commit", "repo", repo.FullName, "err", err)
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *Client) defaultBranch(ctx context.Context, fullName string) (string, error) {
	var rec repositoryRecord
	if err := c.getJSON(ctx, "/repos/"+fullName, nil, &rec); err != nil {
		return "", fmt.Errorf("failed to fetch repository %s: %w", fullName, err)
	}
	if rec.DefaultBranch == "" {
		return fallbackBranch, nil
	}
	return rec.DefaultBranch, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", model.ErrUpstreamUnavailable, path, err)
	}
	return nil
}

func newAPIError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.Path,
		Kind:       classify(resp),
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}

func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return model.ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return model.ErrRateLimited
		}
		return model.ErrAuth
	default:
		return model.ErrUpstreamUnavailable
	}
}
