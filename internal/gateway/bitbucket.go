// Package gateway provides a gateway to the Bitbucket Cloud 2.0 API,
// abstracting pagination, rate limiting, retries and response caching
// away from the rest of the application.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"bitbucket-stats/internal/cache"
	"bitbucket-stats/internal/config"
	"bitbucket-stats/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching workspace activity.
type Fetcher interface {
	ListRepositories(ctx context.Context) ([]domain.Repository, error)
	FetchCommits(ctx context.Context, repo string, year int) ([]domain.CommitRecord, error)
	FetchPullRequests(ctx context.Context, repo string, year int) ([]domain.PullRequestRecord, error)
	FetchDiffstat(ctx context.Context, repo, commitHash string) (domain.FileChangeRecord, error)
}

// RetryPolicy bounds how the client retries 429 and 5xx responses.
type RetryPolicy struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// Delay returns the backoff before the attempt following the given
// zero-based failed attempt: BackoffMin doubled each time, capped at
// BackoffMax. A Retry-After header overrides this schedule.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BackoffMin
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// Client is the concrete implementation of the Fetcher interface.
type Client struct {
	baseURL    string
	workspace  string
	httpClient *http.Client
	limiter    *rate.Limiter
	store      *cache.Cache
	retry      RetryPolicy
	logger     *log.Logger

	// sleep is swapped for a recorder in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient is a constructor that creates a new instance of Client.
// Authentication uses an OAuth bearer token when configured, otherwise
// Basic auth with the username and app password.
func NewClient(cfg *config.Config, store *cache.Cache, logger *log.Logger) *Client {
	var transport http.RoundTripper
	if cfg.AccessToken != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken}),
			Base:   http.DefaultTransport,
		}
	} else {
		transport = &basicAuthTransport{
			username: cfg.Username,
			password: cfg.AppPassword,
			base:     http.DefaultTransport,
		}
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		workspace: cfg.Workspace,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.HTTPTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
		store:   store,
		retry: RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BackoffMin:  cfg.BackoffMin,
			BackoffMax:  cfg.BackoffMax,
		},
		logger: logger,
		sleep:  sleepContext,
	}
}

type basicAuthTransport struct {
	username, password string
	base               http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(clone)
}

func (c *Client) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	c.logger.Printf("fetching repositories for workspace %s", c.workspace)
	endpoint := fmt.Sprintf("%s/repositories/%s", c.baseURL, c.workspace)

	var repos []domain.Repository
	for raw, err := range c.paginate(ctx, endpoint) {
		if err != nil {
			return nil, err
		}
		var r apiRepository
		if err := json.Unmarshal(raw, &r); err != nil {
			c.logger.Printf("skipping malformed repository record: %v", err)
			continue
		}
		repos = append(repos, domain.Repository{Slug: r.Slug, Name: r.Name})
	}
	c.logger.Printf("retrieved %d repositories", len(repos))
	return repos, nil
}

// FetchCommits returns the commits of repo created in the given year.
// The commits endpoint has no server-side date filter, so the year bound
// is applied client-side.
func (c *Client) FetchCommits(ctx context.Context, repo string, year int) ([]domain.CommitRecord, error) {
	c.logger.Printf("fetching commits for repository %s", repo)
	endpoint := fmt.Sprintf("%s/repositories/%s/%s/commits", c.baseURL, c.workspace, repo)

	var commits []domain.CommitRecord
	for raw, err := range c.paginate(ctx, endpoint) {
		if err != nil {
			return nil, err
		}
		var cm apiCommit
		if err := json.Unmarshal(raw, &cm); err != nil {
			c.logger.Printf("skipping malformed commit record in %s: %v", repo, err)
			continue
		}
		if cm.Date.Year() != year {
			continue
		}
		commits = append(commits, domain.CommitRecord{
			Repo:    repo,
			Hash:    cm.Hash,
			Author:  cm.Author.Raw,
			Date:    cm.Date,
			Message: cm.Message,
		})
	}
	c.logger.Printf("retrieved %d commits from %s", len(commits), repo)
	return commits, nil
}

func (c *Client) FetchPullRequests(ctx context.Context, repo string, year int) ([]domain.PullRequestRecord, error) {
	c.logger.Printf("fetching pull requests for repository %s", repo)
	params := url.Values{
		"q":     {fmt.Sprintf("created_on >= %d-01-01 AND created_on < %d-01-01", year, year+1)},
		"state": {"MERGED", "OPEN", "DECLINED"},
	}
	endpoint := fmt.Sprintf("%s/repositories/%s/%s/pullrequests?%s", c.baseURL, c.workspace, repo, params.Encode())

	var prs []domain.PullRequestRecord
	for raw, err := range c.paginate(ctx, endpoint) {
		if err != nil {
			return nil, err
		}
		var pr apiPullRequest
		if err := json.Unmarshal(raw, &pr); err != nil {
			c.logger.Printf("skipping malformed pull request record in %s: %v", repo, err)
			continue
		}
		prs = append(prs, domain.PullRequestRecord{
			Repo:      repo,
			ID:        pr.ID,
			Author:    pr.Author.DisplayName,
			State:     pr.State,
			CreatedOn: pr.CreatedOn,
		})
	}
	c.logger.Printf("retrieved %d pull requests for %s", len(prs), repo)
	return prs, nil
}

// FetchDiffstat sums the per-file line counts of one commit into a single
// FileChangeRecord.
func (c *Client) FetchDiffstat(ctx context.Context, repo, commitHash string) (domain.FileChangeRecord, error) {
	endpoint := fmt.Sprintf("%s/repositories/%s/%s/diffstat/%s", c.baseURL, c.workspace, repo, commitHash)

	rec := domain.FileChangeRecord{Repo: repo, CommitHash: commitHash}
	for raw, err := range c.paginate(ctx, endpoint) {
		if err != nil {
			return domain.FileChangeRecord{}, err
		}
		var d apiDiffstatEntry
		if err := json.Unmarshal(raw, &d); err != nil {
			c.logger.Printf("skipping malformed diffstat entry for %s@%.8s: %v", repo, commitHash, err)
			continue
		}
		rec.LinesAdded += d.LinesAdded
		rec.LinesRemoved += d.LinesRemoved
	}
	return rec, nil
}

// paginate returns a lazy sequence over every record of a paginated
// endpoint, following next links until none remains. The sequence is
// finite and non-restartable; a fresh call is required to re-iterate.
func (c *Client) paginate(ctx context.Context, endpoint string) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		next := endpoint
		for next != "" {
			body, err := c.fetchPage(ctx, next)
			if err != nil {
				yield(nil, err)
				return
			}
			var p page
			if err := json.Unmarshal(body, &p); err != nil {
				yield(nil, fmt.Errorf("%w: %s: %v", ErrParse, next, err))
				return
			}
			for _, v := range p.Values {
				if !yield(v, nil) {
					return
				}
			}
			next = p.Next
		}
	}
}

// fetchPage returns the body of a single page, consulting the cache first
// and retrying 429/5xx per the retry policy. Successful bodies are written
// to the cache before being returned.
func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if body, ok := c.store.Get(pageURL); ok {
		return body, nil
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := c.doRequest(ctx, pageURL)
		if err == nil {
			if cerr := c.store.Put(pageURL, body); cerr != nil {
				c.logger.Printf("cache write failed for %s: %v", pageURL, cerr)
			}
			return body, nil
		}

		var re *retryableError
		if !errors.As(err, &re) {
			return nil, err
		}
		if attempt+1 >= c.retry.MaxAttempts {
			if re.status == http.StatusTooManyRequests {
				return nil, fmt.Errorf("%w after %d attempts: %s", ErrRateLimited, attempt+1, pageURL)
			}
			return nil, fmt.Errorf("%w after %d attempts: %s: %v", ErrTransient, attempt+1, pageURL, re)
		}

		wait := c.retry.Delay(attempt)
		if re.after > 0 {
			wait = re.after
		}
		c.logger.Printf("request to %s failed (%v), retrying in %s", pageURL, re, wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// doRequest issues one authenticated GET and classifies the outcome.
// Retryable failures come back as *retryableError; everything else is final.
func (c *Client) doRequest(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (status %d): check the username, the app password and its permissions", ErrAuthorization, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{
			status: resp.StatusCode,
			after:  parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return nil, fmt.Errorf("bitbucket: request to %s failed with status %d", pageURL, resp.StatusCode)
	}
}

type retryableError struct {
	status int
	after  time.Duration
	cause  error
}

func (e *retryableError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("status %d", e.status)
}

func (e *retryableError) Unwrap() error { return e.cause }

// parseRetryAfter accepts both forms the header allows: delay seconds and
// an HTTP date. Unparseable values yield zero, deferring to the backoff
// schedule.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
