package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.SourceAPI = (*Client)(nil)

// Client is the GitHub REST and GraphQL client.
type Client struct {
	rest        *gh.Client
	graph       *githubv4.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client. The auditor is optional.
func NewClient(cfg Config, auditor driven.RequestAuditor) (*Client, error) {
	cfg = cfg.withDefaults()

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", domain.ErrInvalidInput, err)
	}

	limiter := NewRateLimiter(cfg.RequestsPerSecond, cfg.MinBuffer)
	var rt http.RoundTripper = &transport{
		base:       http.DefaultTransport,
		apiVersion: cfg.APIVersion,
		userAgent:  cfg.UserAgent,
		limiter:    limiter,
		auditor:    auditor,
	}
	if cfg.Token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   rt,
		}
	}
	httpClient := &http.Client{Transport: rt, Timeout: cfg.Timeout}

	rest := gh.NewClient(httpClient)
	rest.BaseURL = baseURL
	rest.UserAgent = cfg.UserAgent

	return &Client{
		rest:        rest,
		graph:       githubv4.NewEnterpriseClient(cfg.GraphURL, httpClient),
		rateLimiter: limiter,
	}, nil
}

// Get fetches a REST path relative to the API root and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	u := strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := c.rest.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s: %w", domain.ErrInvalidInput, path, err)
	}

	var body json.RawMessage
	resp, err := c.rest.Do(ctx, req, &body)
	if err != nil {
		return nil, c.wrapError(err, resp, "GET "+path)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: GET %s: empty body", domain.ErrMalformed, path)
	}
	return body, nil
}

// GetRepository returns the REST object for owner/name.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (json.RawMessage, error) {
	return c.Get(ctx, "repos/"+url.PathEscape(owner)+"/"+url.PathEscape(name), nil)
}

// GetOrganization returns the REST object for an organization.
func (c *Client) GetOrganization(ctx context.Context, login string) (json.RawMessage, error) {
	return c.Get(ctx, "orgs/"+url.PathEscape(login), nil)
}

// GetUser returns the REST object for a user.
func (c *Client) GetUser(ctx context.Context, login string) (json.RawMessage, error) {
	return c.Get(ctx, "users/"+url.PathEscape(login), nil)
}

// GetReadme returns the decoded README of a repository, or "" if it has none.
func (c *Client) GetReadme(ctx context.Context, owner, name string) (string, error) {
	content, resp, err := c.rest.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		if wrapped := c.wrapError(err, resp, "get readme"); !IsNotFound(wrapped) {
			return "", wrapped
		}
		return "", nil
	}
	return decodeContent(content, "readme")
}

// GetFile returns the decoded contents of a file, or "" if it does not
// exist or is a directory.
func (c *Client) GetFile(ctx context.Context, owner, name, path string) (string, error) {
	content, _, resp, err := c.rest.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		if wrapped := c.wrapError(err, resp, "get contents"); !IsNotFound(wrapped) {
			return "", wrapped
		}
		return "", nil
	}
	if content == nil {
		return "", nil
	}
	return decodeContent(content, path)
}

func decodeContent(content *gh.RepositoryContent, what string) (string, error) {
	decoded, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", domain.ErrMalformed, what, err)
	}
	return decoded, nil
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, resp *gh.Response, operation string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:    rateLimitErr.Rate.Reset.Time,
			Remaining:  rateLimitErr.Rate.Remaining,
			Limit:      rateLimitErr.Rate.Limit,
			StatusCode: statusOf(resp),
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return c.coreLimitError(statusOf(resp))
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		if statusOf(resp) == http.StatusTooManyRequests {
			return c.coreLimitError(http.StatusTooManyRequests)
		}
		apiErr := &APIError{Message: ghErr.Message}
		if ghErr.Response != nil {
			apiErr.StatusCode = ghErr.Response.StatusCode
			if ghErr.Response.Request != nil {
				apiErr.URL = ghErr.Response.Request.URL.String()
			}
		}
		return apiErr
	}

	if isDecodeError(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrMalformed, operation, err)
	}

	// A response arrived but was not classified above.
	if status := statusOf(resp); status >= http.StatusBadRequest {
		return &APIError{StatusCode: status, Message: err.Error()}
	}

	return &TransportError{Op: operation, Err: err}
}

// coreLimitError reports a REST refusal with the last known core quota.
func (c *Client) coreLimitError(status int) *RateLimitError {
	q := c.rateLimiter.Quota(ResourceCore)
	return &RateLimitError{
		ResetAt:    q.ResetAt,
		Remaining:  q.Remaining,
		Limit:      q.Limit,
		StatusCode: status,
	}
}

func statusOf(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
