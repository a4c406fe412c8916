// Package catalog is the HTTP client for the remote question store.
package catalog

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/question"
)

// DefaultTimeout bounds each call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Source is what the rest of the application needs from a question store.
type Source interface {
	Questions(ctx context.Context, f question.Filter) ([]question.Question, error)
	Categories(ctx context.Context) ([]string, error)
	SubCategories(ctx context.Context, category string) ([]string, error)
	Toggle(ctx context.Context, id string) (bool, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the question store over HTTP. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

var _ Source = (*Client)(nil)

// New creates a Client. A zero timeout falls back to DefaultTimeout.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("catalog base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("catalog base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return NewWithHTTPClient(base, &http.Client{Timeout: cfg.Timeout}, log), nil
}

// NewWithHTTPClient creates a Client using hc for transport.
func NewWithHTTPClient(baseURL string, hc *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		log:        logger.OrNop(log).With("client", "CatalogClient"),
	}
}

// envelope is the store's response shape. The store reports failures in
// either "message" or "error".
type envelope[T any] struct {
	Success     bool   `json:"success"`
	Data        T      `json:"data"`
	IsCompleted *bool  `json:"isCompleted,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (e envelope[T]) reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Questions fetches the catalog, filtered server-side by f.
// The result is never nil on success.
func (c *Client) Questions(ctx context.Context, f question.Filter) ([]question.Question, error) {
	f = f.Clean()
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.SubCategory != "" {
		q.Set("subCategory", f.SubCategory)
	}
	var env envelope[[]question.Question]
	if _, err := c.do(ctx, http.MethodGet, "/questions", q, "fetch catalog", &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []question.Question{}, nil
	}
	return env.Data, nil
}

// Categories fetches the distinct category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var env envelope[[]string]
	if _, err := c.do(ctx, http.MethodGet, "/categories", nil, "fetch categories", &env); err != nil {
		return nil, err
	}
	return nonNil(env.Data), nil
}

// SubCategories fetches the distinct subcategory names, optionally for one category.
func (c *Client) SubCategories(ctx context.Context, category string) ([]string, error) {
	q := url.Values{}
	if category = strings.TrimSpace(category); category != "" {
		q.Set("category", category)
	}
	var env envelope[[]string]
	if _, err := c.do(ctx, http.MethodGet, "/subcategories", q, "fetch subcategories", &env); err != nil {
		return nil, err
	}
	return nonNil(env.Data), nil
}

// Toggle flips the store's completion flag for id and returns the new value.
// An unknown id yields NOT_FOUND; anything else that is not a success yields
// FETCH_FAILED.
func (c *Client) Toggle(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.NewInvalidRequest("question id is required")
	}
	var env envelope[json.RawMessage]
	path := "/questions/" + url.PathEscape(id) + "/toggle"
	status, err := c.do(ctx, http.MethodPost, path, nil, "toggle", &env)
	if status == http.StatusNotFound {
		return false, errors.NewNotFound(id)
	}
	if err != nil {
		return false, err
	}
	if env.IsCompleted == nil {
		return false, errors.NewFetchFailed("toggle", fmt.Errorf("response missing isCompleted"))
	}
	return *env.IsCompleted, nil
}

// response is implemented by every envelope instantiation.
type response interface {
	ok() bool
	reason() string
}

func (e envelope[T]) ok() bool { return e.Success }

// do performs one request and decodes a successful envelope into out.
// The HTTP status is returned alongside any error so callers can
// distinguish specific failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, op string, out response) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, errors.NewFetchFailed(op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("question store request failed", "op", op, "url", u, "error", err)
		return 0, errors.NewFetchFailed(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, errors.NewFetchFailed(op, err)
	}
	c.log.Debug("question store response", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))

	decodeErr := json.Unmarshal(body, out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := ""
		if decodeErr == nil {
			reason = out.reason()
		}
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		c.log.Warn("question store returned error status", "op", op, "status", resp.StatusCode, "reason", reason)
		return resp.StatusCode, errors.NewFetchFailed(op, fmt.Errorf("status %d: %s", resp.StatusCode, reason))
	}
	if decodeErr != nil {
		return resp.StatusCode, errors.NewFetchFailed(op, fmt.Errorf("decode response: %w", decodeErr))
	}
	if !out.ok() {
		reason := out.reason()
		if reason == "" {
			reason = "success=false"
		}
		return resp.StatusCode, errors.NewFetchFailed(op, stderrors.New(reason))
	}
	return resp.StatusCode, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
