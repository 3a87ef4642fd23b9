// Package taskpager is a small Go client for the taskpager REST API.
package taskpager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the taskpager API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Task mirrors the record returned by the API.
type Task struct {
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// NewTask is the payload for CreateTask. Empty Status and nil Priority let the
// server apply its defaults.
type NewTask struct {
	Title    string `json:"title"`
	Status   string `json:"status,omitempty"`
	Priority *int   `json:"priority,omitempty"`
}

// ListParams selects one page. Zero values are omitted from the query.
type ListParams struct {
	Limit  int
	Status string
	Cursor string
}

// Page is one page of tasks. NextCursor is nil on the last page.
type Page struct {
	Items      []Task  `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("taskpager api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient creates a client for the API rooted at rawURL. When httpClient is
// nil a client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// CreateTask creates a task and returns the stored record.
func (c *Client) CreateTask(ctx context.Context, task NewTask) (Task, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return Task{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/tasks", nil, bytes.NewReader(body))
	if err != nil {
		return Task{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var created Task
	if err := c.do(req, &created); err != nil {
		return Task{}, err
	}
	return created, nil
}

// ListTasks fetches a single page.
func (c *Client) ListTasks(ctx context.Context, params ListParams) (Page, error) {
	query := url.Values{}
	if params.Limit != 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Status != "" {
		query.Set("status", params.Status)
	}
	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tasks", query, nil)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := c.do(req, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

// ErrStopWalk can be returned from a Walk callback to stop early without error.
var ErrStopWalk = errors.New("stop walk")

// Walk follows nextCursor from params.Cursor until the last page, calling fn
// for every task in order.
func (c *Client) Walk(ctx context.Context, params ListParams, fn func(Task) error) error {
	for {
		page, err := c.ListTasks(ctx, params)
		if err != nil {
			return err
		}
		for _, task := range page.Items {
			if err := fn(task); err != nil {
				if errors.Is(err, ErrStopWalk) {
					return nil
				}
				return err
			}
		}
		if page.NextCursor == nil {
			return nil
		}
		params.Cursor = *page.NextCursor
	}
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
