// Package remote talks to the task collection over HTTP.
//
// All four operations hit a single collection endpoint (BaseURL) or
// BaseURL/<id>, with JSON bodies. Any non-2xx status becomes an *Error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// DefaultBaseURL is where a local `tada serve` listens.
const DefaultBaseURL = "http://localhost:8000/tasks"

// Error is returned when the collection answers with a non-success status.
type Error struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for baseURL. Requests are bounded only by their
// context; the controller sets the per-call deadline.
func New(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

func (c *Client) FetchAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, "fetch tasks", http.MethodGet, c.BaseURL, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, t model.Task) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, "create task", http.MethodPost, c.BaseURL, t, &out); err != nil {
		return model.Task{}, err
	}
	return out, nil
}

func (c *Client) Patch(ctx context.Context, p model.TaskPatch) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, "update task", http.MethodPatch, c.itemURL(p.ID), p, &out); err != nil {
		return model.Task{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *Client) itemURL(id string) string {
	return c.BaseURL + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: json marshal: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: json decode: %w", op, err)
	}
	return nil
}
