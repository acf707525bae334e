package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// ErrUsage marks errors caused by how the command was invoked.
var ErrUsage = errors.New("usage error")

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Client talks to the kafkaops HTTP API.
type Client struct {
	baseURL string
	token   string
	logger  *slog.Logger
	http    *http.Client
}

// NewClient creates a Client for baseURL authenticating with token.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListActions returns the server's action catalogue.
func (c *Client) ListActions(ctx context.Context) ([]action.Info, error) {
	var out []action.Info
	if err := c.do(ctx, http.MethodGet, "/api/v1/actions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invoke runs an action synchronously and returns its raw response.
func (c *Client) Invoke(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/v1/actions/"+url.PathEscape(name), input, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartRun starts an asynchronous run of an action.
func (c *Client) StartRun(ctx context.Context, name string, input json.RawMessage) (*models.Run, error) {
	var run models.Run
	if err := c.do(ctx, http.MethodPost, "/api/v1/actions/"+url.PathEscape(name)+"/runs", input, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches a run by ID.
func (c *Client) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	var run models.Run
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+id.String(), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists runs matching query, newest first.
func (c *Client) ListRuns(ctx context.Context, query url.Values) ([]*models.Run, error) {
	path := "/api/v1/runs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out []*models.Run
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WaitForRun polls a run every interval until it finishes or ctx is done.
func (c *Client) WaitForRun(ctx context.Context, id uuid.UUID, interval time.Duration) (*models.Run, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := c.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if run.Finished() {
			return run, nil
		}
		c.logger.Debug("run not finished", "run_id", id, "status", run.Status)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for run %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request", "method", method, "path", path,
		"status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &env); err != nil || env.Error.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: strings.TrimSpace(string(data))}
		}
		return &APIError{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message}
	}

	if out == nil {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
