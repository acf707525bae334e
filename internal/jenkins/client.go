// Package jenkins is the job client every Kafka action runs through: it
// starts parameterised jobs, resolves their build numbers, polls them to
// completion and fetches console logs and artifacts.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/kafkaops/internal/config"
)

// Sentinel errors for Jenkins client failures.
var (
	ErrUnreachable      = errors.New("jenkins unreachable")
	ErrUnexpectedStatus = errors.New("jenkins unexpected status")
	ErrTimeout          = errors.New("jenkins request timeout")
	ErrNotFound         = errors.New("jenkins resource not found")
	ErrArtifactMissing  = errors.New("jenkins artifact missing")
)

// Client is the interface for driving Jenkins jobs.
//
// Trigger, Status and WaitForCompletion never return errors: failures are
// folded into the returned value so callers can report them verbatim.
type Client interface {
	Trigger(ctx context.Context, t JobTrigger) TriggerOutcome
	Status(ctx context.Context, job string, build int) JobStatus
	WaitForCompletion(ctx context.Context, job string, build int) JobStatus
	ConsoleText(ctx context.Context, job string, build int) (string, error)
	Artifact(ctx context.Context, job string, build int, path string) (string, error)
	Ping(ctx context.Context) error
}

// HTTPClient implements Client using the Jenkins remote access API.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	poll     config.PollConfig
	logger   *slog.Logger
	client   *http.Client
}

// NewHTTPClient creates a new Jenkins HTTP client.
func NewHTTPClient(cfg config.JenkinsConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		poll:     cfg.Poll,
		logger:   logger.With("component", "jenkins"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Ping checks that Jenkins answers its root API.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: jenkins not ready (status %d)", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// do issues an authenticated request and returns the full response.
// Absolute URLs (queue locations) are used as-is; paths are joined to the base URL.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	u := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		u = c.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	return resp, nil
}

// getJSON decodes a 200 response body into v.
func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedStatus, endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}

// getText returns a 200 response body as a string.
func (c *HTTPClient) getText(ctx context.Context, endpoint string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: GET %s returned 404", ErrNotFound, endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedStatus, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyError(err)
	}
	return string(body), nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// --- Jenkins response types ---

type queueItem struct {
	Executable *struct {
		Number int `json:"number"`
	} `json:"executable"`
}

type jobInfo struct {
	Builds []struct {
		Number int `json:"number"`
	} `json:"builds"`
}

type buildResult struct {
	Result *string `json:"result"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
