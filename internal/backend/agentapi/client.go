// Package agentapi implements service.Backend over the Deadline Edger HTTP API.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edger/internal/logger"
	"edger/internal/service"
)

// Timeout bounds a single backend request. Agent replies can be slow.
const Timeout = 60 * time.Second

// maxErrorBody caps how much of an error body ends up in messages.
const maxErrorBody = 2048

// ErrHTMLResponse means the backend answered with a web page, usually a tunnel
// interstitial, instead of JSON.
var ErrHTMLResponse = errors.New("backend API not accessible - received HTML response")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Op     string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s - %s", e.Op, e.Status, e.Body)
}

// Is maps 401 and 403 onto the service sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case service.ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case service.ErrForbidden:
		return e.Code == http.StatusForbidden
	case service.ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// Client implements service.Backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ service.Backend = (*Client)(nil)

// New creates a backend client. token is the session bearer token.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) ([]byte, error) {
	if c.token == "" {
		return nil, service.ErrNoSession
	}

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ngrok-skip-browser-warning", "true")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	logger.Debug("backend %s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status, Body: text}
	}

	if out != nil {
		if isHTML(data) {
			return nil, fmt.Errorf("%s: %w", op, ErrHTMLResponse)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return data, nil
}

func isHTML(data []byte) bool {
	s := string(data)
	return strings.Contains(s, "<!DOCTYPE html>") || strings.Contains(s, "<html")
}

// OnboardingStatus reports whether the user finished onboarding.
// The endpoint may answer with a JSON boolean, an object carrying
// "onboarded", or plain text.
func (c *Client) OnboardingStatus(ctx context.Context) (bool, error) {
	data, err := c.do(ctx, "Failed to check onboarding status", http.MethodGet, "/api/users/onboard", nil, nil)
	if err != nil {
		return false, err
	}
	if isHTML(data) {
		return false, ErrHTMLResponse
	}

	text := strings.TrimSpace(string(data))
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return strings.EqualFold(text, "true"), nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case map[string]any:
		b, _ := val["onboarded"].(bool)
		return b, nil
	}
	return false, nil
}

// SubmitOnboarding stores onboarding answers. Any 2xx is success.
func (c *Client) SubmitOnboarding(ctx context.Context, data service.Onboarding) error {
	if data.Context == nil {
		data.Context = map[string]any{}
	}
	if data.Preferences == nil {
		data.Preferences = []string{}
	}
	_, err := c.do(ctx, "Failed to submit onboarding", http.MethodPost, "/api/users/onboard", data, nil)
	return err
}

// SubmitToken forwards Google tokens to the backend.
func (c *Client) SubmitToken(ctx context.Context, tokens service.GoogleTokens) error {
	_, err := c.do(ctx, "Failed to submit token", http.MethodPost, "/api/users/token", tokens, nil)
	return err
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat sends a message to the agent.
func (c *Client) Chat(ctx context.Context, message string) (service.AgentResponse, error) {
	var resp service.AgentResponse
	if _, err := c.do(ctx, "Failed to chat with agent", http.MethodPost, "/api/agent/chat", chatRequest{Message: message}, &resp); err != nil {
		return service.AgentResponse{}, err
	}
	return resp, nil
}

// CreateTask asks the backend to create a task.
func (c *Client) CreateTask(ctx context.Context, task service.TaskRequest) error {
	_, err := c.do(ctx, "Failed to create task", http.MethodPost, "/api/task/create", task, nil)
	return err
}

// Tasks lists the user's tasks.
func (c *Client) Tasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if _, err := c.do(ctx, "Failed to get tasks", http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
