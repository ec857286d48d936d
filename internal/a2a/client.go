package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"a2a-support-desk/internal/reqid"
	"a2a-support-desk/internal/task"
)

// Client calls other agents by registry key. Each call has a fixed
// timeout and is never retried.
type Client struct {
	registry   *Registry
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client that resolves agents through registry.
func NewClient(registry *Registry, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		registry:   registry,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "a2a_client")),
	}
}

// Registry returns the registry used to resolve agent keys.
func (c *Client) Registry() *Registry { return c.registry }

// Discover fetches and caches the card served at address.
func (c *Client) Discover(ctx context.Context, address string) (AgentCard, error) {
	return c.registry.Discover(ctx, address)
}

// CreateTask creates a task on the agent registered under agentKey.
func (c *Client) CreateTask(ctx context.Context, agentKey, title, description string, metadata map[string]any) (*task.Task, error) {
	req := CreateTaskRequest{
		Title:       title,
		Description: description,
		Metadata:    metadata,
	}
	var t task.Task
	if err := c.call(ctx, "create_task", agentKey, http.MethodPost, TasksPath, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SendMessage posts a message to a task on the agent registered under agentKey.
func (c *Client) SendMessage(ctx context.Context, agentKey, taskID string, content task.Content, msgType task.MessageType) (*task.Message, error) {
	if msgType == "" {
		msgType = task.MessageText
	}
	req := PostMessageRequest{
		Type:    msgType,
		Role:    task.RoleUser,
		Content: content,
	}
	var msg task.Message
	path := TasksPath + "/" + url.PathEscape(taskID) + "/messages"
	if err := c.call(ctx, "send_message", agentKey, http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetTaskStatus fetches the current state of a remote task.
func (c *Client) GetTaskStatus(ctx context.Context, agentKey, taskID string) (*task.Task, error) {
	var t task.Task
	path := TasksPath + "/" + url.PathEscape(taskID)
	if err := c.call(ctx, "get_task", agentKey, http.MethodGet, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) call(ctx context.Context, op, agentKey, method, path string, body, out any) error {
	card, err := c.registry.Lookup(agentKey)
	if err != nil {
		return unknownAgent(agentKey)
	}
	remote := func(status int, respBody string, err error) error {
		return &RemoteError{Op: op, Agent: agentKey, StatusCode: status, Body: respBody, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(card.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return remote(0, "", fmt.Errorf("failed to create request: %w", err))
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if id := reqid.From(ctx); id != "" {
		httpReq.Header.Set(reqid.Header, id)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return remote(0, "", fmt.Errorf("failed to send request: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return remote(httpResp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("remote call",
		zap.String("op", op),
		zap.String("agent", agentKey),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		msg := string(respBody)
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return remote(httpResp.StatusCode, msg, errors.New(http.StatusText(httpResp.StatusCode)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return remote(httpResp.StatusCode, "", fmt.Errorf("failed to parse response: %w", err))
		}
	}
	return nil
}
