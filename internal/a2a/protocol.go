package a2a

import (
	"fmt"
	"net/url"

	"a2a-support-desk/internal/task"
)

// Wire paths shared by server and client.
const (
	CardPath  = "/.well-known/agent.json"
	TasksPath = "/a2a/tasks"
)

// AgentCard is the self-description an agent serves at CardPath.
type AgentCard struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	BaseURL      string       `json:"base_url"`
	Capabilities []Capability `json:"capabilities"`
	AuthRequired bool         `json:"auth_required"`
}

// Capability describes one skill advertised by an agent.
type Capability struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Validate checks the fields every usable card must carry.
func (c AgentCard) Validate() error {
	if c.ID == "" {
		return &task.ValidationError{Field: "card id", Reason: "must not be empty"}
	}
	if c.Name == "" {
		return &task.ValidationError{Field: "card name", Reason: "must not be empty"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &task.ValidationError{Field: "card base_url", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", c.BaseURL)}
	}
	return nil
}

// CreateTaskRequest is the body of POST /a2a/tasks.
type CreateTaskRequest struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PostMessageRequest is the body of POST /a2a/tasks/{id}/messages.
type PostMessageRequest struct {
	ID      string           `json:"id,omitempty"`
	Type    task.MessageType `json:"type,omitempty"`
	Role    task.Role        `json:"role,omitempty"`
	Content task.Content     `json:"content"`
}

// UpdateTaskRequest is the body of PUT /a2a/tasks/{id}.
type UpdateTaskRequest struct {
	Status *string `json:"status,omitempty"`
}

// ErrorResponse is the body returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
