package api

import (
	"github.com/gofiber/fiber/v2"

	"a2a-support-desk/internal/a2a"
)

// APISpec represents the API specification.
type APISpec struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// Endpoint represents an API endpoint specification.
type Endpoint struct {
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Summary   string            `json:"summary"`
	Request   map[string]Field  `json:"request,omitempty"`
	Responses map[string]string `json:"responses"`
}

// Field represents a schema field.
type Field struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

func apiSpec(card a2a.AgentCard) APISpec {
	return APISpec{
		Title:       card.Name,
		Description: card.Description,
		Version:     card.Version,
		Endpoints: []Endpoint{
			{
				Method:    "GET",
				Path:      a2a.CardPath,
				Summary:   "Agent card",
				Responses: map[string]string{"200": "the agent's self-description"},
			},
			{
				Method:  "POST",
				Path:    a2a.TasksPath,
				Summary: "Create a task",
				Request: map[string]Field{
					"id":          {Type: "string", Description: "caller-chosen task id"},
					"title":       {Type: "string", Description: "short title"},
					"description": {Type: "string", Description: "what the task is about"},
					"metadata":    {Type: "object", Description: "free-form metadata"},
				},
				Responses: map[string]string{"201": "task created", "400": "invalid id", "409": "id already used"},
			},
			{
				Method:    "GET",
				Path:      a2a.TasksPath,
				Summary:   "List tasks, optionally filtered by ?status=",
				Responses: map[string]string{"200": "tasks and a per-status summary", "400": "unknown status"},
			},
			{
				Method:    "GET",
				Path:      a2a.TasksPath + "/:id",
				Summary:   "Get a task with its messages",
				Responses: map[string]string{"200": "task", "404": "unknown task"},
			},
			{
				Method:  "POST",
				Path:    a2a.TasksPath + "/:id/messages",
				Summary: "Append a message",
				Request: map[string]Field{
					"id":      {Type: "string", Description: "caller-chosen message id"},
					"type":    {Type: "string", Description: "text, data, file or function_call"},
					"role":    {Type: "string", Description: "user, agent or system"},
					"content": {Type: "string|object", Description: "message body", Required: true},
				},
				Responses: map[string]string{"201": "message stored", "400": "missing content", "404": "unknown task", "409": "task closed or duplicate id"},
			},
			{
				Method:  "PUT",
				Path:    a2a.TasksPath + "/:id",
				Summary: "Change the task status",
				Request: map[string]Field{
					"status": {Type: "string", Description: "target status"},
				},
				Responses: map[string]string{"200": "task", "400": "unknown status", "404": "unknown task", "409": "illegal transition"},
			},
			{
				Method:  "POST",
				Path:    "/api/query",
				Summary: "Ask a question and wait for the reply",
				Request: map[string]Field{
					"query":    {Type: "string", Description: "the question", Required: true},
					"task_id":  {Type: "string", Description: "continue an existing task"},
					"metadata": {Type: "object", Description: "metadata for a new task"},
				},
				Responses: map[string]string{"200": "task id and latest reply"},
			},
			{
				Method:    "GET",
				Path:      "/agents",
				Summary:   "Known agents",
				Responses: map[string]string{"200": "registry entries"},
			},
			{
				Method:  "POST",
				Path:    "/agents",
				Summary: "Discover an agent",
				Request: map[string]Field{
					"url": {Type: "string", Description: "agent base URL", Required: true},
					"key": {Type: "string", Description: "extra registry key, such as a role"},
				},
				Responses: map[string]string{"201": "discovered card", "502": "card unreachable or invalid"},
			},
			{
				Method:    "GET",
				Path:      "/health",
				Summary:   "Health check",
				Responses: map[string]string{"200": "status, task count and job counters"},
			},
		},
	}
}

// docsHandler returns the API description as JSON.
func (s *Server) docsHandler(c *fiber.Ctx) error {
	return c.JSON(apiSpec(s.a2a.Card()))
}
