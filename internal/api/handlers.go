package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/task"
)

// parseJSON attempts to parse JSON from body regardless of Content-Type.
func parseJSON(c *fiber.Ctx, out any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

// healthHandler returns the API health status.
func (s *Server) healthHandler(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status": "ok",
		"agent":  s.a2a.Card().ID,
		"tasks":  s.a2a.Store().Len(),
	}
	if s.supervisor != nil {
		resp["jobs"] = s.supervisor.Stats()
	}
	return c.JSON(resp)
}

// cardHandler serves the agent card.
func (s *Server) cardHandler(c *fiber.Ctx) error {
	return c.JSON(s.a2a.Card())
}

// createTaskHandler creates a task and answers before the creation hook
// has run.
func (s *Server) createTaskHandler(c *fiber.Ctx) error {
	var req a2a.CreateTaskRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}

	t, err := s.a2a.CreateTask(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// listTasksHandler returns tasks, optionally filtered by ?status=, with a
// per-status summary.
func (s *Server) listTasksHandler(c *fiber.Ctx) error {
	tasks, err := s.a2a.ListTasks(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}

	summary := fiber.Map{"total": len(tasks)}
	for _, st := range []task.Status{
		task.StatusCreated, task.StatusInProgress, task.StatusWaitingForInput,
		task.StatusCompleted, task.StatusFailed, task.StatusCancelled,
	} {
		summary[string(st)] = 0
	}
	for _, t := range tasks {
		summary[string(t.Status)] = summary[string(t.Status)].(int) + 1
	}

	return c.JSON(fiber.Map{
		"tasks":   tasks,
		"summary": summary,
	})
}

// getTaskHandler returns a specific task.
func (s *Server) getTaskHandler(c *fiber.Ctx) error {
	t, err := s.a2a.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// updateTaskHandler applies a status change.
func (s *Server) updateTaskHandler(c *fiber.Ctx) error {
	var req a2a.UpdateTaskRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}

	t, err := s.a2a.UpdateTask(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// postMessageHandler appends a message and answers before the message
// hook has run.
func (s *Server) postMessageHandler(c *fiber.Ctx) error {
	var req a2a.PostMessageRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}

	msg, err := s.a2a.PostMessage(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

const defaultQueryTimeout = 30 * time.Second

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Query    string         `json:"query"`
	TaskID   string         `json:"task_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// queryHandler asks a question and waits, bounded by the configured query
// timeout, for the agent's reply.
func (s *Server) queryHandler(c *fiber.Ctx) error {
	var req QueryRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}

	timeout := s.config.Server.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	result, err := s.a2a.Query(ctx, req.TaskID, req.Query, req.Metadata)
	if err != nil {
		return err
	}
	s.logger.Debug("query answered",
		zap.String("request_id", requestIDFrom(c)),
		zap.String("task_id", result.TaskID),
	)
	return c.JSON(result)
}

// listAgentsHandler returns every registry entry.
func (s *Server) listAgentsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"agents": s.registry.List(),
	})
}

// DiscoverAgentRequest is the request body for POST /agents.
type DiscoverAgentRequest struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

// discoverAgentHandler fetches the card served at url and caches it,
// additionally under key when one is given.
func (s *Server) discoverAgentHandler(c *fiber.Ctx) error {
	var req DiscoverAgentRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}
	if req.URL == "" {
		return &a2a.ValidationError{Field: "url", Reason: "is required"}
	}

	card, err := s.registry.Discover(c.UserContext(), req.URL)
	if err != nil {
		return err
	}
	if req.Key != "" {
		s.registry.Register(req.Key, card)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}
