// Package mcpbridge exposes the A2A client as MCP tools so MCP-speaking
// assistants can discover agents and exchange tasks with them.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/task"
)

// MCPPath is where the Streamable HTTP endpoint is mounted.
const MCPPath = "/mcp"

// Bridge holds the MCP server state.
type Bridge struct {
	client *a2a.Client
	logger *zap.Logger
}

// New creates a bridge backed by client.
func New(client *a2a.Client, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client: client,
		logger: logger.With(zap.String("component", "mcp_bridge")),
	}
}

// NewMCPServer builds an MCP server with every bridge tool registered.
func (b *Bridge) NewMCPServer(version string) *server.MCPServer {
	s := server.NewMCPServer("mcp-a2a", version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	b.Register(s)
	return s
}

// Handler serves the MCP endpoint and a health check.
func (b *Bridge) Handler(version string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MCPPath, server.NewStreamableHTTPServer(b.NewMCPServer(version)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Register adds the bridge tools to s.
func (b *Bridge) Register(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("discover_agent",
			mcp.WithDescription("Fetch the agent card served at a base URL and remember the agent. The card id becomes a usable agent key; pass key to register an extra alias such as a role name."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Agent base URL, e.g. http://localhost:8003")),
			mcp.WithString("key", mcp.Description("Extra registry key for the agent")),
		),
		b.DiscoverAgent(),
	)

	s.AddTool(
		mcp.NewTool("list_agents",
			mcp.WithDescription("List every known agent key with its card."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		b.ListAgents(),
	)

	s.AddTool(
		mcp.NewTool("create_task",
			mcp.WithDescription("Create a task on a known agent. Returns the remote task."),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent key (use list_agents)")),
			mcp.WithString("title", mcp.Description("Short task title")),
			mcp.WithString("description", mcp.Description("What the task is about")),
			mcp.WithObject("metadata", mcp.Description("Free-form task metadata")),
		),
		b.CreateTask(),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Post a message to a task on a known agent. The agent answers asynchronously: call get_task to read its reply."),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent key")),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Remote task id")),
			mcp.WithString("content", mcp.Description("Text content")),
			mcp.WithObject("data", mcp.Description("Structured content, sent instead of text")),
		),
		b.SendMessage(),
	)

	s.AddTool(
		mcp.NewTool("get_task",
			mcp.WithDescription("Fetch a task with its status and messages from a known agent."),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent key")),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Remote task id")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		b.GetTask(),
	)
}

// DiscoverAgent fetches and caches a card.
func (b *Bridge) DiscoverAgent() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		address, err := reqString(req, "url")
		if err != nil {
			return b.fail("discover_agent", start, err), nil
		}
		card, err := b.client.Discover(ctx, address)
		if err != nil {
			return b.fail("discover_agent", start, err), nil
		}
		if key := req.GetString("key", ""); key != "" {
			b.client.Registry().Register(key, card)
		}
		b.logTool("discover_agent", card.ID, start)
		return jsonResult(card)
	}
}

// ListAgents returns the registry entries.
func (b *Bridge) ListAgents() server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		entries := b.client.Registry().List()
		b.logTool("list_agents", "", start)
		return jsonResult(entries)
	}
}

// CreateTask creates a remote task.
func (b *Bridge) CreateTask() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		agent, err := reqString(req, "agent")
		if err != nil {
			return b.fail("create_task", start, err), nil
		}
		metadata, _ := req.GetArguments()["metadata"].(map[string]any)

		t, err := b.client.CreateTask(ctx, agent,
			req.GetString("title", ""), req.GetString("description", ""), metadata)
		if err != nil {
			return b.fail("create_task", start, err), nil
		}
		b.logTool("create_task", agent, start)
		return jsonResult(t)
	}
}

// SendMessage posts a text or data message to a remote task.
func (b *Bridge) SendMessage() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		agent, err := reqString(req, "agent")
		if err != nil {
			return b.fail("send_message", start, err), nil
		}
		taskID, err := reqString(req, "task_id")
		if err != nil {
			return b.fail("send_message", start, err), nil
		}

		var content task.Content
		if data, ok := req.GetArguments()["data"].(map[string]any); ok {
			content = task.DataContent(data)
		} else if text := req.GetString("content", ""); text != "" {
			content = task.TextContent(text)
		} else {
			return b.fail("send_message", start, fmt.Errorf("content or data is required")), nil
		}

		msg, err := b.client.SendMessage(ctx, agent, taskID, content, task.MessageText)
		if err != nil {
			return b.fail("send_message", start, err), nil
		}
		b.logTool("send_message", agent, start)
		return jsonResult(msg)
	}
}

// GetTask fetches a remote task.
func (b *Bridge) GetTask() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		agent, err := reqString(req, "agent")
		if err != nil {
			return b.fail("get_task", start, err), nil
		}
		taskID, err := reqString(req, "task_id")
		if err != nil {
			return b.fail("get_task", start, err), nil
		}
		t, err := b.client.GetTaskStatus(ctx, agent, taskID)
		if err != nil {
			return b.fail("get_task", start, err), nil
		}
		b.logTool("get_task", agent, start)
		return jsonResult(t)
	}
}

// helper: get required string param
func reqString(req mcp.CallToolRequest, key string) (string, error) {
	v := req.GetString(key, "")
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (b *Bridge) logTool(tool, agent string, start time.Time) {
	b.logger.Info("tool call",
		zap.String("tool", tool),
		zap.String("agent", agent),
		zap.Duration("duration", time.Since(start)),
	)
}

func (b *Bridge) fail(tool string, start time.Time, err error) *mcp.CallToolResult {
	b.logger.Warn("tool call failed",
		zap.String("tool", tool),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	return mcp.NewToolResultError(err.Error())
}
