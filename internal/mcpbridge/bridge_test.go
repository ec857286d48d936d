package mcpbridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/api"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/task"
	"a2a-support-desk/internal/worker"
)

// startAgent serves a protocol server whose handler echoes user messages.
func startAgent(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	sup := worker.New(context.Background(), logger, nil)
	t.Cleanup(func() { _ = sup.Shutdown(context.Background()) })

	store := task.NewStore()
	h := a2a.HandlerFuncs{
		MessageReceived: func(ctx context.Context, tk *task.Task, msg task.Message) error {
			_, err := store.AppendMessage(ctx, tk.ID, task.NewMessage(task.RoleAgent, task.TextContent("echo: "+msg.Content.String())))
			return err
		},
	}

	ts := httptest.NewUnstartedServer(nil)
	card := a2a.AgentCard{
		ID:      "echo-agent",
		Name:    "Echo",
		Version: "1.0.0",
		BaseURL: "http://" + ts.Listener.Addr().String(),
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	srv := a2a.NewServer(card, store, h, sup, a2a.WithLogger(logger))
	ts.Config.Handler = api.New(cfg, srv, nil, api.WithLogger(logger)).Handler()
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func newBridge(t *testing.T) *Bridge {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return New(a2a.NewClient(a2a.NewRegistry(), 5*time.Second, logger), logger)
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func TestBridgeTaskFlow(t *testing.T) {
	agent := startAgent(t)
	b := newBridge(t)

	result, body := call(t, b.DiscoverAgent(), map[string]any{"url": agent.URL, "key": "echo"})
	require.False(t, result.IsError, body)
	var card a2a.AgentCard
	require.NoError(t, json.Unmarshal([]byte(body), &card))
	assert.Equal(t, "echo-agent", card.ID)

	result, body = call(t, b.ListAgents(), nil)
	require.False(t, result.IsError, body)
	var entries []a2a.Entry
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "echo", entries[0].Key)

	result, body = call(t, b.CreateTask(), map[string]any{
		"agent":       "echo",
		"title":       "배송 정보 요청",
		"description": "TRK123456789",
		"metadata":    map[string]any{"original_task_id": "task_local0001"},
	})
	require.False(t, result.IsError, body)
	var created task.Task
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, "task_local0001", created.Metadata["original_task_id"])

	result, body = call(t, b.SendMessage(), map[string]any{"agent": "echo", "task_id": created.ID, "content": "hello"})
	require.False(t, result.IsError, body)

	require.Eventually(t, func() bool {
		result, body = call(t, b.GetTask(), map[string]any{"agent": "echo-agent", "task_id": created.ID})
		if result.IsError {
			return false
		}
		var got task.Task
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			return false
		}
		last, ok := got.LastMessage()
		return ok && last.Content.Text() == "echo: hello"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBridgeToolErrors(t *testing.T) {
	b := newBridge(t)

	tests := []struct {
		name string
		h    func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]any
		want string
	}{
		{"discover without url", b.DiscoverAgent(), nil, "url is required"},
		{"discover unreachable", b.DiscoverAgent(), map[string]any{"url": "http://127.0.0.1:1"}, "failed to discover agent"},
		{"create on unknown agent", b.CreateTask(), map[string]any{"agent": "billing"}, "not registered"},
		{"send without task", b.SendMessage(), map[string]any{"agent": "billing"}, "task_id is required"},
		{"send without content", b.SendMessage(), map[string]any{"agent": "billing", "task_id": "task_x"}, "content or data is required"},
		{"get without agent", b.GetTask(), map[string]any{"task_id": "task_x"}, "agent is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, body := call(t, tt.h, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestBridgeOverStreamableHTTP(t *testing.T) {
	agent := startAgent(t)
	mcpServer := httptest.NewServer(newBridge(t).Handler("test"))
	defer mcpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := mcpclient.NewStreamableHttpClient(mcpServer.URL + MCPPath)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"discover_agent", "list_agents", "create_task", "send_message", "get_task"}, names)

	req := mcp.CallToolRequest{}
	req.Params.Name = "discover_agent"
	req.Params.Arguments = map[string]any{"url": agent.URL}
	result, err := c.CallTool(ctx, req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"id":"echo-agent"`)
}
