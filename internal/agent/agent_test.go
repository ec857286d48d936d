package agent

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/knowledge"
	"a2a-support-desk/internal/llm"
	"a2a-support-desk/internal/task"
	"a2a-support-desk/internal/worker"
)

// fixedModel classifies everything into one category.
type fixedModel struct {
	category llm.Category
	answer   string
}

func (m fixedModel) Classify(context.Context, string) llm.Category { return m.category }

func (m fixedModel) Generate(context.Context, string) string { return m.answer }

type deskFixture struct {
	server     *a2a.Server
	store      *task.Store
	supervisor *worker.Supervisor
	support    *SupportAgent
	client     *a2a.Client
}

func newDesk(t *testing.T, model llm.Model, addresses map[string]string) *deskFixture {
	t.Helper()
	sup := worker.New(context.Background(), zap.NewNop(), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Shutdown(ctx)
	})

	store := task.NewStore()
	client := a2a.NewClient(a2a.NewRegistry(), time.Second, zap.NewNop())
	d := NewDelegator(client, store, addresses,
		WithPolling(5, time.Millisecond),
		WithSupervisor(sup),
	)
	support := NewSupportAgent(store, model, knowledge.Default(), d, zap.NewNop())
	card := a2a.AgentCard{ID: "customer-support-agent", Name: "고객 지원 에이전트", BaseURL: "http://localhost:8000"}

	return &deskFixture{
		server:     a2a.NewServer(card, store, support, sup),
		store:      store,
		supervisor: sup,
		support:    support,
		client:     client,
	}
}

func agentMessages(t *testing.T, store *task.Store, id string) []string {
	t.Helper()
	got, err := store.Get(id)
	require.NoError(t, err)
	var out []string
	for _, m := range got.Messages {
		if m.Role == task.RoleAgent {
			out = append(out, m.Content.String())
		}
	}
	return out
}

func TestSupportGreetsNewTask(t *testing.T) {
	desk := newDesk(t, llm.Offline{}, nil)
	ctx := context.Background()

	created, err := desk.server.CreateTask(ctx, a2a.CreateTaskRequest{Title: "문의"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCreated, created.Status)
	desk.supervisor.Wait()

	got, err := desk.store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusWaitingForInput, got.Status)
	assert.Equal(t, []string{Greeting}, agentMessages(t, desk.store, created.ID))

	// The conversation still accepts questions.
	msg, err := desk.server.PostMessage(ctx, created.ID, a2a.PostMessageRequest{Content: task.TextContent("영업시간이 어떻게 되나요?")})
	require.NoError(t, err)
	assert.Equal(t, task.RoleUser, msg.Role)
	desk.supervisor.Wait()

	assert.Len(t, agentMessages(t, desk.store, created.ID), 2)
}

func TestSupportAnswersProductDirectly(t *testing.T) {
	remote := newFakeSpecialist(t, nil)
	desk := newDesk(t, llm.Offline{}, map[string]string{"product": remote.server.URL})
	ctx := context.Background()

	res, err := desk.server.Query(ctx, "", "스마트폰 제품 가격 알려줘", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "999,000원")

	requests, _, _ := remote.stats()
	assert.Zero(t, requests, "direct answers never reach a specialist")

	got, err := desk.store.Get(res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusWaitingForInput, got.Status)
	assert.Equal(t, a2a.QueryTitle, got.Title)
}

func TestSupportDelegatesBilling(t *testing.T) {
	remote := newFakeSpecialist(t, func(poll int) (int, *task.Task) {
		if poll == 1 {
			return http.StatusOK, remoteTask(task.StatusInProgress)
		}
		return http.StatusOK, remoteTask(task.StatusWaitingForInput, "💰 주문 내역 (ORD-20250511-001)")
	})
	desk := newDesk(t, llm.Offline{}, map[string]string{"billing": remote.server.URL})
	ctx := context.Background()

	query := "ORD-20250511-001 주문 내역 조회해줘"
	res, err := desk.server.Query(ctx, "", query, nil)
	require.NoError(t, err)
	assert.Equal(t, "결제 전문가에게 문의를 전달했습니다. 잠시만 기다려주세요...", res.Response)

	desk.supervisor.Wait()

	assert.Equal(t, []string{
		"결제 전문가에게 문의를 전달했습니다. 잠시만 기다려주세요...",
		"💰 주문 내역 (ORD-20250511-001)",
	}, agentMessages(t, desk.store, res.TaskID))

	_, polls, created := remote.stats()
	assert.Equal(t, 2, polls)
	require.Len(t, created, 1)
	assert.Equal(t, res.TaskID, created[0].Metadata["original_task_id"])
	assert.Equal(t, query, created[0].Description)
}

func TestSupportRouting(t *testing.T) {
	tests := []struct {
		name     string
		model    fixedModel
		query    string
		expected string
	}{
		{
			name:     "general uses the faq",
			model:    fixedModel{category: llm.CategoryGeneral, answer: "generated"},
			query:    "반품 하고 싶어요",
			expected: "반품",
		},
		{
			name:     "general falls back to the generator",
			model:    fixedModel{category: llm.CategoryGeneral, answer: "generated"},
			query:    "오늘 날씨 어때요",
			expected: "generated",
		},
		{
			name:     "shipping policy is answered locally",
			model:    fixedModel{category: llm.CategoryShipping},
			query:    "배송 정책 알려주세요",
			expected: "배송 정책 안내",
		},
		{
			name:     "laptop is answered locally",
			model:    fixedModel{category: llm.CategoryProduct},
			query:    "노트북 얼마예요",
			expected: "1,599,000원",
		},
		{
			name:     "other uses the generator",
			model:    fixedModel{category: llm.CategoryOther, answer: "잡담 답변"},
			query:    "안녕",
			expected: "잡담 답변",
		},
		{
			name:     "unreachable specialist",
			model:    fixedModel{category: llm.CategoryShipping},
			query:    "TRK123456789 배송 조회",
			expected: "배송 서비스에 일시적인 문제가 발생했습니다",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desk := newDesk(t, tt.model, nil)
			res, err := desk.server.Query(context.Background(), "", tt.query, nil)
			require.NoError(t, err)
			assert.Contains(t, res.Response, tt.expected)
		})
	}
}

func TestSupportIgnoresAgentMessages(t *testing.T) {
	desk := newDesk(t, fixedModel{category: llm.CategoryOther, answer: "x"}, nil)
	ctx := context.Background()

	created, err := desk.store.Create(ctx, task.New("", "", "", nil))
	require.NoError(t, err)

	err = desk.support.OnMessageReceived(ctx, created, task.NewMessage(task.RoleAgent, task.TextContent("hi")))
	require.NoError(t, err)
	assert.Empty(t, agentMessages(t, desk.store, created.ID))
}

func TestSupportStartup(t *testing.T) {
	remote := newFakeSpecialist(t, nil)
	desk := newDesk(t, llm.Offline{}, map[string]string{
		"billing":  remote.server.URL,
		"shipping": "http://127.0.0.1:1",
		"product":  "",
	})

	n := desk.support.Startup(context.Background())
	assert.Equal(t, 1, n)

	card, err := desk.client.Registry().Lookup("billing")
	require.NoError(t, err)
	assert.Equal(t, "billing-agent", card.ID)

	_, err = desk.client.Registry().Lookup("shipping")
	assert.ErrorIs(t, err, a2a.ErrNotFound)
}

func TestCard(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	card := Card(cfg.Agent)
	require.NoError(t, card.Validate())
	assert.Equal(t, "customer-support-agent", card.ID)
	assert.Equal(t, "http://localhost:8000", card.BaseURL)
	require.Len(t, card.Capabilities, 4)
	assert.Equal(t, "track_shipping", card.Capabilities[2].Name)
}
