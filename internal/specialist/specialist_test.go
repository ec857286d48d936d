package specialist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"a2a-support-desk/internal/task"
)

func TestProductResponder(t *testing.T) {
	r := NewProductResponder()

	tests := []struct {
		query    string
		contains string
	}{
		{"스마트폰 가격 알려줘", "999,000원"},
		{"노트북 사양이 궁금해요", "- processor: A2A M2 칩셋"},
		{"워치 재고 있나요", "A2A 워치 4은(는) 재고 있음"},
		{"패드 보증 기간", "1년 무상 보증"},
		{"휴대폰", "설명: 최첨단"},
		{"냉장고 가격", "스마트폰, 노트북, 스마트워치, 태블릿"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Contains(t, r.Respond(tt.query), tt.contains)
		})
	}
}

func TestShippingResponder(t *testing.T) {
	r := NewShippingResponder()

	tests := []struct {
		query    string
		contains string
	}{
		{"TRK123456789 배송 조회", "수령인: 홍길동"},
		{"배송 추적 부탁해요", "TRK123456789, TRK987654321, TRK567890123"},
		{"당일 배송 요금", "당일 배송 정책"},
		{"배송 정책", "[빠른 배송]"},
		{"안녕하세요", "어떤 도움이 필요하신가요?"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Contains(t, r.Respond(tt.query), tt.contains)
		})
	}
}

func TestBillingResponder(t *testing.T) {
	r := NewBillingResponder()

	tests := []struct {
		query    string
		contains string
	}{
		{"ORD-20250511-002 주문 조회", "금액: 1,599,000원"},
		{"ORD-20250501-001 주문 내역", "환불 금액: 999,000원"},
		{"주문 확인", "샘플 주문 번호"},
		{"결제 방법 중 계좌이체", "계좌이체 결제 정보"},
		{"결제 수단 알려줘", "[모바일 결제]"},
		{"환불하고 싶어요", "고객센터(1234-5678)"},
		{"결제 내역 확인하고 싶어요", "유효한 주문 번호가 필요합니다"},
		{"안녕", "어떤 도움이 필요하신가요?"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Contains(t, r.Respond(tt.query), tt.contains)
		})
	}
}

func TestFormatWon(t *testing.T) {
	assert.Equal(t, "0", formatWon(0))
	assert.Equal(t, "999", formatWon(999))
	assert.Equal(t, "999,000", formatWon(999000))
	assert.Equal(t, "1,599,000", formatWon(1599000))
	assert.Equal(t, "-1,000", formatWon(-1000))
}

func TestByRole(t *testing.T) {
	for _, role := range []string{RoleProduct, RoleShipping, RoleBilling} {
		r, ok := ByRole(role)
		require.True(t, ok)
		assert.Equal(t, role, r.Role())
		card := r.Card("http://localhost:8001")
		assert.NoError(t, card.Validate())
		assert.NotEmpty(t, r.Greeting())
	}
	_, ok := ByRole("support")
	assert.False(t, ok)
}

func TestHandlerAnswersDescription(t *testing.T) {
	ctx := context.Background()
	store := task.NewStore()
	h := NewHandler(store, NewBillingResponder(), zaptest.NewLogger(t))

	created, err := store.Create(ctx, task.New("", "결제 정보 요청", "결제 내역 확인", nil))
	require.NoError(t, err)

	require.NoError(t, h.OnTaskCreated(ctx, created))

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusWaitingForInput, got.Status)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, task.RoleAgent, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content.Text(), "주문 번호")
}

func TestHandlerGreetsWithoutDescription(t *testing.T) {
	ctx := context.Background()
	store := task.NewStore()
	h := NewHandler(store, NewShippingResponder(), nil)

	created, err := store.Create(ctx, task.New("", "", "", nil))
	require.NoError(t, err)
	require.NoError(t, h.OnTaskCreated(ctx, created))

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, NewShippingResponder().Greeting(), got.Messages[0].Content.Text())
	assert.Equal(t, task.StatusWaitingForInput, got.Status)
}

func TestHandlerCompletesAfterExchanges(t *testing.T) {
	ctx := context.Background()
	store := task.NewStore()
	h := NewHandler(store, NewProductResponder(), nil)

	created, err := store.Create(ctx, task.New("", "", "", nil))
	require.NoError(t, err)
	require.NoError(t, h.OnTaskCreated(ctx, created))

	ask := func(text string) {
		msg, err := store.AppendMessage(ctx, created.ID, task.NewMessage(task.RoleUser, task.TextContent(text)))
		require.NoError(t, err)
		snap, err := store.Get(created.ID)
		require.NoError(t, err)
		require.NoError(t, h.OnMessageReceived(ctx, snap, msg))
	}

	ask("스마트폰 가격")
	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
	assert.Equal(t, task.StatusWaitingForInput, got.Status)

	ask("노트북 가격")
	got, err = store.Get(created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 5)
	assert.Equal(t, task.StatusCompleted, got.Status)

	// Completed tasks are left alone.
	require.NoError(t, h.OnMessageReceived(ctx, got, task.NewMessage(task.RoleUser, task.TextContent("태블릿"))))
	again, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Len(t, again.Messages, 5)
}

func TestHandlerIgnoresAgentMessages(t *testing.T) {
	ctx := context.Background()
	store := task.NewStore()
	h := NewHandler(store, NewProductResponder(), nil)

	created, err := store.Create(ctx, task.New("", "", "", nil))
	require.NoError(t, err)

	require.NoError(t, h.OnMessageReceived(ctx, created, task.NewMessage(task.RoleAgent, task.TextContent("스마트폰"))))
	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}
