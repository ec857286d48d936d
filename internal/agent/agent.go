// Package agent implements the front-desk support agent and the delegation
// orchestrator it uses to hand questions to specialist agents.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/knowledge"
	"a2a-support-desk/internal/llm"
	"a2a-support-desk/internal/task"
)

// Greeting is the first message of every new support conversation.
const Greeting = "안녕하세요! 고객 지원 에이전트입니다. 어떻게 도와드릴까요?"

// directProducts are answered from the knowledge base without delegation.
var directProducts = []string{"스마트폰", "노트북"}

// Card builds the support agent's card from its configuration.
func Card(cfg config.AgentConfig) a2a.AgentCard {
	return a2a.AgentCard{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Description: cfg.Description,
		Version:     cfg.Version,
		BaseURL:     cfg.BaseURL,
		Capabilities: []a2a.Capability{
			{Name: "answer_general_questions", Description: "일반적인 고객 질문에 답변"},
			{Name: "answer_product_questions", Description: "제품 관련 질문에 답변"},
			{
				Name:        "track_shipping",
				Description: "배송 추적 정보 제공",
				Parameters:  map[string]any{"order_id": "주문 번호"},
			},
			{
				Name:        "billing_inquiry",
				Description: "결제 및 청구 관련 문의 처리",
				Parameters:  map[string]any{"invoice_id": "청구서 번호"},
			},
		},
	}
}

// SupportAgent answers customer questions. It handles general questions
// itself and delegates product, shipping and billing questions to
// specialist agents.
type SupportAgent struct {
	store     *task.Store
	model     llm.Model
	kb        *knowledge.Base
	delegator *Delegator
	logger    *zap.Logger
}

// NewSupportAgent creates the support agent. A nil model falls back to the
// offline keyword classifier and static generator.
func NewSupportAgent(store *task.Store, model llm.Model, kb *knowledge.Base, delegator *Delegator, logger *zap.Logger) *SupportAgent {
	if model == nil {
		model = llm.Offline{}
	}
	if kb == nil {
		kb = knowledge.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupportAgent{
		store:     store,
		model:     model,
		kb:        kb,
		delegator: delegator,
		logger:    logger.With(zap.String("component", "support_agent")),
	}
}

// Startup discovers every configured specialist concurrently and registers
// it under its role. Unreachable specialists are only logged; they are
// discovered again on first delegation.
func (a *SupportAgent) Startup(ctx context.Context) int {
	if a.delegator == nil {
		return 0
	}
	registry := a.delegator.client.Registry()

	var (
		g     errgroup.Group
		found atomic.Int32
	)
	for role, address := range a.delegator.addresses {
		if address == "" {
			continue
		}
		g.Go(func() error {
			card, err := a.delegator.client.Discover(ctx, address)
			if err != nil {
				a.logger.Info("specialist not available yet", zap.String("role", role), zap.String("address", address), zap.Error(err))
				return nil
			}
			registry.Register(role, card)
			found.Add(1)
			a.logger.Info("specialist discovered", zap.String("role", role), zap.String("name", card.Name))
			return nil
		})
	}
	_ = g.Wait()
	return int(found.Load())
}

// OnTaskCreated greets a conversation that has no messages yet.
func (a *SupportAgent) OnTaskCreated(ctx context.Context, t *task.Task) error {
	a.logger.Info("new task", zap.String("task_id", t.ID), zap.String("title", t.Title))

	_, err := a.store.Update(ctx, t.ID, func(t *task.Task) error {
		if len(t.Messages) > 0 || t.Status.Terminal() {
			return nil
		}
		if err := t.SetStatus(task.StatusInProgress); err != nil {
			return err
		}
		t.AddText(task.RoleAgent, Greeting)
		return t.SetStatus(task.StatusWaitingForInput)
	})
	if err != nil {
		return fmt.Errorf("failed to greet task %s: %w", t.ID, err)
	}
	return nil
}

// OnMessageReceived routes a user question by category.
func (a *SupportAgent) OnMessageReceived(ctx context.Context, t *task.Task, msg task.Message) error {
	if msg.Role != task.RoleUser || msg.Content.IsEmpty() {
		return nil
	}
	query := msg.Content.String()

	category := a.model.Classify(ctx, query)
	a.logger.Info("classified query",
		zap.String("task_id", t.ID),
		zap.String("message_id", msg.ID),
		zap.String("category", string(category)),
	)

	switch category {
	case llm.CategoryGeneral:
		answer, ok := a.kb.FAQ(query)
		if !ok {
			answer = a.model.Generate(ctx, query)
		}
		return a.answer(ctx, t.ID, answer)

	case llm.CategoryProduct:
		if key, ok := a.kb.MatchProduct(strings.ToLower(query), directProducts...); ok {
			info, _ := a.kb.ProductInfo(key)
			return a.answer(ctx, t.ID, info)
		}
		return a.delegate(ctx, t.ID, "product", query)

	case llm.CategoryShipping:
		if strings.Contains(query, "배송") && strings.Contains(query, "정책") {
			if policy, ok := a.kb.FAQ(knowledge.ShippingPolicyKey); ok {
				return a.answer(ctx, t.ID, policy)
			}
		}
		return a.delegate(ctx, t.ID, "shipping", query)

	case llm.CategoryBilling:
		return a.delegate(ctx, t.ID, "billing", query)

	default:
		return a.answer(ctx, t.ID, a.model.Generate(ctx, query))
	}
}

func (a *SupportAgent) answer(ctx context.Context, taskID, text string) error {
	_, err := a.store.Update(ctx, taskID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return nil
		}
		t.AddText(task.RoleAgent, text)
		if task.CanTransition(t.Status, task.StatusWaitingForInput) {
			return t.SetStatus(task.StatusWaitingForInput)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to answer task %s: %w", taskID, err)
	}
	return nil
}

func (a *SupportAgent) delegate(ctx context.Context, taskID, role, query string) error {
	if a.delegator == nil {
		return a.answer(ctx, taskID, a.model.Generate(ctx, query))
	}
	_, err := a.delegator.Start(ctx, taskID, role, query)
	return err
}
