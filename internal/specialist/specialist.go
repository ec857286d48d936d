// Package specialist implements the expert agents the support desk
// delegates to. Each expert is a Responder wrapped in a Handler.
package specialist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/task"
)

// completeAfter is the message count at which a specialist closes its task.
const completeAfter = 4

// Responder answers questions in one domain.
type Responder interface {
	Role() string
	Card(baseURL string) a2a.AgentCard
	Greeting() string
	Respond(query string) string
}

// Handler drives a Responder from protocol events.
type Handler struct {
	store     *task.Store
	responder Responder
	logger    *zap.Logger
}

// NewHandler creates a protocol handler for r.
func NewHandler(store *task.Store, r Responder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:     store,
		responder: r,
		logger:    logger.With(zap.String("component", "specialist"), zap.String("role", r.Role())),
	}
}

// OnTaskCreated answers the task description, or greets when there is none.
func (h *Handler) OnTaskCreated(ctx context.Context, t *task.Task) error {
	h.logger.Info("new request", zap.String("task_id", t.ID), zap.String("title", t.Title))

	_, err := h.store.Update(ctx, t.ID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return nil
		}
		if err := t.SetStatus(task.StatusInProgress); err != nil {
			return err
		}
		if t.Description == "" {
			if len(t.Messages) == 0 {
				t.AddText(task.RoleAgent, h.responder.Greeting())
			}
			return t.SetStatus(task.StatusWaitingForInput)
		}
		t.AddText(task.RoleAgent, h.responder.Respond(t.Description))
		return settle(t)
	})
	if err != nil {
		return fmt.Errorf("failed to answer task %s: %w", t.ID, err)
	}
	return nil
}

// OnMessageReceived answers a user message.
func (h *Handler) OnMessageReceived(ctx context.Context, t *task.Task, msg task.Message) error {
	if msg.Role != task.RoleUser || msg.Content.IsEmpty() {
		return nil
	}
	answer := h.responder.Respond(msg.Content.String())

	_, err := h.store.Update(ctx, t.ID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return nil
		}
		t.AddText(task.RoleAgent, answer)
		if err := t.SetStatus(task.StatusInProgress); err != nil {
			return err
		}
		return settle(t)
	})
	if err != nil {
		return fmt.Errorf("failed to answer message %s: %w", msg.ID, err)
	}
	h.logger.Debug("answered", zap.String("task_id", t.ID), zap.String("message_id", msg.ID))
	return nil
}

// settle completes a conversation after a few exchanges and otherwise
// waits for the next question.
func settle(t *task.Task) error {
	if len(t.Messages) >= completeAfter {
		return t.SetStatus(task.StatusCompleted)
	}
	return t.SetStatus(task.StatusWaitingForInput)
}

// ByRole returns the built-in responder for a role.
func ByRole(role string) (Responder, bool) {
	switch role {
	case RoleProduct:
		return NewProductResponder(), true
	case RoleShipping:
		return NewShippingResponder(), true
	case RoleBilling:
		return NewBillingResponder(), true
	}
	return nil, false
}

// Role keys used in configuration and registry aliases.
const (
	RoleProduct  = "product"
	RoleShipping = "shipping"
	RoleBilling  = "billing"
)
