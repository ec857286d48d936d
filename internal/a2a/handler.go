package a2a

import (
	"context"

	"a2a-support-desk/internal/task"
)

// Handler reacts to protocol events. Hooks run as supervised background
// jobs after the triggering request has been answered, and receive a
// snapshot of the task taken right after the event.
type Handler interface {
	OnTaskCreated(ctx context.Context, t *task.Task) error
	OnMessageReceived(ctx context.Context, t *task.Task, msg task.Message) error
}

// NopHandler ignores every event.
type NopHandler struct{}

func (NopHandler) OnTaskCreated(context.Context, *task.Task) error { return nil }

func (NopHandler) OnMessageReceived(context.Context, *task.Task, task.Message) error { return nil }

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	TaskCreated     func(ctx context.Context, t *task.Task) error
	MessageReceived func(ctx context.Context, t *task.Task, msg task.Message) error
}

func (h HandlerFuncs) OnTaskCreated(ctx context.Context, t *task.Task) error {
	if h.TaskCreated == nil {
		return nil
	}
	return h.TaskCreated(ctx, t)
}

func (h HandlerFuncs) OnMessageReceived(ctx context.Context, t *task.Task, msg task.Message) error {
	if h.MessageReceived == nil {
		return nil
	}
	return h.MessageReceived(ctx, t, msg)
}
