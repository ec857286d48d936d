package a2a

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"a2a-support-desk/internal/metrics"
	"a2a-support-desk/internal/task"
	"a2a-support-desk/internal/worker"
)

// QueryTitle is the title given to tasks opened through Query.
const QueryTitle = "고객 질문"

// PendingAnswer is returned by Query when no agent message is available yet.
const PendingAnswer = "응답을 생성 중입니다..."

// Server implements the protocol operations on top of a task store and
// dispatches events to the injected handler.
type Server struct {
	card       AgentCard
	store      *task.Store
	handler    Handler
	supervisor *worker.Supervisor
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records protocol counters on m.
func WithMetrics(m *metrics.Collector) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a protocol server. A nil handler ignores all events.
func NewServer(card AgentCard, store *task.Store, handler Handler, sup *worker.Supervisor, opts ...ServerOption) *Server {
	if handler == nil {
		handler = NopHandler{}
	}
	s := &Server{
		card:       card,
		store:      store,
		handler:    handler,
		supervisor: sup,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "a2a_server"), zap.String("agent_id", card.ID))
	return s
}

// Card returns the agent's own card.
func (s *Server) Card() AgentCard { return s.card }

// Store returns the backing task store.
func (s *Server) Store() *task.Store { return s.store }

// CreateTask inserts a new task in the created status and dispatches
// OnTaskCreated. The returned snapshot is taken before the hook runs.
func (s *Server) CreateTask(ctx context.Context, req CreateTaskRequest) (*task.Task, error) {
	t, _, err := s.createTask(ctx, req, true)
	return t, err
}

func (s *Server) createTask(ctx context.Context, req CreateTaskRequest, notify bool) (*task.Task, *worker.Job, error) {
	if req.ID != "" {
		if err := task.ValidateID("task id", req.ID); err != nil {
			return nil, nil, err
		}
	}

	created, err := s.store.Create(ctx, task.New(req.ID, req.Title, req.Description, req.Metadata))
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordTaskCreated()
	s.logger.Info("task created", zap.String("task_id", created.ID), zap.String("title", created.Title))

	if !notify {
		return created, nil, nil
	}
	snapshot := created.Clone()
	job := s.supervisor.Go(ctx, "on_task_created", func(ctx context.Context) error {
		return s.handler.OnTaskCreated(ctx, snapshot)
	})
	return created, job, nil
}

// GetTask returns a snapshot of the task.
func (s *Server) GetTask(_ context.Context, id string) (*task.Task, error) {
	return s.store.Get(id)
}

// ListTasks returns all tasks, optionally filtered by status.
func (s *Server) ListTasks(_ context.Context, status string) ([]*task.Task, error) {
	var filter task.Status
	if status != "" {
		parsed, err := task.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}
	return s.store.List(filter), nil
}

// PostMessage appends a message to a task, moves the task to in_progress
// and dispatches OnMessageReceived. Posting to a task in a terminal status
// is rejected with ErrConflict.
func (s *Server) PostMessage(ctx context.Context, taskID string, req PostMessageRequest) (*task.Message, error) {
	msg, _, err := s.postMessage(ctx, taskID, req)
	return msg, err
}

func (s *Server) postMessage(ctx context.Context, taskID string, req PostMessageRequest) (*task.Message, *worker.Job, error) {
	if !req.Content.IsSet() {
		// Unknown task wins over a bad body so callers can tell the two apart.
		if _, err := s.store.Get(taskID); err != nil {
			return nil, nil, err
		}
		return nil, nil, &ValidationError{Field: "content", Reason: "is required"}
	}

	var added task.Message
	updated, err := s.store.Update(ctx, taskID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("task %s is %s: %w", t.ID, t.Status, ErrConflict)
		}
		msg, err := t.AddMessage(task.Message{
			ID:      req.ID,
			Type:    req.Type,
			Role:    req.Role,
			Content: req.Content,
		})
		if err != nil {
			return err
		}
		added = msg
		return t.SetStatus(task.StatusInProgress)
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordMessagePosted(string(added.Role))
	s.logger.Debug("message received", zap.String("task_id", taskID), zap.String("message_id", added.ID))

	msg := added
	job := s.supervisor.Go(ctx, "on_message_received", func(ctx context.Context) error {
		return s.handler.OnMessageReceived(ctx, updated, msg)
	})
	return &added, job, nil
}

// UpdateTask applies a status change. Unknown statuses are a validation
// error and moves the lifecycle forbids are a conflict.
func (s *Server) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*task.Task, error) {
	if req.Status == nil {
		return s.store.Get(id)
	}
	status, err := task.ParseStatus(*req.Status)
	if err != nil {
		if _, getErr := s.store.Get(id); getErr != nil {
			return nil, getErr
		}
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, func(t *task.Task) error {
		return t.SetStatus(status)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task updated", zap.String("task_id", id), zap.String("status", string(updated.Status)))
	return updated, nil
}

// QueryResult is the outcome of Query.
type QueryResult struct {
	TaskID   string `json:"task_id"`
	Response string `json:"response"`
}

// Query posts a user question and waits for the message hook to finish,
// then returns the latest message. An empty taskID opens a new task whose
// description is the question. The wait is bounded by ctx.
func (s *Server) Query(ctx context.Context, taskID, query string, metadata map[string]any) (QueryResult, error) {
	if query == "" {
		return QueryResult{}, &ValidationError{Field: "query", Reason: "is required"}
	}
	if taskID == "" {
		created, _, err := s.createTask(ctx, CreateTaskRequest{
			Title:       QueryTitle,
			Description: query,
			Metadata:    metadata,
		}, false)
		if err != nil {
			return QueryResult{}, err
		}
		taskID = created.ID
	}

	posted, job, err := s.postMessage(ctx, taskID, PostMessageRequest{
		Role:    task.RoleUser,
		Content: task.TextContent(query),
	})
	if err != nil {
		return QueryResult{}, err
	}

	if err := job.Wait(ctx); err != nil {
		s.logger.Warn("query handler did not finish", zap.String("task_id", taskID), zap.Error(err))
	}

	result := QueryResult{TaskID: taskID, Response: PendingAnswer}
	t, err := s.store.Get(taskID)
	if err != nil {
		return QueryResult{}, err
	}
	if last, ok := t.LastMessage(); ok && last.ID != posted.ID {
		result.Response = last.Content.String()
	}
	return result, nil
}
