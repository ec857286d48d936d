package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Persister mirrors task mutations to durable storage. The in-memory store
// stays authoritative; persister failures are logged and never surfaced.
type Persister interface {
	SaveTask(ctx context.Context, t *Task) error
	LoadTasks(ctx context.Context) ([]*Task, error)
}

type entry struct {
	mu   sync.Mutex
	task *Task
}

// Store holds tasks in memory. Membership is guarded by a RWMutex and
// every mutation of a given task is serialised by that task's own lock.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	persister Persister
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersister enables write-through persistence.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty task store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "task_store"))
	return s
}

// Restore loads previously persisted tasks into memory. Tasks already
// present are left untouched.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	tasks, err := s.persister.LoadTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range tasks {
		if _, ok := s.entries[t.ID]; ok {
			continue
		}
		s.entries[t.ID] = &entry{task: t.Clone()}
		n++
	}
	return n, nil
}

// Create inserts a new task. If the id is already taken the existing task
// is left unmodified and an ErrConflict error is returned.
func (s *Store) Create(ctx context.Context, t *Task) (*Task, error) {
	e := &entry{task: t.Clone()}

	// Hold the entry lock before publishing so no update can observe the
	// task ahead of its first persist.
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	if _, ok := s.entries[t.ID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("task already exists: %s: %w", t.ID, ErrConflict)
	}
	s.entries[t.ID] = e
	s.mu.Unlock()

	s.persist(ctx, e.task)
	return e.task.Clone(), nil
}

// Get returns a snapshot of the task with the given id.
func (s *Store) Get(id string) (*Task, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, notFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), nil
}

// Update applies fn to a working copy of the task under the task's lock.
// The copy replaces the stored task only when fn succeeds, so a failed
// update leaves no partial change behind.
func (s *Store) Update(ctx context.Context, id string, fn func(t *Task) error) (*Task, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, notFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.task.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.task = work

	s.persist(ctx, e.task)
	return e.task.Clone(), nil
}

// AppendMessage appends a message to the task and returns the stored copy.
func (s *Store) AppendMessage(ctx context.Context, id string, msg Message) (Message, error) {
	var added Message
	_, err := s.Update(ctx, id, func(t *Task) error {
		var err error
		added, err = t.AddMessage(msg)
		return err
	})
	return added, err
}

// List returns snapshots of all tasks, most recently updated first. An
// empty status matches every task.
func (s *Store) List(status Status) []*Task {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	tasks := make([]*Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if status == "" || e.task.Status == status {
			tasks = append(tasks, e.task.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].UpdatedAt.Equal(tasks[j].UpdatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
	return tasks
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *Store) persist(ctx context.Context, t *Task) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveTask(context.WithoutCancel(ctx), t); err != nil {
		s.logger.Warn("failed to persist task", zap.String("task_id", t.ID), zap.Error(err))
	}
}
