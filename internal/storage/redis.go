package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/task"
)

// RedisStore persists tasks and agent cards as JSON documents in Redis,
// with a sorted set indexing tasks by creation time.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis connects to the server at url (redis://host:port/db) and
// checks the connection.
func NewRedis(ctx context.Context, url, keyPrefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisFromClient(client, keyPrefix), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "a2a:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) taskKey(id string) string  { return s.keyPrefix + "task:" + id }
func (s *RedisStore) tasksKey() string          { return s.keyPrefix + "tasks" }
func (s *RedisStore) agentKey(id string) string { return s.keyPrefix + "agent:" + id }
func (s *RedisStore) agentsKey() string         { return s.keyPrefix + "agents" }

// SaveTask writes the task document and indexes it.
func (s *RedisStore) SaveTask(ctx context.Context, t *task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.taskKey(t.ID), data, 0)
	pipe.ZAdd(ctx, s.tasksKey(), redis.Z{Score: float64(t.CreatedAt.UnixNano()), Member: t.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save task %s: %w", t.ID, err)
	}
	return nil
}

// LoadTasks returns every indexed task, oldest first. Index entries whose
// document has disappeared are skipped.
func (s *RedisStore) LoadTasks(ctx context.Context) ([]*task.Task, error) {
	ids, err := s.client.ZRange(ctx, s.tasksKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.taskKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	tasks := make([]*task.Task, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var t task.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("failed to parse task %s: %w", ids[i], err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// SaveAgent writes the card document and indexes it.
func (s *RedisStore) SaveAgent(ctx context.Context, card a2a.AgentCard) error {
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal agent card: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.agentKey(card.ID), data, 0)
	pipe.SAdd(ctx, s.agentsKey(), card.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save agent %s: %w", card.ID, err)
	}
	return nil
}

// LoadAgents returns every stored card.
func (s *RedisStore) LoadAgents(ctx context.Context) ([]a2a.AgentCard, error) {
	ids, err := s.client.SMembers(ctx, s.agentsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	cards := make([]a2a.AgentCard, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.agentKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load agent %s: %w", id, err)
		}
		var card a2a.AgentCard
		if err := json.Unmarshal(data, &card); err != nil {
			return nil, fmt.Errorf("failed to parse agent %s: %w", id, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}
