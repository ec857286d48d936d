package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/task"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		version TEXT,
		base_url TEXT NOT NULL,
		auth_required INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agent_capabilities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL REFERENCES agents (id),
		name TEXT NOT NULL,
		description TEXT,
		parameters TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		metadata TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		task_id TEXT NOT NULL REFERENCES tasks (id),
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (task_id, id)
	)`,
}

// SQLiteStore persists tasks and agent cards in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at path and creates the tables.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTask upserts the task row and inserts messages not stored yet.
// Messages are append-only, so existing rows are never rewritten.
func (s *SQLiteStore) SaveTask(ctx context.Context, t *task.Task) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at,
			metadata = excluded.metadata`,
		t.ID, t.Title, t.Description, string(t.Status),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), string(metadata),
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}

	for i, m := range t.Messages {
		content, err := json.Marshal(m.Content)
		if err != nil {
			return fmt.Errorf("marshal message %s: %w", m.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO messages (task_id, id, seq, type, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, m.ID, i, string(m.Type), string(m.Role), string(content), formatTime(m.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadTasks returns every stored task with its messages in append order.
func (s *SQLiteStore) LoadTasks(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, status, created_at, updated_at, metadata FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	byID := make(map[string]*task.Task)
	for rows.Next() {
		var (
			t                    task.Task
			status               string
			description          sql.NullString
			metadata             sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &t.Title, &description, &status, &createdAt, &updatedAt, &metadata); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Description = description.String
		t.Status = task.Status(status)
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &t.Metadata); err != nil {
				return nil, fmt.Errorf("parse metadata of task %s: %w", t.ID, err)
			}
		}
		t.Messages = []task.Message{}
		tasks = append(tasks, &t)
		byID[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	rows.Close()

	if err := s.loadMessages(ctx, byID); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, byID map[string]*task.Task) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, id, type, role, content, created_at FROM messages ORDER BY task_id, seq`)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, msgType, role, content, createdAt string
			m                                         task.Message
		)
		if err := rows.Scan(&taskID, &m.ID, &msgType, &role, &content, &createdAt); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		t, ok := byID[taskID]
		if !ok {
			continue
		}
		m.Type = task.MessageType(msgType)
		m.Role = task.Role(role)
		if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
			return fmt.Errorf("parse message %s: %w", m.ID, err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		t.Messages = append(t.Messages, m)
	}
	return rows.Err()
}

// SaveAgent upserts a card and replaces its capabilities.
func (s *SQLiteStore) SaveAgent(ctx context.Context, card a2a.AgentCard) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agents (id, name, description, version, base_url, auth_required, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			base_url = excluded.base_url,
			auth_required = excluded.auth_required,
			updated_at = excluded.updated_at`,
		card.ID, card.Name, card.Description, card.Version, card.BaseURL, card.AuthRequired, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_capabilities WHERE agent_id = ?`, card.ID); err != nil {
		return fmt.Errorf("clear capabilities: %w", err)
	}
	for _, c := range card.Capabilities {
		params, err := json.Marshal(c.Parameters)
		if err != nil {
			return fmt.Errorf("marshal capability %s: %w", c.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO agent_capabilities (agent_id, name, description, parameters) VALUES (?, ?, ?, ?)`,
			card.ID, c.Name, c.Description, string(params),
		)
		if err != nil {
			return fmt.Errorf("insert capability %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadAgents returns every stored card.
func (s *SQLiteStore) LoadAgents(ctx context.Context) ([]a2a.AgentCard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, version, base_url, auth_required FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var cards []a2a.AgentCard
	for rows.Next() {
		var (
			card                 a2a.AgentCard
			description, version sql.NullString
		)
		if err := rows.Scan(&card.ID, &card.Name, &description, &version, &card.BaseURL, &card.AuthRequired); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		card.Description = description.String
		card.Version = version.String
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	rows.Close()

	for i := range cards {
		caps, err := s.loadCapabilities(ctx, cards[i].ID)
		if err != nil {
			return nil, err
		}
		cards[i].Capabilities = caps
	}
	return cards, nil
}

func (s *SQLiteStore) loadCapabilities(ctx context.Context, agentID string) ([]a2a.Capability, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, parameters FROM agent_capabilities WHERE agent_id = ? ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query capabilities: %w", err)
	}
	defer rows.Close()

	var caps []a2a.Capability
	for rows.Next() {
		var (
			c           a2a.Capability
			description sql.NullString
			params      sql.NullString
		)
		if err := rows.Scan(&c.Name, &description, &params); err != nil {
			return nil, fmt.Errorf("scan capability: %w", err)
		}
		c.Description = description.String
		if params.Valid && params.String != "" {
			if err := json.Unmarshal([]byte(params.String), &c.Parameters); err != nil {
				return nil, fmt.Errorf("parse capability %s: %w", c.Name, err)
			}
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
