package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is used when a task is created without a title.
const DefaultTitle = "새 작업"

const maxIDLength = 128

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// MessageType is the media kind of a message.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
	MessageVideo MessageType = "video"
	MessageFile  MessageType = "file"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageAudio, MessageVideo, MessageFile:
		return true
	}
	return false
}

// Message is a single immutable entry in a task's history.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Role      Role        `json:"role,omitempty"`
	Content   Content     `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// Task is a unit of work exchanged between agents.
type Task struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Messages    []Message      `json:"messages"`
	Metadata    map[string]any `json:"metadata"`
}

// NewTaskID allocates a task identifier.
func NewTaskID() string {
	return "task_" + shortHex()
}

// NewMessageID allocates a message identifier.
func NewMessageID() string {
	return "msg_" + shortHex()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}

// ValidateID checks a caller-supplied task or message identifier.
func ValidateID(field, id string) error {
	if id == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(id) > maxIDLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("longer than %d characters", maxIDLength)}
	}
	if strings.ContainsAny(id, "/ \t\r\n") {
		return &ValidationError{Field: field, Reason: "must not contain '/' or whitespace"}
	}
	return nil
}

// New creates a task in the created status. An empty id is replaced by a
// freshly allocated one and an empty title by DefaultTitle.
func New(id, title, description string, metadata map[string]any) *Task {
	if id == "" {
		id = NewTaskID()
	}
	if title == "" {
		title = DefaultTitle
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	now := time.Now().UTC()
	return &Task{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    []Message{},
		Metadata:    metadata,
	}
}

// NewMessage builds a message with a fresh id and the current time.
func NewMessage(role Role, content Content) Message {
	return Message{
		ID:        NewMessageID(),
		Type:      MessageText,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// AddMessage appends msg to the task. Missing id, type and timestamp are
// filled in. A message whose id already exists in the task is rejected
// with ErrConflict.
func (t *Task) AddMessage(msg Message) (Message, error) {
	if !msg.Content.IsSet() {
		return Message{}, &ValidationError{Field: "content", Reason: "is required"}
	}
	if msg.ID == "" {
		msg.ID = NewMessageID()
	} else if err := ValidateID("message id", msg.ID); err != nil {
		return Message{}, err
	}
	if t.HasMessage(msg.ID) {
		return Message{}, fmt.Errorf("message %s already exists in task %s: %w", msg.ID, t.ID, ErrConflict)
	}
	if msg.Type == "" {
		msg.Type = MessageText
	} else if !msg.Type.Valid() {
		return Message{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
	if msg.Role == "" {
		msg.Role = RoleUser
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.Content = msg.Content.clone()

	t.Messages = append(t.Messages, msg)
	t.touch(now)
	return msg, nil
}

// AddText is a shorthand for appending an agent-authored text message.
func (t *Task) AddText(role Role, text string) Message {
	msg, _ := t.AddMessage(NewMessage(role, TextContent(text)))
	return msg
}

// SetStatus moves the task to a new status if the lifecycle allows it.
// Staying in the same status is a no-op.
func (t *Task) SetStatus(to Status) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if t.Status == to {
		return nil
	}
	if !CanTransition(t.Status, to) {
		return &InvalidTransitionError{From: t.Status, To: to}
	}
	t.Status = to
	t.touch(time.Now().UTC())
	return nil
}

// HasMessage reports whether a message with the given id exists.
func (t *Task) HasMessage(id string) bool {
	for _, m := range t.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// LastMessage returns the most recently appended message.
func (t *Task) LastMessage() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// FirstNonEmpty returns the oldest message with non-empty content.
func (t *Task) FirstNonEmpty() (Message, bool) {
	for _, m := range t.Messages {
		if !m.Content.IsEmpty() {
			return m, true
		}
	}
	return Message{}, false
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	out := *t
	out.Messages = make([]Message, len(t.Messages))
	for i, m := range t.Messages {
		m.Content = m.Content.clone()
		out.Messages[i] = m
	}
	out.Metadata = cloneMap(t.Metadata)
	return &out
}

func (t *Task) touch(now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}
