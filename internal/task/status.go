package task

import "fmt"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusCreated         Status = "created"
	StatusInProgress      Status = "in_progress"
	StatusWaitingForInput Status = "waiting_for_input"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
)

// transitions lists the legal targets for every non-terminal status.
var transitions = map[Status][]Status{
	StatusCreated:         {StatusInProgress, StatusFailed, StatusCancelled},
	StatusInProgress:      {StatusWaitingForInput, StatusCompleted, StatusFailed, StatusCancelled},
	StatusWaitingForInput: {StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusWaitingForInput,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", v)}
	}
	return s, nil
}

// CanTransition reports whether a task may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
