package a2a

import (
	"errors"
	"fmt"
	"net/http"

	"a2a-support-desk/internal/task"
)

// Error categories. Every error returned by this package matches exactly
// one of them with errors.Is.
var (
	ErrNotFound     = task.ErrNotFound
	ErrConflict     = task.ErrConflict
	ErrValidation   = task.ErrValidation
	ErrUnknownAgent = errors.New("unknown agent")
	ErrDiscovery    = errors.New("discovery failed")
	ErrRemote       = errors.New("remote call failed")
)

type (
	ValidationError        = task.ValidationError
	InvalidTransitionError = task.InvalidTransitionError
)

// DiscoveryError is returned when an agent card cannot be fetched, decoded
// or validated.
type DiscoveryError struct {
	Address string
	Err     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover agent at %s: %v", e.Address, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// RemoteError is returned when a protocol call to another agent fails in
// transport or answers with a non-2xx status. StatusCode is zero for
// transport failures.
type RemoteError struct {
	Op         string
	Agent      string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s on agent %s failed: %v", e.Op, e.Agent, e.Err)
	}
	return fmt.Sprintf("%s on agent %s failed with status %d: %s", e.Op, e.Agent, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is matches ErrRemote, and ErrNotFound when the remote answered 404.
func (e *RemoteError) Is(target error) bool {
	if target == ErrRemote {
		return true
	}
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func unknownAgent(key string) error {
	return fmt.Errorf("agent %q is not registered: %w", key, ErrUnknownAgent)
}
