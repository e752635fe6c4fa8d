package mutate

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskPending rejects mutations on a task whose creation is unconfirmed.
	ErrTaskPending      = errors.New("task creation still pending")
	ErrNoDragInProgress = errors.New("no drag in progress")
	ErrEmptyTitle       = errors.New("title is required")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
