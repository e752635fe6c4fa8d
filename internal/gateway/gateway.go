// Package gateway is the persistence boundary of the sync engine.
//
// Calls either succeed or fail; the engine never retries. A success that carries
// no record where one is required is reported as ErrMalformedResponse.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasksync/internal/model"
)

var (
	ErrMalformedResponse = errors.New("malformed gateway response")
	ErrInboxImmutable    = errors.New("inbox cannot be modified")
)

// FailureError is a call the backend answered with success=false.
type FailureError struct {
	Op      string
	Message string
}

func (e FailureError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

type CreateInput struct {
	Title    string          `json:"title"`
	Status   model.Status    `json:"status"`
	Priority model.Priority  `json:"priority"`
	Assignee *model.Assignee `json:"assignee,omitempty"`
	DueDate  string          `json:"dueDate,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Group    *model.GroupRef `json:"group,omitempty"`
	Position int64           `json:"position"`
}

// Patch is a partial task update. Nil fields are left alone; the Clear flags
// remove a reference.
type Patch struct {
	ID            string          `json:"id"`
	Title         *string         `json:"title,omitempty"`
	Status        *model.Status   `json:"status,omitempty"`
	Priority      *model.Priority `json:"priority,omitempty"`
	Assignee      *model.Assignee `json:"assignee,omitempty"`
	ClearAssignee bool            `json:"clearAssignee,omitempty"`
	DueDate       *string         `json:"dueDate,omitempty"`
	Position      *int64          `json:"position,omitempty"`
}

// PositionInput persists a drag: the new position plus the group-defining
// attribute, atomically from the caller's side.
type PositionInput struct {
	TaskID        string          `json:"taskId"`
	NewPosition   int64           `json:"newPosition"`
	Status        *model.Status   `json:"status,omitempty"`
	Priority      *model.Priority `json:"priority,omitempty"`
	Assignee      *model.Assignee `json:"assignee,omitempty"`
	ClearAssignee bool            `json:"clearAssignee,omitempty"`
	Group         *model.GroupRef `json:"group,omitempty"`
	ClearGroup    bool            `json:"clearGroup,omitempty"`
}

// Gateway is the minimal persistence contract the engine calls.
type Gateway interface {
	CreateTask(ctx context.Context, in CreateInput) (*model.Task, error)
	UpdateTask(ctx context.Context, p Patch) (*model.Task, error)
	UpdateTaskPosition(ctx context.Context, in PositionInput) error
}

// GroupOrderSaver persists the user-chosen custom group order.
type GroupOrderSaver interface {
	SaveGroupOrder(ctx context.Context, order []string) error
}

// Workspace is implemented by backends that can load the full task scope.
type Workspace interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	LoadGroupOrder(ctx context.Context) ([]string, error)
}

// GroupStore manages custom group definitions.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	CreateGroup(ctx context.Context, name, color string) (model.Group, error)
	UpdateGroup(ctx context.Context, g model.Group) error
	DeleteGroup(ctx context.Context, id string) error
}

// ApplyPatch writes p onto t.
func ApplyPatch(t *model.Task, p Patch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
		t.Completed = *p.Status == model.StatusDone
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearAssignee {
		t.Assignee = nil
	} else if p.Assignee != nil {
		a := *p.Assignee
		t.Assignee = &a
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
}

// ApplyPosition writes in onto t.
func ApplyPosition(t *model.Task, in PositionInput) {
	t.Position = in.NewPosition
	if in.Status != nil {
		t.Status = *in.Status
		t.Completed = *in.Status == model.StatusDone
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.ClearAssignee {
		t.Assignee = nil
	} else if in.Assignee != nil {
		a := *in.Assignee
		t.Assignee = &a
	}
	if in.ClearGroup {
		t.Group = nil
	} else if in.Group != nil {
		g := *in.Group
		t.Group = &g
	}
}

// NewTask materializes a create request into a task with id.
func NewTask(id string, in CreateInput) model.Task {
	t := model.Task{
		ID:       id,
		Title:    in.Title,
		Status:   in.Status,
		Priority: in.Priority,
		DueDate:  in.DueDate,
		Position: in.Position,
	}
	t.Completed = t.Status == model.StatusDone
	if in.Assignee != nil {
		a := *in.Assignee
		t.Assignee = &a
	}
	if in.Group != nil {
		g := *in.Group
		t.Group = &g
	}
	if in.Tags != nil {
		t.Tags = append([]string{}, in.Tags...)
	}
	return t
}
