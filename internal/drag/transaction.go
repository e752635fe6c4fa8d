// Package drag turns drag gestures into semantic transactions against a projection.
package drag

import (
	"tasksync/internal/model"
)

type Kind string

const (
	KindNoOp         Kind = "noop"
	KindReorder      Kind = "reorder"
	KindMove         Kind = "move"
	KindGroupReorder Kind = "group-reorder"
)

// End is the destination index meaning "append to the destination group".
const End = -1

// Transaction is the resolved meaning of a drag-end event.
type Transaction struct {
	Kind    Kind          `json:"kind"`
	GroupBy model.GroupBy `json:"groupBy,omitempty"`
	TaskID  string        `json:"taskId,omitempty"`

	// OverTaskID is the task dropped onto, empty for a drop on a group.
	OverTaskID string `json:"overTaskId,omitempty"`

	// Reorder: GroupKey, OldIndex, NewIndex.
	GroupKey string `json:"groupKey,omitempty"`
	OldIndex int    `json:"oldIndex,omitempty"`
	NewIndex int    `json:"newIndex,omitempty"`

	// Move: SourceKey, DestKey, DestIndex (End for append) and the implied Change.
	SourceKey string  `json:"sourceKey,omitempty"`
	DestKey   string  `json:"destKey,omitempty"`
	DestIndex int     `json:"destIndex,omitempty"`
	Change    *Change `json:"change,omitempty"`

	// GroupReorder: the full custom group order, inbox first.
	GroupOrder []string `json:"groupOrder,omitempty"`

	// Reason explains a NoOp.
	Reason string `json:"reason,omitempty"`
}

// Change is the single attribute a Move rewrites on the dragged task.
type Change struct {
	Field    model.GroupBy   `json:"field"`
	Status   model.Status    `json:"status,omitempty"`
	Priority model.Priority  `json:"priority,omitempty"`
	Assignee *model.Assignee `json:"assignee,omitempty"` // nil clears
	Group    *model.GroupRef `json:"group,omitempty"`    // nil means inbox
}

// ApplyTo writes the change onto t, keeping completed congruent with status.
func (c Change) ApplyTo(t *model.Task) {
	switch c.Field {
	case model.GroupByStatus:
		t.Status = c.Status
		t.Completed = c.Status == model.StatusDone
	case model.GroupByPriority:
		t.Priority = c.Priority
	case model.GroupByAssignee:
		if c.Assignee == nil {
			t.Assignee = nil
		} else {
			a := *c.Assignee
			t.Assignee = &a
		}
	case model.GroupByCustomGroup:
		if c.Group == nil {
			t.Group = nil
		} else {
			g := *c.Group
			t.Group = &g
		}
	}
}

func NoOp(reason string) Transaction {
	return Transaction{Kind: KindNoOp, Reason: reason}
}

func (t Transaction) IsNoOp() bool { return t.Kind == KindNoOp || t.Kind == "" }

// ArrayMove returns a copy of ids with the element at from moved to to.
func ArrayMove(ids []string, from, to int) []string {
	out := append([]string(nil), ids...)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	v := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]string{v}, out[to:]...)...)
	return out
}
