package mutate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasksync/internal/drag"
	"tasksync/internal/gateway"
	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

// Result describes what a handler did. Pending is nil when nothing changed.
type Result struct {
	TaskID      string
	Changed     bool
	Transaction drag.Transaction
	Pending     *Pending
}

// Wait blocks until the result's transaction settles.
func (r Result) Wait(ctx context.Context) error { return r.Pending.Wait(ctx) }

// OnDragStart records the dragged item: a task id, or a group key for
// reordering custom groups.
func (e *Engine) OnDragStart(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("missing drag id")
	}
	if _, ok := e.coll.Get(id); ok {
		if e.coll.IsPending(id) {
			return ErrTaskPending
		}
	} else if !e.Projection().HasKey(id) {
		return NotFoundError{Kind: "task", ID: id}
	}
	e.mu.Lock()
	e.dragging = id
	e.mu.Unlock()
	return nil
}

func (e *Engine) OnDragCancel() {
	e.mu.Lock()
	e.dragging = ""
	e.mu.Unlock()
}

// Dragging returns the id recorded by OnDragStart.
func (e *Engine) Dragging() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dragging
}

// OnDragEnd resolves dropping the dragged item on overID and dispatches the
// resulting transaction. Unresolvable drops are NoOps, not errors.
func (e *Engine) OnDragEnd(ctx context.Context, overID string) (Result, error) {
	e.mu.Lock()
	active := e.dragging
	e.dragging = ""
	members := append([]model.Member(nil), e.members...)
	groups := append([]model.Group(nil), e.groups...)
	e.mu.Unlock()
	if active == "" {
		return Result{}, ErrNoDragInProgress
	}

	p := e.Projection()
	var tx drag.Transaction
	if _, isTask := e.coll.Get(active); !isTask && p.HasKey(active) {
		tx = drag.ResolveGroupDrag(active, overID, p)
	} else {
		tx = drag.Resolver{Members: members, Groups: groups}.Resolve(active, overID, p)
	}
	return e.Dispatch(ctx, tx)
}

// Dispatch applies a resolved transaction optimistically and persists it.
func (e *Engine) Dispatch(ctx context.Context, tx drag.Transaction) (Result, error) {
	res := Result{TaskID: tx.TaskID, Transaction: tx}
	switch tx.Kind {
	case drag.KindReorder:
		return e.dispatchReorder(ctx, tx)
	case drag.KindMove:
		return e.dispatchMove(ctx, tx)
	case drag.KindGroupReorder:
		return e.dispatchGroupReorder(ctx, tx)
	default:
		if tx.Reason != "" {
			e.log.Debug("drag resolved to noop", "reason", tx.Reason, "task_id", tx.TaskID)
		}
		return res, nil
	}
}

func (e *Engine) dispatchReorder(ctx context.Context, tx drag.Transaction) (Result, error) {
	res := Result{TaskID: tx.TaskID, Transaction: tx}
	if err := e.checkTask(tx.TaskID); err != nil {
		return res, err
	}
	groupBy, opts := e.planning()
	if tx.GroupBy != "" && tx.GroupBy != groupBy {
		return res, fmt.Errorf("transaction resolved for %s grouping, view is %s", tx.GroupBy, groupBy)
	}
	if opts.SortsWithinGroups() {
		res.Transaction = drag.NoOp("list is sorted by " + string(opts.SortBy))
		e.log.Debug("reorder ignored", "task_id", tx.TaskID, "reason", res.Transaction.Reason)
		return res, nil
	}

	a, err := e.Apply(txReorder, tx.TaskID, func(tasks []model.Task) ([]model.Task, []string, error) {
		return reorderWithin(tasks, tx.TaskID, tx.OverTaskID, tx.NewIndex, groupBy, opts)
	})
	if err != nil || a == nil {
		return res, err
	}
	res.Changed = true
	res.Pending = e.persist(ctx, a, e.positionCalls(a, tx.TaskID, nil))
	return res, nil
}

func (e *Engine) dispatchMove(ctx context.Context, tx drag.Transaction) (Result, error) {
	res := Result{TaskID: tx.TaskID, Transaction: tx}
	if tx.Change == nil {
		return res, errors.New("move without attribute change")
	}
	if err := e.checkTask(tx.TaskID); err != nil {
		return res, err
	}
	groupBy, opts := e.planning()
	if tx.GroupBy != "" && tx.GroupBy != groupBy {
		return res, fmt.Errorf("transaction resolved for %s grouping, view is %s", tx.GroupBy, groupBy)
	}

	change := *tx.Change
	a, err := e.Apply(txMove, tx.TaskID, func(tasks []model.Task) ([]model.Task, []string, error) {
		i := indexOf(tasks, tx.TaskID)
		if i < 0 {
			return tasks, nil, NotFoundError{Kind: "task", ID: tx.TaskID}
		}
		change.ApplyTo(&tasks[i])
		next, changed, err := relocate(tasks, tx.TaskID, tx.OverTaskID, groupBy, opts)
		if err != nil {
			return tasks, nil, err
		}
		return next, append([]string{tx.TaskID}, changed...), nil
	})
	if err != nil || a == nil {
		return res, err
	}
	res.Changed = true
	res.Pending = e.persist(ctx, a, e.positionCalls(a, tx.TaskID, &change))
	return res, nil
}

// positionCalls persists every task a transaction repositioned. The dragged
// task goes first and carries the attribute change, if any.
func (e *Engine) positionCalls(a *Applied, movedID string, change *drag.Change) func(context.Context) error {
	ids := append([]string(nil), a.handle.Touched...)
	inputs := make([]gateway.PositionInput, 0, len(ids))
	for _, id := range ids {
		t, ok := e.coll.Get(id)
		if !ok {
			continue
		}
		in := gateway.PositionInput{TaskID: id, NewPosition: t.Position}
		if id == movedID && change != nil {
			withChange(&in, *change)
		}
		if id == movedID {
			inputs = append([]gateway.PositionInput{in}, inputs...)
		} else {
			inputs = append(inputs, in)
		}
	}
	return func(ctx context.Context) error {
		for _, in := range inputs {
			if err := e.gw.UpdateTaskPosition(ctx, in); err != nil {
				return err
			}
		}
		return nil
	}
}

func withChange(in *gateway.PositionInput, c drag.Change) {
	switch c.Field {
	case model.GroupByStatus:
		s := c.Status
		in.Status = &s
	case model.GroupByPriority:
		p := c.Priority
		in.Priority = &p
	case model.GroupByAssignee:
		if c.Assignee == nil {
			in.ClearAssignee = true
		} else {
			a := *c.Assignee
			in.Assignee = &a
		}
	case model.GroupByCustomGroup:
		if c.Group == nil {
			in.ClearGroup = true
		} else {
			g := *c.Group
			in.Group = &g
		}
	}
}

func (e *Engine) dispatchGroupReorder(ctx context.Context, tx drag.Transaction) (Result, error) {
	res := Result{Transaction: tx}
	next := gateway.NormalizeGroupOrder(tx.GroupOrder)

	e.mu.Lock()
	prev := append([]string(nil), e.groupOrder...)
	e.groupOrder = next
	e.mu.Unlock()

	undo := func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !equalStrings(gateway.NormalizeGroupOrder(e.groupOrder), next) {
			return false
		}
		e.groupOrder = prev
		return true
	}
	a := e.track(txGroupReorder, tx.GroupKey, nil, undo)
	res.Changed = true
	res.Pending = e.persist(ctx, a, func(ctx context.Context) error {
		saver, ok := e.gw.(gateway.GroupOrderSaver)
		if !ok {
			return nil
		}
		return saver.SaveGroupOrder(ctx, next)
	})
	return res, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParseDropTarget accepts a status label, priority or other group key as typed
// on a command line and maps it to the projection's key for groupBy.
func ParseDropTarget(groupBy model.GroupBy, s string) string {
	s = strings.TrimSpace(s)
	switch groupBy {
	case model.GroupByStatus:
		if st, ok := statusutil.ParseLabel(s); ok {
			return statusutil.Label(st)
		}
	case model.GroupByPriority:
		if p, err := statusutil.ParsePriority(s); err == nil {
			return string(p)
		}
	}
	return s
}
