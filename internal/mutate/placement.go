package mutate

import (
	"tasksync/internal/drag"
	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/store"
)

// relocate places task id, whose group-defining attribute is already updated,
// into its destination group before overID (or at the end when overID is
// empty or not in that group). It returns the ids whose position changed.
func relocate(tasks []model.Task, id, overID string, groupBy model.GroupBy, opts grouping.Options) ([]model.Task, []string, error) {
	idx := indexOf(tasks, id)
	if idx < 0 {
		return tasks, nil, NotFoundError{Kind: "task", ID: id}
	}
	moved := tasks[idx]
	destKey := grouping.KeyFor(moved, groupBy, opts.Today)

	p := grouping.Project(tasks, groupBy, opts)
	g, _ := p.Group(destKey)
	scope := make([]model.Task, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		if t.ID != id {
			scope = append(scope, t)
		}
	}
	insertAt := len(scope)
	if overID != "" {
		for i, t := range scope {
			if t.ID == overID {
				insertAt = i
				break
			}
		}
	}

	plan, err := store.PlanInsertPosition(scope, moved, insertAt)
	if err != nil {
		return tasks, nil, err
	}
	changed := applyPositions(tasks, plan.PositionByID)

	// Keep collection order in line with the destination slot.
	moved = tasks[idx]
	rest := append(append([]model.Task{}, tasks[:idx]...), tasks[idx+1:]...)
	at := len(rest)
	switch {
	case insertAt < len(scope):
		at = indexOf(rest, scope[insertAt].ID)
	case len(scope) > 0:
		at = indexOf(rest, scope[len(scope)-1].ID) + 1
	}
	out := make([]model.Task, 0, len(tasks))
	out = append(out, rest[:at]...)
	out = append(out, moved)
	out = append(out, rest[at:]...)
	return out, changed, nil
}

// reorderWithin moves id to newIndex inside its current group, rewriting the
// collection slots the group occupies. overID, when still in the group,
// overrides newIndex; drag.End means the end of the unfiltered group.
func reorderWithin(tasks []model.Task, id, overID string, newIndex int, groupBy model.GroupBy, opts grouping.Options) ([]model.Task, []string, error) {
	p := grouping.Project(tasks, groupBy, opts)
	key, cur, ok := p.Locate(id)
	if !ok {
		return tasks, nil, NotFoundError{Kind: "task", ID: id}
	}
	g, _ := p.Group(key)
	if newIndex == drag.End || newIndex >= len(g.Tasks) {
		newIndex = len(g.Tasks) - 1
	}
	if overID != "" {
		for i, t := range g.Tasks {
			if t.ID == overID {
				newIndex = i
				break
			}
		}
	}
	if newIndex == cur {
		return tasks, nil, nil
	}

	plan, err := store.PlanReorderPositions(g.Tasks, id, newIndex)
	if err != nil {
		return tasks, nil, err
	}
	changed := applyPositions(tasks, plan.PositionByID)

	byID := make(map[string]model.Task, len(g.Tasks))
	slots := make([]int, 0, len(g.Tasks))
	for i, t := range tasks {
		if grouping.KeyFor(t, groupBy, opts.Today) == key {
			byID[t.ID] = t
			slots = append(slots, i)
		}
	}
	for i, slot := range slots {
		tasks[slot] = byID[plan.Order[i]]
	}

	touched := []string{id}
	for _, c := range changed {
		if c != id {
			touched = append(touched, c)
		}
	}
	return tasks, touched, nil
}

func applyPositions(tasks []model.Task, positions map[string]int64) []string {
	var changed []string
	for i := range tasks {
		if p, ok := positions[tasks[i].ID]; ok {
			tasks[i].Position = p
			changed = append(changed, tasks[i].ID)
		}
	}
	return changed
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
