package store

import (
	"errors"
	"strings"

	"tasksync/internal/model"
)

// PositionStep is the gap left between adjacent allocated positions.
const PositionStep int64 = 1000

// Allocate returns the sparse position for the task at index within a group.
func Allocate(index int) int64 {
	if index < 0 {
		index = 0
	}
	return int64(index+1) * PositionStep
}

// PositionBetween returns an integer position strictly between lower and upper.
// lower may be 0 (no lower bound) and upper may be 0 (no upper bound).
// ok is false when the gap is exhausted and the scope needs renumbering.
func PositionBetween(lower, upper int64) (int64, bool) {
	if lower < 0 {
		lower = 0
	}
	if upper <= 0 {
		return lower + PositionStep, true
	}
	if upper-lower < 2 {
		return 0, false
	}
	return lower + (upper-lower)/2, true
}

// EndPosition returns the position for appending to group: the allocator slot
// for its length, bumped past the current maximum when earlier inserts used it.
func EndPosition(group []model.Task) int64 {
	p := Allocate(len(group))
	for _, t := range group {
		if t.Position >= p {
			p = t.Position + PositionStep
		}
	}
	return p
}

// PositionPlan describes the position updates needed to place a task at an index.
// PositionByID includes only tasks whose position changes.
type PositionPlan struct {
	PositionByID map[string]int64
	Order        []string // task ids of the scope in final order
	Renumbered   bool
}

// PlanInsertPosition plans positions for inserting moved into scope at insertAt.
// scope is the destination group in display order and must not contain moved.
//
// Prefer changing only the moved task (fast path). When the scope is not strictly
// increasing or the neighbors leave no integer gap, renumber the whole scope
// with Allocate.
func PlanInsertPosition(scope []model.Task, moved model.Task, insertAt int) (PositionPlan, error) {
	movedID := strings.TrimSpace(moved.ID)
	if movedID == "" {
		return PositionPlan{}, errors.New("missing moved task id")
	}
	if insertAt < 0 || insertAt > len(scope) {
		insertAt = len(scope)
	}

	final := make([]model.Task, 0, len(scope)+1)
	final = append(final, scope[:insertAt]...)
	final = append(final, moved)
	final = append(final, scope[insertAt:]...)

	plan := PositionPlan{PositionByID: map[string]int64{}, Order: make([]string, 0, len(final))}
	for _, t := range final {
		plan.Order = append(plan.Order, t.ID)
	}

	if strictlyIncreasing(scope) {
		var p int64
		ok := true
		if insertAt == len(scope) {
			p = EndPosition(scope)
		} else {
			lower := int64(0)
			if insertAt > 0 {
				lower = scope[insertAt-1].Position
			}
			p, ok = PositionBetween(lower, scope[insertAt].Position)
		}
		if ok {
			if p != moved.Position {
				plan.PositionByID[movedID] = p
			}
			return plan, nil
		}
	}

	plan.Renumbered = true
	for i, t := range final {
		if p := Allocate(i); p != t.Position {
			plan.PositionByID[t.ID] = p
		}
	}
	return plan, nil
}

// PlanReorderPositions plans position updates for moving movedID within group
// (display order) so it ends at newIndex. A same-index move yields an empty plan.
func PlanReorderPositions(group []model.Task, movedID string, newIndex int) (PositionPlan, error) {
	movedID = strings.TrimSpace(movedID)
	if movedID == "" {
		return PositionPlan{}, errors.New("missing moved task id")
	}
	movedIdx := -1
	for i := range group {
		if group[i].ID == movedID {
			movedIdx = i
			break
		}
	}
	if movedIdx < 0 {
		return PositionPlan{}, NotFoundError{Kind: "task", ID: movedID}
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(group)-1 {
		newIndex = len(group) - 1
	}
	if newIndex == movedIdx {
		order := make([]string, 0, len(group))
		for _, t := range group {
			order = append(order, t.ID)
		}
		return PositionPlan{PositionByID: map[string]int64{}, Order: order}, nil
	}

	rest := make([]model.Task, 0, len(group)-1)
	rest = append(rest, group[:movedIdx]...)
	rest = append(rest, group[movedIdx+1:]...)
	return PlanInsertPosition(rest, group[movedIdx], newIndex)
}

func strictlyIncreasing(tasks []model.Task) bool {
	var prev int64
	for _, t := range tasks {
		if t.Position <= prev {
			return false
		}
		prev = t.Position
	}
	return true
}
