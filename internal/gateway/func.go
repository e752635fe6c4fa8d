package gateway

import (
	"context"

	"tasksync/internal/model"
)

// Func adapts plain functions to Gateway. Nil functions succeed without data,
// which the engine treats as malformed for calls that must return a record.
type Func struct {
	Create         func(ctx context.Context, in CreateInput) (*model.Task, error)
	Update         func(ctx context.Context, p Patch) (*model.Task, error)
	UpdatePosition func(ctx context.Context, in PositionInput) error
	SaveOrder      func(ctx context.Context, order []string) error
}

func (f Func) CreateTask(ctx context.Context, in CreateInput) (*model.Task, error) {
	if f.Create == nil {
		return nil, nil
	}
	return f.Create(ctx, in)
}

func (f Func) UpdateTask(ctx context.Context, p Patch) (*model.Task, error) {
	if f.Update == nil {
		return nil, nil
	}
	return f.Update(ctx, p)
}

func (f Func) UpdateTaskPosition(ctx context.Context, in PositionInput) error {
	if f.UpdatePosition == nil {
		return nil
	}
	return f.UpdatePosition(ctx, in)
}

func (f Func) SaveGroupOrder(ctx context.Context, order []string) error {
	if f.SaveOrder == nil {
		return nil
	}
	return f.SaveOrder(ctx, order)
}
