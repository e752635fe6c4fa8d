package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"tasksync/internal/model"
	"tasksync/internal/telemetry"
)

// Instrumented wraps a Gateway with spans and a duration histogram.
type Instrumented struct {
	Next    Gateway
	Metrics *telemetry.Metrics
}

func (g Instrumented) CreateTask(ctx context.Context, in CreateInput) (*model.Task, error) {
	var out *model.Task
	err := g.observe(ctx, "create_task", "", func(ctx context.Context) error {
		var err error
		out, err = g.Next.CreateTask(ctx, in)
		return err
	})
	return out, err
}

func (g Instrumented) UpdateTask(ctx context.Context, p Patch) (*model.Task, error) {
	var out *model.Task
	err := g.observe(ctx, "update_task", p.ID, func(ctx context.Context) error {
		var err error
		out, err = g.Next.UpdateTask(ctx, p)
		return err
	})
	return out, err
}

func (g Instrumented) UpdateTaskPosition(ctx context.Context, in PositionInput) error {
	return g.observe(ctx, "update_task_position", in.TaskID, func(ctx context.Context) error {
		return g.Next.UpdateTaskPosition(ctx, in)
	})
}

func (g Instrumented) SaveGroupOrder(ctx context.Context, order []string) error {
	saver, ok := g.Next.(GroupOrderSaver)
	if !ok {
		return nil
	}
	return g.observe(ctx, "save_group_order", "", func(ctx context.Context) error {
		return saver.SaveGroupOrder(ctx, order)
	})
}

func (g Instrumented) observe(ctx context.Context, op, taskID string, call func(context.Context) error) error {
	ctx, span := telemetry.StartGatewaySpan(ctx, op, taskID)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	if g.Metrics != nil {
		g.Metrics.GatewayDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("op", op),
				attribute.Bool("ok", err == nil),
			))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
