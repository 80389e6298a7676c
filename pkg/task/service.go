package task

import (
	"context"
	"fmt"

	"lookbook-compensation/pkg/logger"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("lookbook-compensation/pkg/task")

// Enqueuer hands background work to the asynq queue. Cancelling ctx aborts
// the enqueue, not the task.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) Enqueuer {
	return &enqueuer{client: client}
}

func (e *enqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	ctx, span := tracer.Start(ctx, "task.Enqueue")
	defer span.End()
	span.SetAttributes(attribute.String("task_type", task.Type()))

	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	span.SetAttributes(attribute.String("task_id", info.ID), attribute.String("queue", info.Queue))
	zap.L().With(logger.TraceFields(ctx)...).Debug("task enqueued",
		zap.String("task_type", task.Type()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return info, nil
}
