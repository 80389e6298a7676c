package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgtask "lookbook-compensation/pkg/task"
	"lookbook-compensation/pkg/taskname"
	"lookbook-compensation/services/compensation"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Sweeper interface {
	CompensateAllApproved(ctx context.Context) (*compensation.SweepSummary, error)
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	enqueuer pkgtask.Enqueuer
	sweeper  Sweeper
}

type Params struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Enqueuer pkgtask.Enqueuer
	Sweeper  Sweeper
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		enqueuer: p.Enqueuer,
		sweeper:  p.Sweeper,
	}
}

// EnqueueSweep creates a pending Job record and sends the sweep to the queue.
func (s *Service) EnqueueSweep(ctx context.Context, source string) (*Job, error) {
	job := Job{
		ID:        s.node.Generate().String(),
		TaskName:  taskname.CompensationSweep,
		Source:    source,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}

	t, err := compensation.NewSweepTask(compensation.SweepPayload{RequestedAt: job.CreatedAt, JobID: job.ID})
	if err != nil {
		return nil, err
	}

	info, err := s.enqueuer.Enqueue(ctx, t)
	if err != nil {
		s.finish(ctx, job.ID, StatusFailed, err.Error(), nil)
		return nil, err
	}

	zap.L().Info("enqueued sweep job",
		zap.String("job_id", job.ID),
		zap.String("source", source),
		zap.String("queue", info.Queue),
	)
	return &job, nil
}

// HandleSweep is the worker handler for compensation:sweep. Sweeps enqueued
// without a job get one here.
func (s *Service) HandleSweep(ctx context.Context, t *asynq.Task) error {
	var payload compensation.SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid sweep payload", zap.Error(err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	jobID, err := s.start(ctx, payload.JobID)
	if err != nil {
		return err
	}

	zap.L().Info("processing sweep task", zap.String("job_id", jobID))

	summary, err := s.sweeper.CompensateAllApproved(ctx)
	if err != nil {
		zap.L().Error("sweep failed", zap.String("job_id", jobID), zap.Error(err))
		s.finish(ctx, jobID, StatusFailed, err.Error(), nil)
		return err
	}

	s.finish(ctx, jobID, StatusSuccess, "", summary)
	zap.L().Info("finished sweep task",
		zap.String("job_id", jobID),
		zap.Int("credited", summary.Credited),
		zap.Int("failed", summary.Failed),
	)
	return nil
}

func (s *Service) start(ctx context.Context, jobID string) (string, error) {
	now := time.Now().UTC()
	if jobID == "" {
		job := Job{
			ID:        s.node.Generate().String(),
			TaskName:  taskname.CompensationSweep,
			Source:    SourcePolicy,
			Status:    StatusRunning,
			StartedAt: &now,
		}
		if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
			return "", err
		}
		return job.ID, nil
	}

	err := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(map[string]any{
		"status":     StatusRunning,
		"started_at": now,
	}).Error
	return jobID, err
}

func (s *Service) finish(ctx context.Context, jobID, status, errMsg string, summary *compensation.SweepSummary) {
	updates := map[string]any{
		"status":       status,
		"error_msg":    errMsg,
		"completed_at": time.Now().UTC(),
	}
	if summary != nil {
		if b, err := json.Marshal(summary); err == nil {
			updates["metadata"] = datatypes.JSON(b)
		}
	}

	if err := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		zap.L().Warn("failed to update job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	var jobs []Job
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func RegisterTasks(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.CompensationSweep, s.HandleSweep)
}
