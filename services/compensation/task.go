package compensation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lookbook-compensation/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type UploadApprovedPayload struct {
	UploadID string `json:"upload_id"`
}

type SweepPayload struct {
	RequestedAt time.Time `json:"requested_at"`
	JobID       string    `json:"job_id,omitempty"`
}

func NewUploadApprovedTask(p UploadApprovedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.CompensationUploadApproved, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Queue(taskname.QueueCritical)), nil
}

func NewSweepTask(p SweepPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.CompensationSweep, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue(taskname.QueueDefault)), nil
}

// HandleUploadApproved is the worker side of ApproveUpload.
func (s *Service) HandleUploadApproved(ctx context.Context, t *asynq.Task) error {
	var p UploadApprovedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		zap.L().Error("invalid upload approved payload", zap.Error(err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	zap.L().Info("processing upload approved task", zap.String("upload_id", p.UploadID))
	return s.OnUploadApproved(ctx, p.UploadID)
}

// RegisterTasks mounts the upload handler on the worker mux. Sweeps are
// handled by the job runner, which records each run.
func RegisterTasks(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.CompensationUploadApproved, s.HandleUploadApproved)
}
