package task

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SourceNightly = "nightly"
	SourceManual  = "manual"
	SourcePolicy  = "policy"
)

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Job is an execution record for one sweep run.
type Job struct {
	ID          string         `gorm:"column:id;primaryKey"`
	TaskName    string         `gorm:"column:task_name;index;type:varchar(100);not null"`
	Source      string         `gorm:"column:source;type:varchar(20)"`                   // nightly|manual|policy
	Status      string         `gorm:"column:status;type:varchar(20);default:'pending'"` // pending|running|success|failed
	ErrorMsg    string         `gorm:"column:error_msg;type:text"`
	StartedAt   *time.Time     `gorm:"column:started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
}

func (Job) TableName() string { return "jobs" }
