package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Job{})
}

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job records one run of the degradation pipeline over an uploaded file.
type Job struct {
	gorm.Model
	UUID   string    `gorm:"uniqueIndex" json:"uuid"`
	Status JobStatus `gorm:"index" json:"status"`
	Input  string    `json:"input"`
	Output string    `json:"output"`
	Error  string    `json:"error,omitempty"`

	Width         int    `json:"width"`
	Height        int    `json:"height"`
	FrameRate     string `json:"frame_rate"`
	FramesRead    int    `json:"frames_read"`
	FramesWritten int    `json:"frames_written"`
	FramesIdle    int    `json:"frames_idle"`
	FramesActive  int    `json:"frames_active"`
	FramesScaled  int    `json:"frames_scaled"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if len(j.UUID) == 0 {
		j.UUID = uuid.NewString()
	}
	if len(j.Status) == 0 {
		j.Status = JobPending
	}
	return nil
}

func (j *Job) Start(at time.Time) {
	j.Status = JobRunning
	j.StartedAt = &at
}

func (j *Job) Finish(at time.Time, err error) {
	j.FinishedAt = &at
	if err != nil {
		j.Status = JobFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobDone
}
