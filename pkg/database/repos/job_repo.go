package repos

import (
	"time"

	"github.com/tauraamui/idlesqueeze/pkg/database/dbconn"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/xerror"
)

var (
	ErrJobNotFound    = xerror.New("job not found")
	ErrJobInterrupted = xerror.New("interrupted before finishing")
)

type JobRepository struct {
	DB dbconn.GormWrapper
}

func (r *JobRepository) Create(job *models.Job) error {
	return r.DB.Create(job).Error()
}

func (r *JobRepository) Save(job *models.Job) error {
	if err := r.DB.Save(job).Error(); err != nil {
		return xerror.Errorf("unable to save job %s: %w", job.UUID, err)
	}
	return nil
}

func (r *JobRepository) FindByUUID(uuid string) (models.Job, error) {
	job := models.Job{}
	if err := r.DB.Where("uuid = ?", uuid).First(&job).Error(); err != nil {
		return job, xerror.Errorf("%w: %s", ErrJobNotFound, uuid)
	}

	return job, nil
}

// Recent lists at most limit jobs, newest first.
func (r *JobRepository) Recent(limit int) ([]models.Job, error) {
	jobs := []models.Job{}
	if err := r.DB.Order("created_at desc").Limit(limit).Find(&jobs).Error(); err != nil {
		return nil, xerror.Errorf("unable to list jobs: %w", err)
	}
	return jobs, nil
}

// FailInterrupted marks jobs still running from a previous process as
// failed and returns how many it touched.
func (r *JobRepository) FailInterrupted(at time.Time) (int, error) {
	jobs := []models.Job{}
	if err := r.DB.Where("status = ?", models.JobRunning).Find(&jobs).Error(); err != nil {
		return 0, xerror.Errorf("unable to list running jobs: %w", err)
	}
	for i := range jobs {
		jobs[i].Finish(at, ErrJobInterrupted)
		if err := r.Save(&jobs[i]); err != nil {
			return i, err
		}
	}
	return len(jobs), nil
}
