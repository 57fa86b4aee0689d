package repos_test

import (
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/tauraamui/idlesqueeze/pkg/database/dbconn"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/idlesqueeze/pkg/database/repos"
)

func TestJobRepoCreateAndSave(t *testing.T) {
	is := is.New(t)

	gorm := dbconn.Mock()
	repo := repos.JobRepository{DB: gorm}

	job := models.Job{Input: "uploads/a.mp4"}
	is.NoErr(repo.Create(&job))
	assert.Contains(t, gorm.Created(), &job)

	job.Status = models.JobDone
	is.NoErr(repo.Save(&job))
	assert.Contains(t, gorm.Saved(), &job)
}

func TestJobRepoSaveWithErr(t *testing.T) {
	is := is.New(t)

	gorm := dbconn.Mock().SetError(errors.New("disk full"))
	repo := repos.JobRepository{DB: gorm}

	err := repo.Save(&models.Job{UUID: "job-1"})
	is.True(err != nil)
	is.Equal(err.Error(), "unable to save job job-1: disk full")
	is.Equal(len(gorm.Saved()), 0)
}

func TestJobRepoFindByUUID(t *testing.T) {
	is := is.New(t)

	existing := models.Job{UUID: "job-1", Status: models.JobRunning}
	gorm := dbconn.Mock().SetResult(existing)
	repo := repos.JobRepository{DB: gorm}

	job, err := repo.FindByUUID("job-1")
	is.NoErr(err)
	is.Equal(job.UUID, "job-1")
	is.Equal(job.Status, models.JobRunning)
	is.Equal(gorm.LastQuery().Where, "uuid = ?")
	assert.Contains(t, gorm.LastQuery().Args, "job-1")
}

func TestJobRepoFindByUUIDNotFound(t *testing.T) {
	is := is.New(t)

	gorm := dbconn.Mock()
	repo := repos.JobRepository{DB: gorm}

	_, err := repo.FindByUUID("missing")
	is.True(errors.Is(err, repos.ErrJobNotFound))
}

func TestJobRepoRecent(t *testing.T) {
	is := is.New(t)

	existing := []models.Job{{UUID: "b"}, {UUID: "a"}}
	gorm := dbconn.Mock().SetResult(existing)
	repo := repos.JobRepository{DB: gorm}

	jobs, err := repo.Recent(10)
	is.NoErr(err)
	is.Equal(len(jobs), 2)
	is.Equal(jobs[0].UUID, "b")
	is.Equal(gorm.LastQuery().Order, "created_at desc")
	is.Equal(gorm.LastQuery().Limit, 10)
	is.Equal(gorm.LastQuery().By, "find")
}

func TestJobRepoFailInterrupted(t *testing.T) {
	is := is.New(t)

	started := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	running := []models.Job{
		{UUID: "a", Status: models.JobRunning, StartedAt: &started},
		{UUID: "b", Status: models.JobRunning, StartedAt: &started},
	}
	gorm := dbconn.Mock().SetResult(running)
	repo := repos.JobRepository{DB: gorm}

	now := started.Add(time.Hour)
	failed, err := repo.FailInterrupted(now)
	is.NoErr(err)
	is.Equal(failed, 2)

	is.Equal(gorm.Queries()[0].Where, "status = ?")
	assert.Equal(t, []interface{}{models.JobRunning}, gorm.Queries()[0].Args)
	is.Equal(len(gorm.Saved()), 2)
	for _, saved := range gorm.Saved() {
		job := saved.(*models.Job)
		is.Equal(job.Status, models.JobFailed)
		is.Equal(job.Error, "interrupted before finishing")
		is.Equal(*job.FinishedAt, now)
	}
}

func TestJobRepoFailInterruptedWithNothingRunning(t *testing.T) {
	is := is.New(t)

	gorm := dbconn.Mock()
	failed, err := (&repos.JobRepository{DB: gorm}).FailInterrupted(time.Now())
	is.NoErr(err)
	is.Equal(failed, 0)
	is.Equal(len(gorm.Saved()), 0)
}
