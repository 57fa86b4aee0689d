package jobs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/idlesqueeze/pkg/degrade"
	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/metrics"
	"github.com/tauraamui/idlesqueeze/pkg/probe"
	"github.com/tauraamui/idlesqueeze/pkg/remux"
	"github.com/tauraamui/idlesqueeze/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()

var (
	ErrRecordJob = xerror.New("unable to record job")
	ErrRemux     = xerror.New("unable to remux output")
	ErrBusy      = xerror.New("no job slot available")
)

const probeTimeout = 30 * time.Second

// Store persists job records. *repos.JobRepository satisfies it.
type Store interface {
	Create(*models.Job) error
	Save(*models.Job) error
}

type Options struct {
	Engine        configdef.Engine
	WorkDir       string
	Remux         bool
	MaxConcurrent int

	// Everything below is optional and derived from Runner when nil.
	Runner  execrun.Runner
	Backend videobackend.Backend
	Prober  probe.Prober
	Muxer   remux.Muxer
	Store   Store
	Metrics *metrics.Metrics
	Logger  log.Logger
	// Reporter receives every run's events alongside logs and metrics.
	Reporter degrade.Reporter
}

// Result is what one Process call produced.
type Result struct {
	Job    models.Job    `json:"job"`
	Stats  degrade.Stats `json:"-"`
	Input  *probe.Info   `json:"input,omitempty"`
	Output *probe.Info   `json:"output,omitempty"`
}

// Runner processes files one pipeline per call. Process is safe for
// concurrent use; at most MaxConcurrent calls run at once.
type Runner struct {
	opts     Options
	settings degrade.Settings
	slots    chan struct{}
	now      func() time.Time
}

func NewRunner(opts Options) (*Runner, error) {
	settings := EngineSettings(opts.Engine)
	if _, err := degrade.New(settings); err != nil {
		return nil, err
	}

	if opts.Runner == nil {
		opts.Runner = execrun.Default()
	}
	if opts.Prober == nil {
		opts.Prober = probe.Auto(opts.Runner)
	}
	if opts.Backend == nil {
		opts.Backend = videobackend.Resolve(opts.Engine.Backend, videobackend.Settings{
			Codec:  opts.Engine.Codec,
			Prober: probe.FrameRates{Prober: opts.Prober, Timeout: probeTimeout},
			Runner: opts.Runner,
		})
	}
	if opts.Muxer == nil {
		opts.Muxer = remux.New(opts.Runner, remux.DefaultOptions())
	}
	if opts.Store == nil {
		opts.Store = nopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Std()
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}

	return &Runner{
		opts:     opts,
		settings: settings,
		slots:    make(chan struct{}, opts.MaxConcurrent),
		now:      time.Now,
	}, nil
}

// Process degrades in into out, recording the job as it goes. It waits
// for a free slot until ctx is done.
func (r *Runner) Process(ctx context.Context, in, out string) (Result, error) {
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return Result{}, xerror.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
	defer func() { <-r.slots }()

	job := models.Job{UUID: uuid.NewString(), Input: in, Output: out, Status: models.JobPending}
	if err := r.opts.Store.Create(&job); err != nil {
		return Result{Job: job}, xerror.Errorf("%w: %v", ErrRecordJob, err)
	}

	job.Start(r.now())
	if err := r.opts.Store.Save(&job); err != nil {
		r.opts.Logger.Warn("unable to mark job %s running: %v", job.UUID, err)
	}

	res, err := r.process(ctx, &job)
	job.Finish(r.now(), err)
	if serr := r.opts.Store.Save(&job); serr != nil {
		r.opts.Logger.Error("unable to record outcome of job %s: %v", job.UUID, serr)
		if err == nil {
			err = xerror.Errorf("%w: %v", ErrRecordJob, serr)
		}
	}
	res.Job = job
	return res, err
}

func (r *Runner) process(ctx context.Context, job *models.Job) (Result, error) {
	res := Result{}
	l := log.WithPrefix(r.opts.Logger, job.UUID)

	if info, err := r.opts.Prober.Probe(ctx, job.Input); err == nil {
		res.Input = &info
	} else {
		l.Warn("unable to probe %s: %v", job.Input, err)
	}

	settings := r.settings
	settings.Logger = l
	settings.Reporter = r.reporter(job.UUID, l)
	pipeline, err := degrade.New(settings)
	if err != nil {
		return res, err
	}

	target := job.Output
	if r.opts.Remux {
		if err := fs.MkdirAll(r.opts.WorkDir, 0o755); err != nil {
			return res, xerror.Errorf("unable to create work dir %s: %w", r.opts.WorkDir, err)
		}
		target = filepath.Join(r.opts.WorkDir, job.UUID+intermediateExt(r.opts.Engine.Backend))
		defer r.removeIntermediate(l, target)
	}

	stats, err := pipeline.Run(ctx, r.opts.Backend.NewDecoder(), r.opts.Backend.NewEncoder(), job.Input, target)
	res.Stats = stats
	recordStats(job, stats)
	if err != nil {
		return res, err
	}

	if r.opts.Remux {
		if err := r.finish(ctx, job, target, stats); err != nil {
			return res, err
		}
	}

	if info, err := r.opts.Prober.Probe(ctx, job.Output); err == nil {
		res.Output = &info
	} else {
		l.Warn("unable to probe %s: %v", job.Output, err)
	}

	l.Info("wrote %s: %d of %d frames degraded", job.Output, stats.Degraded, stats.FramesWritten)
	return res, nil
}

// finish moves the intermediate into place, carrying the source's audio
// across when any frames were written.
func (r *Runner) finish(ctx context.Context, job *models.Job, intermediate string, stats degrade.Stats) error {
	if stats.FramesWritten > 0 {
		if err := r.opts.Muxer.Mux(ctx, intermediate, job.Input, job.Output); err != nil {
			return xerror.Errorf("%w: %v", ErrRemux, err)
		}
		return nil
	}

	exists, err := afero.Exists(fs, intermediate)
	if err != nil || !exists {
		return err
	}
	if err := fs.Rename(intermediate, job.Output); err != nil {
		return xerror.Errorf("%w: %v", ErrRemux, err)
	}
	return nil
}

func (r *Runner) reporter(jobID string, l log.Logger) degrade.Reporter {
	reporters := []degrade.Reporter{degrade.LogReporter(l)}
	if r.opts.Metrics != nil {
		reporters = append(reporters, r.opts.Metrics.Reporter(jobID))
	}
	if r.opts.Reporter != nil {
		reporters = append(reporters, r.opts.Reporter)
	}
	return degrade.MultiReporter(reporters...)
}

func (r *Runner) removeIntermediate(l log.Logger, path string) {
	if err := fs.Remove(path); err != nil {
		l.Debug("unable to remove intermediate %s: %v", path, err)
	}
}

func recordStats(job *models.Job, stats degrade.Stats) {
	job.Width = stats.Target.W
	job.Height = stats.Target.H
	if stats.Metadata.FrameRate.Valid() {
		job.FrameRate = stats.Metadata.FrameRate.String()
	}
	job.FramesRead = stats.FramesRead
	job.FramesWritten = stats.FramesWritten
	job.FramesIdle = stats.IdlePairs
	job.FramesActive = stats.ActivePairs
	job.FramesScaled = stats.Degraded
}

type nopStore struct{}

func (nopStore) Create(*models.Job) error { return nil }
func (nopStore) Save(*models.Job) error   { return nil }
