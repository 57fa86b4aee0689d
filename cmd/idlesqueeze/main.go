package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"github.com/tauraamui/idlesqueeze/pkg/api"
	"github.com/tauraamui/idlesqueeze/pkg/config"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
	db "github.com/tauraamui/idlesqueeze/pkg/database"
	"github.com/tauraamui/idlesqueeze/pkg/database/dbconn"
	"github.com/tauraamui/idlesqueeze/pkg/database/repos"
	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/idlesqueeze/pkg/jobs"
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/metrics"
	"github.com/tauraamui/idlesqueeze/pkg/retention"
	"github.com/tauraamui/xerror"
)

const (
	name        = "idlesqueeze"
	description = "Idlesqueeze service which shrinks the idle stretches of uploaded videos"
	usage       = "Usage: idlesqueeze setup | remove-setup | install | remove | start | stop | status | process <in> <out>"
)

const (
	shutdownGrace = 30 * time.Second
	pruneInterval = 10 * time.Minute
)

type Service struct {
	daemon.Daemon
}

// Setup writes the default config and creates the local DB, prompting for a
// root admin when a token secret is configured.
func (service *Service) Setup() (string, error) {
	log.Info("Setting up idlesqueeze service...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	cfg, err := config.DefaultResolver().Resolve()
	if err != nil {
		return "", err
	}

	store, err := db.New(db.Options{})
	if err != nil {
		return "", err
	}
	err = store.Setup(db.SetupOptions{Admin: len(cfg.Secret) > 0})
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for idlesqueeze service...")
	if store, err := db.New(db.Options{}); err != nil {
		log.Error(err.Error())
	} else if err := store.Destroy(); err != nil {
		log.Error(err.Error())
	}
	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		case "process":
			if len(os.Args) != 4 {
				return usage, nil
			}
			return processFile(os.Args[2], os.Args[3])
		default:
			return usage, nil
		}
	}

	return serve()
}

func serve() (string, error) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting idlesqueeze service...")

	cfg, err := config.DefaultResolver().Resolve()
	if err != nil {
		return "", err
	}

	store, err := db.New(db.Options{})
	if err != nil {
		return "", err
	}
	if !store.Exists() {
		return "", xerror.Errorf("no database at %s, try running the setup", store.Path())
	}
	conn, err := store.Connect(db.ConnectOptions{FailInterrupted: true})
	if err != nil {
		return "", xerror.Errorf("unable to connect to DB, try running the setup: %w", err)
	}
	jobRepo := &repos.JobRepository{DB: conn}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	runner, err := jobs.NewRunner(jobs.Options{
		Engine:        cfg.Engine,
		WorkDir:       cfg.Server.WorkDir,
		Remux:         cfg.Server.Remux,
		MaxConcurrent: cfg.Server.MaxConcurrentJobs,
		Runner:        toolRunner(cfg.Tools),
		Store:         jobRepo,
		Metrics:       m,
		Logger:        log.Std(),
	})
	if err != nil {
		return "", err
	}

	server := api.New(api.Options{
		Secret:            cfg.Secret,
		UploadDir:         cfg.Server.UploadDir,
		ProcessedDir:      cfg.Server.ProcessedDir,
		AllowedExtensions: cfg.Server.AllowedExtensions,
		MaxUploadBytes:    cfg.Server.MaxUploadMB << 20,
		Processor:         runner,
		Jobs:              jobRepo,
		Users:             &repos.UserRepository{DB: conn},
		Metrics:           m.Handler(),
		Logger:            log.Std(),
	})

	if cfg.Server.RetentionHours > 0 {
		pruner := retention.New(retention.Settings{
			Dirs:     []string{cfg.Server.UploadDir, cfg.Server.ProcessedDir, cfg.Server.WorkDir},
			MaxAge:   time.Duration(cfg.Server.RetentionHours) * time.Hour,
			Interval: pruneInterval,
		}).Setup()
		pruner.Start()
		defer func() {
			pruner.Stop()
			pruner.Wait()
		}()
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe(cfg.Server.Address)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return "", err
		}
	case killSignal := <-interrupt:
		fmt.Print("\r")
		log.Error("Received signal: %s", killSignal)
		log.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return "", err
		}
	}

	return "Shutdown successful... BYE! 👋", nil
}

// processFile runs one file through the engine in the foreground.
func processFile(in, out string) (string, error) {
	cfg, err := config.DefaultResolver().Resolve()
	if err != nil {
		log.Warn("unable to load config, using defaults: %v", err)
		cfg = configdef.Default()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := jobs.Options{
		Engine:   cfg.Engine,
		WorkDir:  filepath.Join(os.TempDir(), name),
		Remux:    cfg.Server.Remux,
		Runner:   toolRunner(cfg.Tools),
		Logger:   log.Std(),
		Reporter: newProgressLine(),
	}
	if conn, err := historyConn(); err == nil {
		opts.Store = &repos.JobRepository{DB: conn}
	} else {
		log.Debug("job history disabled: %v", err)
	}

	runner, err := jobs.NewRunner(opts)
	if err != nil {
		return "", err
	}

	res, err := runner.Process(ctx, in, out)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %s: %d of %d frames scaled down", out, res.Job.FramesScaled, res.Job.FramesWritten), nil
}

func toolRunner(t configdef.Tools) execrun.Runner {
	return execrun.New(map[string]string{
		"ffmpeg":  t.FFmpegPath,
		"ffprobe": t.FFprobePath,
	})
}

func init() {
	logging.CallbackLabelLevel = 5
	logging.ColorLogLevelLabelOnly = true
	loggingLevel := os.Getenv("IDLESQUEEZE_LOGGING_LEVEL")

	switch strings.ToLower(loggingLevel) {
	case "info":
		logging.CurrentLoggingLevel = logging.InfoLevel
	case "warn":
		logging.CurrentLoggingLevel = logging.WarnLevel
	case "debug":
		logging.CurrentLoggingLevel = logging.DebugLevel
		logging.CallbackLabel = true
	default:
		logging.CurrentLoggingLevel = logging.WarnLevel
	}
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}

// historyConn connects to an existing database only, one off runs never
// create one.
func historyConn() (dbconn.GormWrapper, error) {
	store, err := db.New(db.Options{})
	if err != nil {
		return nil, err
	}
	if !store.Exists() {
		return nil, xerror.Errorf("no database at %s", store.Path())
	}
	return store.Connect(db.ConnectOptions{})
}
