package database

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/database/dbconn"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/idlesqueeze/pkg/database/repos"
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/xerror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	vendorName       = "tacusci"
	appName          = "idlesqueeze"
	databaseFileName = "idlesqueeze.db"
	databasePathEnv  = "IDLESQUEEZE_DB"
)

var (
	ErrCreateDBFile    = xerror.New("unable to create database file")
	ErrDBAlreadyExists = xerror.New("database file already exists")
)

// Opener opens a connection to the database file at path.
type Opener func(path string) (dbconn.GormWrapper, error)

type Options struct {
	// Path wins over IDLESQUEEZE_DB and the user cache location.
	Path     string
	CacheDir func() (string, error)
	Fs       afero.Fs
	Prompter Prompter
	Open     Opener
	Now      func() time.Time
}

// Store owns the sqlite file holding login users and job history.
type Store struct {
	path   string
	fs     afero.Fs
	prompt Prompter
	open   Opener
	now    func() time.Time
}

func New(opts Options) (*Store, error) {
	if opts.CacheDir == nil {
		opts.CacheDir = os.UserCacheDir
	}
	path, err := resolveDBPath(opts.Path, opts.CacheDir)
	if err != nil {
		return nil, err
	}

	s := Store{
		path:   path,
		fs:     opts.Fs,
		prompt: opts.Prompter,
		open:   opts.Open,
		now:    opts.Now,
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.prompt == nil {
		s.prompt = TerminalPrompter(os.Stdin, os.Stdout)
	}
	if s.open == nil {
		s.open = openSqlite
	}
	if s.now == nil {
		s.now = time.Now
	}
	return &s, nil
}

func (s *Store) Path() string {
	return s.path
}

type SetupOptions struct {
	// Admin prompts for a root admin account. Logins are disabled without a
	// token secret, so there is nobody to create then.
	Admin bool
}

// Setup creates the database file, migrates it and optionally seeds the
// root admin. An existing file is left untouched.
func (s *Store) Setup(opts SetupOptions) error {
	log.Info("Creating database file %s...", s.path) //nolint

	if err := s.createFile(); err != nil {
		return err
	}

	db, err := s.Connect(ConnectOptions{})
	if err != nil {
		return err
	}

	if !opts.Admin {
		log.Info("No token secret configured, skipping root admin") //nolint
		return nil
	}

	name, password, err := askForAdmin(s.prompt)
	if err != nil {
		return err
	}
	users := repos.UserRepository{DB: db}
	if err := users.Create(&models.User{Name: name, AuthHash: password}); err != nil {
		return xerror.Errorf("unable to create root user entry: %w", err)
	}

	log.Info("Created root admin user %s", name) //nolint
	return nil
}

type ConnectOptions struct {
	// FailInterrupted marks jobs a previous process left running as failed.
	// Only the long running service owns job history, so one off runs
	// leave it off.
	FailInterrupted bool
}

// Connect opens and migrates the database.
func (s *Store) Connect(opts ConnectOptions) (dbconn.GormWrapper, error) {
	log.Debug("Connecting to DB: %s", s.path) //nolint
	db, err := s.open(s.path)
	if err != nil {
		return nil, xerror.Errorf("unable to open db connection: %w", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, xerror.Errorf("unable to run automigrations: %w", err)
	}

	if !opts.FailInterrupted {
		return db, nil
	}

	jobs := repos.JobRepository{DB: db}
	failed, err := jobs.FailInterrupted(s.now())
	if err != nil {
		return nil, xerror.Errorf("unable to recover interrupted jobs: %w", err)
	}
	if failed > 0 {
		log.Warn("Marked %d interrupted jobs as failed", failed) //nolint
	}

	return db, nil
}

// Exists reports whether the database file has been created.
func (s *Store) Exists() bool {
	exists, err := afero.Exists(s.fs, s.path)
	return err == nil && exists
}

func (s *Store) Destroy() error {
	if err := s.fs.Remove(s.path); err != nil {
		return xerror.Errorf("unable to delete database file: %w", err)
	}
	return nil
}

func (s *Store) createFile() error {
	if _, err := s.fs.Stat(s.path); !errors.Is(err, os.ErrNotExist) {
		return xerror.Errorf("%w: %s", ErrDBAlreadyExists, s.path)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), os.ModeDir|os.ModePerm); err != nil {
		return xerror.Errorf("%v: %w", ErrCreateDBFile, err)
	}
	f, err := s.fs.Create(s.path)
	if err != nil {
		return xerror.Errorf("%v: %w", ErrCreateDBFile, err)
	}
	return f.Close()
}

func openSqlite(path string) (dbconn.GormWrapper, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(nil, logger.Config{LogLevel: logger.Silent}),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers, concurrent jobs share one connection
	sqlDB.SetMaxOpenConns(1)
	return dbconn.Wrap(db), nil
}

func resolveDBPath(override string, cacheDir func() (string, error)) (string, error) {
	if len(override) > 0 {
		return override, nil
	}
	if env := os.Getenv(databasePathEnv); len(env) > 0 {
		return env, nil
	}

	parent, err := cacheDir()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s database file location: %w", databaseFileName, err)
	}
	return filepath.Join(parent, vendorName, appName, databaseFileName), nil
}
