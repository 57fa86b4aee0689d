package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/idlesqueeze/pkg/jobs"
	"github.com/tauraamui/idlesqueeze/pkg/log"
)

var fs = afero.NewOsFs()

type Processor interface {
	Process(ctx context.Context, in, out string) (jobs.Result, error)
}

type JobFinder interface {
	FindByUUID(uuid string) (models.Job, error)
}

type UserFinder interface {
	FindByName(username string) (models.User, error)
}

type Options struct {
	// Secret signs login tokens. Uploads are open when it is empty.
	Secret            string
	UploadDir         string
	ProcessedDir      string
	AllowedExtensions []string
	MaxUploadBytes    int64

	Processor Processor
	Jobs      JobFinder
	Users     UserFinder
	Metrics   http.Handler
	Logger    log.Logger
}

type Server struct {
	opts       Options
	router     *mux.Router
	httpServer *http.Server
	log        log.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Std()
	}
	s := &Server{
		opts:   opts,
		router: mux.NewRouter(),
		log:    opts.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.Handle("/upload", s.requireToken(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	api.HandleFunc("/video/{filename}", s.serveFrom(func() string { return s.opts.UploadDir })).Methods(http.MethodGet)
	api.HandleFunc("/processed/{filename}", s.serveFrom(func() string { return s.opts.ProcessedDir })).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{uuid}", s.handleJob).Methods(http.MethodGet)

	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics).Methods(http.MethodGet)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. A clean Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("Listening on %s", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return errors.New("API server not running")
	}
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
