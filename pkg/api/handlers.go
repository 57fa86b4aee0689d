package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/tauraamui/idlesqueeze/pkg/api/auth"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/idlesqueeze/pkg/database/repos"
	"github.com/tauraamui/idlesqueeze/pkg/degrade"
	"github.com/tauraamui/idlesqueeze/pkg/probe"
)

const multipartMemory = 32 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type uploadResponse struct {
	JobID          string      `json:"job_id"`
	Status         string      `json:"status"`
	InputFilename  string      `json:"input_filename"`
	OutputFilename string      `json:"output_filename"`
	Input          *probe.Info `json:"input,omitempty"`
	Output         *probe.Info `json:"output,omitempty"`
	FramesWritten  int         `json:"frames_written"`
	FramesScaled   int         `json:"frames_scaled"`
	Error          string      `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if len(s.opts.Secret) == 0 || s.opts.Users == nil {
		s.writeError(w, http.StatusNotFound, errors.New("authentication is disabled"))
		return
	}

	req := loginRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("malformed login request"))
		return
	}

	user, err := s.opts.Users.FindByName(req.Username)
	if err != nil || user.ComparePassword(req.Password) != nil {
		s.writeError(w, http.StatusUnauthorized, errors.New("invalid username or password"))
		return
	}

	token, err := auth.GenToken(s.opts.Secret, user.UUID)
	if err != nil {
		s.log.Error("unable to sign token for %s: %v", user.Name, err)
		s.writeError(w, http.StatusInternalServerError, errors.New("unable to sign token"))
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.opts.Secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if len(token) == 0 || token == header {
			s.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		if _, err := auth.ValidateToken(s.opts.Secret, token); err != nil {
			s.writeError(w, http.StatusUnauthorized, errors.New("invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unable to read upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("no file part in request"))
		return
	}
	defer file.Close()

	name := sanitizeFilename(header.Filename)
	if !s.allowedExtension(name) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("file type not allowed, expected one of %s", strings.Join(s.opts.AllowedExtensions, ", ")))
		return
	}

	inName := uuid.NewString()[:8] + "_" + name
	outName := "idle_" + strings.TrimSuffix(inName, filepath.Ext(inName)) + ".mp4"
	in := filepath.Join(s.opts.UploadDir, inName)
	out := filepath.Join(s.opts.ProcessedDir, outName)

	if err := s.store(in, file); err != nil {
		s.log.Error("unable to store upload %s: %v", in, err)
		s.writeError(w, http.StatusInternalServerError, errors.New("unable to store upload"))
		return
	}
	if err := fs.MkdirAll(s.opts.ProcessedDir, os.ModePerm); err != nil {
		s.writeError(w, http.StatusInternalServerError, errors.New("unable to prepare output directory"))
		return
	}

	res, err := s.opts.Processor.Process(r.Context(), in, out)
	resp := uploadResponse{
		JobID:          res.Job.UUID,
		Status:         string(res.Job.Status),
		InputFilename:  inName,
		OutputFilename: outName,
		Input:          res.Input,
		Output:         res.Output,
		FramesWritten:  res.Job.FramesWritten,
		FramesScaled:   res.Job.FramesScaled,
	}
	if err != nil {
		resp.Status = string(models.JobFailed)
		resp.Error = err.Error()
		s.writeJSON(w, uploadFailureStatus(err), resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func uploadFailureStatus(err error) int {
	switch {
	case errors.Is(err, degrade.ErrDecoderOpen), errors.Is(err, degrade.ErrInsufficientFrames):
		return http.StatusUnprocessableEntity
	case errors.Is(err, degrade.ErrCancelled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) store(path string, src io.Reader) error {
	if err := fs.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	dst, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (s *Server) allowedExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if len(ext) == 0 {
		return false
	}
	for _, allowed := range s.opts.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename strips any directory part and replaces every run of
// characters outside [A-Za-z0-9._-] with an underscore.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if len(name) == 0 {
		return "upload"
	}
	return name
}

func (s *Server) serveFrom(dir func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["filename"]
		if name != sanitizeFilename(name) {
			s.writeError(w, http.StatusBadRequest, errors.New("invalid file name"))
			return
		}

		path := filepath.Join(dir(), name)
		f, err := fs.Open(path)
		if err != nil {
			s.writeError(w, http.StatusNotFound, errors.New("file not found"))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			s.writeError(w, http.StatusNotFound, errors.New("file not found"))
			return
		}
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.opts.Jobs == nil {
		s.writeError(w, http.StatusNotFound, errors.New("job history is disabled"))
		return
	}
	job, err := s.opts.Jobs.FindByUUID(mux.Vars(r)["uuid"])
	if err != nil {
		if errors.Is(err, repos.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("unable to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
