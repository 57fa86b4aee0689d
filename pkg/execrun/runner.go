package execrun

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/tauraamui/xerror"
)

var ErrNotFound = xerror.New("executable not found")

// Runner launches external tools from an argument list. Nothing is ever
// passed through a shell.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// Process is a running tool fed through its standard input.
type Process interface {
	io.Writer
	// Wait closes stdin and blocks until the process exits.
	Wait() error
}

type execRunner struct {
	paths map[string]string
}

// New returns a Runner backed by os/exec. paths overrides the location
// of named binaries, anything missing is looked up on PATH.
func New(paths map[string]string) Runner {
	return &execRunner{paths: paths}
}

func Default() Runner { return New(nil) }

var lookPath = exec.LookPath

func (r *execRunner) resolve(name string) (string, error) {
	if p, ok := r.paths[name]; ok && len(p) > 0 {
		name = p
	}
	path, err := lookPath(name)
	if err != nil {
		return "", xerror.Errorf("%w: %s: %v", ErrNotFound, name, err)
	}
	return path, nil
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := r.resolve(name)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), failure(name, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (r *execRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	path, err := r.resolve(name)
	if err != nil {
		return nil, err
	}

	p := &process{name: name}
	p.cmd = exec.CommandContext(ctx, path, args...)
	p.cmd.Stderr = &p.stderr
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, xerror.Errorf("unable to open stdin of %s: %w", name, err)
	}
	p.stdin = stdin

	if err := p.cmd.Start(); err != nil {
		return nil, xerror.Errorf("unable to start %s: %w", name, err)
	}
	return p, nil
}

type process struct {
	name   string
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	done   bool
}

func (p *process) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return 0, xerror.Errorf("%s has already exited", p.name)
	}
	return p.stdin.Write(b)
}

func (p *process) Wait() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}
	p.done = true
	p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return failure(p.name, err, p.stderr.String())
	}
	return nil
}

func failure(name string, err error, stderr string) error {
	xerr := xerror.Errorf("%s failed: %w", name, err)
	if tail := lastLine(stderr); len(tail) > 0 {
		xerr = xerr.WithParam("stderr", tail)
	}
	return xerr
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
