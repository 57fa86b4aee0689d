package videobackend

import (
	"context"
	"fmt"
	"sync"

	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type ffmpegBackend struct {
	settings Settings
}

func (b *ffmpegBackend) NewDecoder() Decoder {
	return &openCVDecoder{prober: b.settings.Prober}
}

func (b *ffmpegBackend) NewEncoder() Encoder {
	return &ffmpegEncoder{runner: b.settings.Runner, codec: b.settings.Codec}
}

type ffmpegEncoder struct {
	mu     sync.Mutex
	runner execrun.Runner
	codec  string
	dims   videoframe.Dimensions
	proc   execrun.Process
	cancel context.CancelFunc
}

// encodeArgs feeds raw BGR frames over stdin at the exact rational rate.
func encodeArgs(path, codec string, dims videoframe.Dimensions, rate videoframe.Rational) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", dims.W, dims.H),
		"-framerate", rate.String(),
		"-i", "pipe:0",
		"-an",
		"-c:v", codec,
		"-r", rate.String(),
		path,
	}
}

func (e *ffmpegEncoder) Open(path string, dims videoframe.Dimensions, rate videoframe.Rational) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dims.Empty() {
		return xerror.Errorf("invalid output dimensions %dx%d", dims.W, dims.H)
	}
	if !rate.Valid() {
		return xerror.Errorf("invalid output frame rate %s", rate)
	}
	if err := ensureParentExists(path); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := e.runner.Start(ctx, "ffmpeg", encodeArgs(path, e.codec, dims, rate.Reduce())...)
	if err != nil {
		cancel()
		return xerror.Errorf("unable to start ffmpeg encoder: %w", err).WithParam("path", path)
	}
	e.proc = proc
	e.cancel = cancel
	e.dims = dims
	return nil
}

func (e *ffmpegEncoder) WriteFrame(frame videoframe.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return xerror.New("encoder is not open")
	}
	if d := frame.Dimensions(); d != e.dims {
		return xerror.Errorf("%w: encoder expects %dx%d, got %dx%d",
			videoframe.ErrDimensionMismatch, e.dims.W, e.dims.H, d.W, d.H).WithParam("frame", frame.Index())
	}
	mat, err := videoframe.Mat(frame)
	if err != nil {
		return err
	}
	if _, err := e.proc.Write(mat.ToBytes()); err != nil {
		return xerror.Errorf("unable to pipe frame to ffmpeg: %w", err).WithParam("frame", frame.Index())
	}
	return nil
}

func (e *ffmpegEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil {
		return nil
	}
	err := e.proc.Wait()
	e.cancel()
	e.proc = nil
	return err
}
