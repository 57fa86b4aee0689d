package videobackend

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
)

var fs = afero.NewOsFs()

var ErrEndOfStream = errors.New("end of stream")

type Decoder interface {
	Open(path string) (videoframe.StreamMetadata, error)
	// ReadFrame returns ErrEndOfStream once the stream is exhausted.
	ReadFrame() (videoframe.Frame, error)
	Close() error
}

type Encoder interface {
	Open(path string, dims videoframe.Dimensions, rate videoframe.Rational) error
	WriteFrame(videoframe.Frame) error
	Close() error
}

// FrameRateProber reports the exact container frame rate of a file.
type FrameRateProber interface {
	FrameRate(path string) (videoframe.Rational, error)
}

type Backend interface {
	NewDecoder() Decoder
	NewEncoder() Encoder
}

type Settings struct {
	// Codec is a fourcc for the OpenCV writer or an encoder name for ffmpeg.
	Codec  string
	Prober FrameRateProber
	Runner execrun.Runner

	MockFrames     int
	MockDimensions videoframe.Dimensions
	MockFrameRate  videoframe.Rational
}

const (
	DefaultOpenCVCodec = "MJPG"
	DefaultFFmpegCodec = "ffv1"
)

func Default() Backend {
	return OpenCV(Settings{})
}

func OpenCV(s Settings) Backend {
	if len(s.Codec) == 0 {
		s.Codec = DefaultOpenCVCodec
	}
	return &openCVBackend{settings: s}
}

// FFmpeg decodes through OpenCV and encodes by piping raw frames into ffmpeg.
func FFmpeg(s Settings) Backend {
	if len(s.Codec) == 0 {
		s.Codec = DefaultFFmpegCodec
	}
	if s.Runner == nil {
		s.Runner = execrun.Default()
	}
	return &ffmpegBackend{settings: s}
}

func Mock(s Settings) Backend {
	return &mockVideoBackend{settings: s}
}

func Resolve(t string, s Settings) Backend {
	switch t {
	case "mock":
		return Mock(s)
	case "ffmpeg":
		return FFmpeg(s)
	default:
		return OpenCV(s)
	}
}

func ensureParentExists(path string) error {
	dir := filepath.Dir(path)
	err := fs.MkdirAll(dir, os.ModePerm|os.ModeDir)
	if err == nil || os.IsExist(err) {
		return nil
	}
	return err
}
