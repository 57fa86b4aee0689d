package remux

import (
	"context"
	"strconv"

	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/xerror"
)

// Muxer joins a video only stream with the audio of its source.
type Muxer interface {
	Mux(ctx context.Context, videoOnly, source, out string) error
}

type Options struct {
	VideoCodec   string
	CRF          int
	Preset       string
	AudioCodec   string
	AudioBitrate string
}

func DefaultOptions() Options {
	return Options{
		VideoCodec:   "libx264",
		CRF:          23,
		Preset:       "fast",
		AudioCodec:   "aac",
		AudioBitrate: "160k",
	}
}

type FFmpeg struct {
	runner execrun.Runner
	opts   Options
}

func New(runner execrun.Runner, opts Options) *FFmpeg {
	if runner == nil {
		runner = execrun.Default()
	}
	return &FFmpeg{runner: runner, opts: opts}
}

// Args maps the video of videoOnly and, when present, the first audio
// stream of source into out.
func (f *FFmpeg) Args(videoOnly, source, out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", videoOnly,
		"-i", source,
		"-map", "0:v:0",
		"-map", "1:a:0?",
		"-c:v", f.opts.VideoCodec,
		"-crf", strconv.Itoa(f.opts.CRF),
		"-preset", f.opts.Preset,
		"-pix_fmt", "yuv420p",
		"-c:a", f.opts.AudioCodec,
		"-b:a", f.opts.AudioBitrate,
		"-movflags", "+faststart",
		out,
	}
}

func (f *FFmpeg) Mux(ctx context.Context, videoOnly, source, out string) error {
	if _, err := f.runner.Run(ctx, "ffmpeg", f.Args(videoOnly, source, out)...); err != nil {
		return xerror.Errorf("unable to mux %s with audio from %s: %w", videoOnly, source, err).WithParam("out", out)
	}
	return nil
}
