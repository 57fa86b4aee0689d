package probe

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()

var ErrNoVideoTrack = xerror.New("no video track found")

// Info describes a video file for reporting.
type Info struct {
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	FrameRate  videoframe.Rational `json:"frame_rate"`
	FrameCount int                 `json:"frame_count"`
	Duration   time.Duration       `json:"duration"`
	BitRate    int64               `json:"bit_rate"`
	Codec      string              `json:"codec"`
}

func (i Info) Metadata() videoframe.StreamMetadata {
	return videoframe.StreamMetadata{
		Dimensions: videoframe.Dimensions{W: i.Width, H: i.Height},
		FrameRate:  i.FrameRate,
		FrameCount: i.FrameCount,
	}
}

type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

type auto struct {
	mp4     Prober
	ffprobe Prober
}

// Auto reads MP4 family containers natively and hands everything else,
// or anything the native reader fails on, to ffprobe.
func Auto(runner execrun.Runner) Prober {
	return &auto{mp4: MP4(), ffprobe: FFprobe(runner)}
}

func (a *auto) Probe(ctx context.Context, path string) (Info, error) {
	if isMP4Family(path) {
		info, err := a.mp4.Probe(ctx, path)
		if err == nil {
			return info, nil
		}
		log.Debug("native probe of %s failed, falling back to ffprobe: %v", path, err)
	}
	return a.ffprobe.Probe(ctx, path)
}

func isMP4Family(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return true
	}
	return false
}

// FrameRates adapts a Prober to the frame rate lookup decoders accept.
type FrameRates struct {
	Prober  Prober
	Timeout time.Duration
}

func (f FrameRates) FrameRate(path string) (videoframe.Rational, error) {
	ctx := context.Background()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	info, err := f.Prober.Probe(ctx, path)
	if err != nil {
		return videoframe.Rational{}, err
	}
	if !info.FrameRate.Valid() {
		return videoframe.Rational{}, xerror.Errorf("%w: no frame rate for %s", videoframe.ErrInvalidRational, path)
	}
	return info.FrameRate, nil
}
