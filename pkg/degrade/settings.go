package degrade

import (
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/scale"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const (
	DefaultAreaThreshold = 900
	DefaultIdleCriteria  = 5
)

type ResolutionMode string

const (
	ResolutionSource ResolutionMode = "source"
	ResolutionFixed  ResolutionMode = "fixed"
)

// TargetResolution picks the encoder's output size. Source keeps the
// decoder's dimensions, Fixed forces Size.
type TargetResolution struct {
	Mode ResolutionMode
	Size videoframe.Dimensions
}

func SourceResolution() TargetResolution {
	return TargetResolution{Mode: ResolutionSource}
}

func FixedResolution(w, h int) TargetResolution {
	return TargetResolution{Mode: ResolutionFixed, Size: videoframe.Dimensions{W: w, H: h}}
}

func (t TargetResolution) resolve(source videoframe.Dimensions) videoframe.Dimensions {
	if t.Mode == ResolutionFixed {
		return t.Size
	}
	return source
}

// InsufficientFramesPolicy decides what a stream shorter than one pair yields.
type InsufficientFramesPolicy string

const (
	InsufficientFramesEmpty InsufficientFramesPolicy = "empty"
	InsufficientFramesFail  InsufficientFramesPolicy = "fail"
)

type Settings struct {
	AreaThreshold      float64
	IdleCriteria       int
	Bands              scale.Bands
	Target             TargetResolution
	InsufficientFrames InsufficientFramesPolicy
	LabelIdleFrames    bool

	Logger   log.Logger
	Reporter Reporter
}

func DefaultSettings() Settings {
	return Settings{
		AreaThreshold:      DefaultAreaThreshold,
		IdleCriteria:       DefaultIdleCriteria,
		Bands:              scale.DefaultBands(),
		Target:             SourceResolution(),
		InsufficientFrames: InsufficientFramesEmpty,
	}
}

func (s Settings) validate() error {
	if s.AreaThreshold < 0 {
		return xerror.Errorf("area threshold must not be negative: %v", s.AreaThreshold)
	}
	if s.IdleCriteria < 1 {
		return xerror.Errorf("idle criteria must be at least 1: %d", s.IdleCriteria)
	}
	if err := s.Bands.Validate(); err != nil {
		return err
	}
	switch s.Target.Mode {
	case ResolutionSource:
	case ResolutionFixed:
		if s.Target.Size.Empty() {
			return xerror.Errorf("fixed target resolution needs positive dimensions, got %dx%d", s.Target.Size.W, s.Target.Size.H)
		}
	default:
		return xerror.Errorf("unknown target resolution mode %q", s.Target.Mode)
	}
	switch s.InsufficientFrames {
	case InsufficientFramesEmpty, InsufficientFramesFail:
	default:
		return xerror.Errorf("unknown insufficient frames policy %q", s.InsufficientFrames)
	}
	return nil
}
