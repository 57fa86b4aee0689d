package jobs

import (
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
	"github.com/tauraamui/idlesqueeze/pkg/degrade"
)

// EngineSettings converts the engine section of the config into pipeline
// settings. Logger and Reporter are left for the caller.
func EngineSettings(e configdef.Engine) degrade.Settings {
	s := degrade.DefaultSettings()
	s.AreaThreshold = e.AreaThreshold
	s.IdleCriteria = e.IdleCriteria
	if len(e.ScaleBands) > 0 {
		s.Bands = e.ScaleBands
	}
	if e.TargetResolution.Mode == string(degrade.ResolutionFixed) {
		s.Target = degrade.FixedResolution(e.TargetResolution.Width, e.TargetResolution.Height)
	}
	if len(e.InsufficientFrames) > 0 {
		s.InsufficientFrames = degrade.InsufficientFramesPolicy(e.InsufficientFrames)
	}
	s.LabelIdleFrames = e.LabelIdleFrames
	return s
}

// intermediateExt picks a container the backend's default codec fits in.
func intermediateExt(backend string) string {
	if backend == "ffmpeg" {
		return ".mkv"
	}
	return ".avi"
}
