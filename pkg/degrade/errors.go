package degrade

import (
	"errors"

	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var (
	ErrDimensionMismatch  = videoframe.ErrDimensionMismatch
	ErrDecoderOpen        = errors.New("decoder open failure")
	ErrEncoderOpen        = errors.New("encoder open failure")
	ErrCancelled          = errors.New("cancelled")
	ErrInsufficientFrames = errors.New("insufficient frames")
	ErrFrameWrite         = errors.New("frame write failure")
	ErrDegrade            = errors.New("frame degrade failure")
	ErrInvalidSettings    = errors.New("invalid settings")
)

const errKind = xerror.Kind("degrade")

// Phase names the part of a run an error surfaced in.
type Phase string

const (
	PhaseSettings Phase = "settings"
	PhaseOpen     Phase = "open"
	PhasePrime    Phase = "prime"
	PhaseClassify Phase = "classify"
	PhaseDegrade  Phase = "degrade"
	PhaseWrite    Phase = "write"
	PhaseDrain    Phase = "drain"
)

// runError wraps sentinel with the frame index and phase it happened at.
// cause is folded into the message only so errors.Is matches sentinel.
func runError(sentinel error, phase Phase, frame int, cause error) error {
	var xerr xerror.I
	if cause == nil {
		xerr = xerror.Errorf("%w", sentinel)
	} else {
		xerr = xerror.Errorf("%w: %v", sentinel, cause)
	}
	return xerr.AsKind(errKind).WithParam("phase", string(phase)).WithParam("frame", frame)
}
