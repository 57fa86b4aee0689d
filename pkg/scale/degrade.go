package scale

import (
	"image"

	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// Degrade shrinks frame by factor and stretches it back to its original
// size, throwing away fine detail while keeping the dimensions.
func Degrade(frame videoframe.Frame, factor float64) (videoframe.Frame, error) {
	if factor <= 0 || factor > 1 {
		return nil, xerror.Errorf("scale factor %v outside (0, 1]", factor).WithParam("frame", frame.Index())
	}

	src, err := videoframe.Mat(frame)
	if err != nil {
		return nil, err
	}

	dims := frame.Dimensions()
	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(*src, &small, image.Pt(shrink(dims.W, factor), shrink(dims.H, factor)), 0, 0, gocv.InterpolationLinear)

	restored := gocv.NewMat()
	gocv.Resize(small, &restored, image.Pt(dims.W, dims.H), 0, 0, gocv.InterpolationLinear)
	return videoframe.FromMat(restored, frame.Index()), nil
}

// Resample returns frame itself when it already has dims, otherwise a
// new linearly resized frame the caller must close.
func Resample(frame videoframe.Frame, dims videoframe.Dimensions) (videoframe.Frame, error) {
	if frame.Dimensions() == dims {
		return frame, nil
	}
	if dims.Empty() {
		return nil, xerror.Errorf("cannot resample to %dx%d", dims.W, dims.H).WithParam("frame", frame.Index())
	}

	src, err := videoframe.Mat(frame)
	if err != nil {
		return nil, err
	}
	dst := gocv.NewMat()
	gocv.Resize(*src, &dst, image.Pt(dims.W, dims.H), 0, 0, gocv.InterpolationLinear)
	return videoframe.FromMat(dst, frame.Index()), nil
}

func shrink(v int, factor float64) int {
	s := int(float64(v) * factor)
	if s < 1 {
		return 1
	}
	return s
}
