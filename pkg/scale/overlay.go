package scale

import (
	"image"

	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/idlesqueeze/pkg/video/videotext"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const IdleLabel = "Idle"

// Label stamps text in the top left corner of frame, in place.
func Label(frame videoframe.Frame, text string) error {
	mat, err := videoframe.Mat(frame)
	if err != nil {
		return err
	}

	img, err := mat.ToImage()
	if err != nil {
		return xerror.Errorf("unable to convert OpenCV mat into Go image: %w", err)
	}
	canvas := videotext.Clone(img)

	size := float64(frame.Dimensions().H) / 12
	if size < 10 {
		size = 10
	}
	if err := videotext.Draw(canvas, int(size/2), int(size*2), text, size, image.White); err != nil {
		return err
	}

	labelled, err := gocv.ImageToMatRGB(canvas)
	if err != nil {
		return xerror.Errorf("unable to convert Go image into OpenCV mat: %w", err)
	}
	defer labelled.Close()
	labelled.CopyTo(mat)
	return nil
}
