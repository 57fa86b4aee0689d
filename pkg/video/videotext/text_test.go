package videotext_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/idlesqueeze/pkg/video/videotext"
)

func TestDrawMarksCanvas(t *testing.T) {
	is := is.New(t)
	canvas := image.NewRGBA(image.Rect(0, 0, 200, 80))

	is.NoErr(videotext.Draw(canvas, 5, 60, "Idle", 32, image.White))

	marked := 0
	for _, p := range canvas.Pix {
		if p != 0 {
			marked++
		}
	}
	is.True(marked > 0)
}

func TestCloneIsIndependentCopy(t *testing.T) {
	is := is.New(t)
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	dst := videotext.Clone(src)
	dst.Set(1, 1, color.White)
	is.Equal(src.RGBAAt(1, 1), color.RGBA{})
}
