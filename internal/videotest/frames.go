package videotest

import (
	"image"

	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"gocv.io/x/gocv"
)

// Canvas is a BGR pixel buffer that tests paint on before turning it
// into a frame.
type Canvas struct {
	W, H int
	Pix  []byte
}

func NewCanvas(w, h int, fill byte) *Canvas {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = fill
	}
	return &Canvas{W: w, H: h, Pix: pix}
}

func (c *Canvas) Clone() *Canvas {
	pix := make([]byte, len(c.Pix))
	copy(pix, c.Pix)
	return &Canvas{W: c.W, H: c.H, Pix: pix}
}

// FillRect paints r (clipped to the canvas) with a grey level.
func (c *Canvas) FillRect(r image.Rectangle, level byte) *Canvas {
	r = r.Intersect(image.Rect(0, 0, c.W, c.H))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			o := (y*c.W + x) * 3
			c.Pix[o], c.Pix[o+1], c.Pix[o+2] = level, level, level
		}
	}
	return c
}

// Checker paints a fine checkerboard so resampling has detail to lose.
func (c *Canvas) Checker() *Canvas {
	for y := 0; y < c.H; y++ {
		for x := 0; x < c.W; x++ {
			o := (y*c.W + x) * 3
			var v byte = 30
			if (x/2+y/2)%2 == 0 {
				v = 220
			}
			c.Pix[o], c.Pix[o+1], c.Pix[o+2] = v, v, v
		}
	}
	return c
}

func (c *Canvas) Frame(index int) (videoframe.Frame, error) {
	view, err := gocv.NewMatFromBytes(c.H, c.W, gocv.MatTypeCV8UC3, c.Pix)
	if err != nil {
		return nil, err
	}
	// the view borrows Go memory, the frame must own its pixels
	defer view.Close()
	return videoframe.FromMat(view.Clone(), index), nil
}

// MustFrame is Frame for tests which cannot continue without one.
func (c *Canvas) MustFrame(index int) videoframe.Frame {
	f, err := c.Frame(index)
	if err != nil {
		panic(err)
	}
	return f
}

// Bytes returns the raw BGR bytes backing frame.
func Bytes(frame videoframe.Frame) []byte {
	mat, err := videoframe.Mat(frame)
	if err != nil {
		return nil
	}
	return mat.ToBytes()
}
