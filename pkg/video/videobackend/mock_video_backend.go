package videobackend

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/idlesqueeze/pkg/video/videotext"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const (
	defaultMockFrames = 90
	markerSize        = 40
)

type mockVideoBackend struct {
	settings Settings
}

func (b *mockVideoBackend) NewDecoder() Decoder {
	s := b.settings
	if s.MockFrames <= 0 {
		s.MockFrames = defaultMockFrames
	}
	if s.MockDimensions.Empty() {
		s.MockDimensions = videoframe.Dimensions{W: 320, H: 240}
	}
	if !s.MockFrameRate.Valid() {
		s.MockFrameRate = videoframe.Rational{Num: 30, Den: 1}
	}
	return &mockDecoder{settings: s}
}

func (b *mockVideoBackend) NewEncoder() Encoder {
	return &mockEncoder{}
}

// mockDecoder renders a synthetic stream: a marker sweeps across the
// first third of the frames and then stays put for the rest.
type mockDecoder struct {
	settings Settings
	base     *image.RGBA
	next     int
}

func (d *mockDecoder) Open(path string) (videoframe.StreamMetadata, error) {
	dims := d.settings.MockDimensions
	base := renderBaseFrameCanvas(dims.W, dims.H)
	if err := videotext.Draw(base, 5, 30, "IDLESQUEEZE_MOCK_STREAM", 16, image.White); err != nil {
		return videoframe.StreamMetadata{}, xerror.Errorf("unable to draw text onto mock stream canvas: %w", err)
	}
	d.base = base
	d.next = 0
	log.Debug("opened mock stream in place of %s", path)
	return videoframe.StreamMetadata{
		Dimensions: dims,
		FrameRate:  d.settings.MockFrameRate,
		FrameCount: d.settings.MockFrames,
	}, nil
}

func (d *mockDecoder) ReadFrame() (videoframe.Frame, error) {
	if d.base == nil {
		return nil, xerror.New("decoder is not open")
	}
	if d.next >= d.settings.MockFrames {
		return nil, ErrEndOfStream
	}

	img := videotext.Clone(d.base)
	pos := markerPosition(d.next, d.settings.MockFrames, img.Bounds())
	draw.Draw(img, image.Rect(pos.X, pos.Y, pos.X+markerSize, pos.Y+markerSize), image.White, image.Point{}, draw.Src)

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, xerror.Errorf("unable to convert Go image into OpenCV mat: %w", err)
	}
	frame := videoframe.FromMat(mat, d.next)
	d.next++
	return frame, nil
}

func (d *mockDecoder) Close() error {
	d.base = nil
	return nil
}

func markerPosition(index, total int, bounds image.Rectangle) image.Point {
	moving := total / 3
	if index > moving {
		index = moving
	}
	span := bounds.Dx() - markerSize
	if span < 1 {
		span = 1
	}
	return image.Pt((index*8)%span, bounds.Dy()/2)
}

func renderBaseFrameCanvas(w, h int) *image.RGBA {
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := float64(h) / 2
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), float64(h) * 0.75}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), float64(h) * 0.75}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), float64(h) * 0.75}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			}
			img.Set(x, y, c)
		}
	}
	return img
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}

// mockEncoder discards frames, keeping only enough to be inspected.
type mockEncoder struct {
	mu      sync.Mutex
	path    string
	dims    videoframe.Dimensions
	rate    videoframe.Rational
	written int
	open    bool
}

func (e *mockEncoder) Open(path string, dims videoframe.Dimensions, rate videoframe.Rational) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.path, e.dims, e.rate = path, dims, rate
	e.written = 0
	e.open = true
	return nil
}

func (e *mockEncoder) WriteFrame(frame videoframe.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return xerror.New("encoder is not open")
	}
	if d := frame.Dimensions(); d != e.dims {
		return xerror.Errorf("%w: encoder expects %dx%d, got %dx%d",
			videoframe.ErrDimensionMismatch, e.dims.W, e.dims.H, d.W, d.H).WithParam("frame", frame.Index())
	}
	e.written++
	return nil
}

func (e *mockEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		log.Debug("mock encoder discarded %d frames for %s", e.written, e.path)
	}
	e.open = false
	return nil
}
