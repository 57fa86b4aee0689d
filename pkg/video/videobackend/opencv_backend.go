package videobackend

import (
	"sync"

	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

type openCVBackend struct {
	settings Settings
}

func (b *openCVBackend) NewDecoder() Decoder {
	return &openCVDecoder{prober: b.settings.Prober}
}

func (b *openCVBackend) NewEncoder() Encoder {
	return &openCVEncoder{codec: b.settings.Codec}
}

type videoCapture interface {
	Get(gocv.VideoCaptureProperties) float64
	Read(*gocv.Mat) bool
	IsOpened() bool
	Close() error
}

var openVideoCapture = func(path string) (videoCapture, error) {
	return gocv.OpenVideoCapture(path)
}

var readFromVideoCapture = func(vc videoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

type openCVDecoder struct {
	mu     sync.Mutex
	prober FrameRateProber
	vc     videoCapture
	next   int
}

func (d *openCVDecoder) Open(path string) (videoframe.StreamMetadata, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vc, err := openVideoCapture(path)
	if err != nil {
		return videoframe.StreamMetadata{}, xerror.Errorf("unable to open video capture: %w", err).WithParam("path", path)
	}
	if !vc.IsOpened() {
		vc.Close()
		return videoframe.StreamMetadata{}, xerror.New("video capture did not open").WithParam("path", path)
	}
	d.vc = vc
	d.next = 0

	meta := videoframe.StreamMetadata{
		Dimensions: videoframe.Dimensions{
			W: int(vc.Get(gocv.VideoCaptureFrameWidth)),
			H: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		},
		FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	if meta.FrameCount < 0 {
		meta.FrameCount = 0
	}
	meta.FrameRate = d.frameRate(path, vc.Get(gocv.VideoCaptureFPS))
	return meta, nil
}

func (d *openCVDecoder) frameRate(path string, reported float64) videoframe.Rational {
	if d.prober != nil {
		rate, err := d.prober.FrameRate(path)
		if err == nil && rate.Valid() {
			return rate.Reduce()
		}
		if err != nil {
			log.Debug("frame rate probe of %s failed, using capture rate: %v", path, err)
		}
	}
	return videoframe.RationalFromFloat(reported)
}

func (d *openCVDecoder) ReadFrame() (videoframe.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, xerror.New("decoder is not open")
	}

	mat := gocv.NewMat()
	if !readFromVideoCapture(d.vc, &mat) || mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}
	frame := videoframe.FromMat(mat, d.next)
	d.next++
	return frame, nil
}

func (d *openCVDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}

type videoWriter interface {
	Write(gocv.Mat) error
	IsOpened() bool
	Close() error
}

var openVideoWriter = func(filename, codec string, fps float64, width, height int, isColor bool) (videoWriter, error) {
	return gocv.VideoWriterFile(filename, codec, fps, width, height, isColor)
}

type openCVEncoder struct {
	mu    sync.Mutex
	codec string
	dims  videoframe.Dimensions
	vw    videoWriter
}

func (e *openCVEncoder) Open(path string, dims videoframe.Dimensions, rate videoframe.Rational) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dims.Empty() {
		return xerror.Errorf("invalid output dimensions %dx%d", dims.W, dims.H)
	}
	if !rate.Valid() {
		return xerror.Errorf("invalid output frame rate %s", rate)
	}
	if err := ensureParentExists(path); err != nil {
		return err
	}

	// the OpenCV writer only takes a float rate
	vw, err := openVideoWriter(path, e.codec, rate.Float64(), dims.W, dims.H, true)
	if err != nil {
		return xerror.Errorf("unable to open video writer: %w", err).WithParam("path", path)
	}
	if !vw.IsOpened() {
		vw.Close()
		return xerror.New("video writer did not open").WithParam("path", path)
	}
	e.vw = vw
	e.dims = dims
	return nil
}

func (e *openCVEncoder) WriteFrame(frame videoframe.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vw == nil {
		return xerror.New("encoder is not open")
	}
	mat, err := videoframe.Mat(frame)
	if err != nil {
		return err
	}
	if d := frame.Dimensions(); d != e.dims {
		return xerror.Errorf("%w: writer expects %dx%d, got %dx%d",
			videoframe.ErrDimensionMismatch, e.dims.W, e.dims.H, d.W, d.H).WithParam("frame", frame.Index())
	}
	return e.vw.Write(*mat)
}

func (e *openCVEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vw == nil {
		return nil
	}
	err := e.vw.Close()
	e.vw = nil
	return err
}
