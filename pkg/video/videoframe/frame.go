package videoframe

import (
	"errors"

	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

var ErrDimensionMismatch = errors.New("frame dimensions do not match")

type Dimensions struct {
	W, H int
}

func (d Dimensions) Empty() bool {
	return d.W <= 0 || d.H <= 0
}

// Frame is a single decoded picture. DataRef returns the backing
// *gocv.Mat holding interleaved 3 channel BGR pixels.
type Frame interface {
	DataRef() interface{}
	Dimensions() Dimensions
	Index() int
	Close()
}

type matFrame struct {
	isClosed bool
	index    int
	mat      gocv.Mat
}

// FromMat takes ownership of mat, it is released when the frame closes.
func FromMat(mat gocv.Mat, index int) Frame {
	return &matFrame{mat: mat, index: index}
}

func (f *matFrame) DataRef() interface{} {
	return &f.mat
}

func (f *matFrame) Dimensions() Dimensions {
	return Dimensions{W: f.mat.Cols(), H: f.mat.Rows()}
}

func (f *matFrame) Index() int { return f.index }

func (f *matFrame) Close() {
	if !f.isClosed {
		f.mat.Close()
		f.isClosed = true
	}
}

// Mat unwraps the OpenCV matrix backing frame.
func Mat(frame Frame) (*gocv.Mat, error) {
	if frame == nil {
		return nil, xerror.New("cannot unwrap nil frame")
	}
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return nil, xerror.New("must pass OpenCV frame")
	}
	return mat, nil
}

// SameDimensions fails with ErrDimensionMismatch when the two frames differ in size.
func SameDimensions(a, b Frame) error {
	da, db := a.Dimensions(), b.Dimensions()
	if da != db {
		return xerror.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, da.W, da.H, db.W, db.H).
			WithParam("frame", b.Index())
	}
	return nil
}
