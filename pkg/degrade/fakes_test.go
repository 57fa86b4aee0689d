package degrade_test

import (
	"bytes"
	"image"

	"github.com/tauraamui/idlesqueeze/internal/videotest"
	"github.com/tauraamui/idlesqueeze/pkg/degrade"
	"github.com/tauraamui/idlesqueeze/pkg/video/videobackend"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type fakeDecoder struct {
	canvases  []*videotest.Canvas
	meta      videoframe.StreamMetadata
	openErr   error
	failAt    int
	next      int
	opened    bool
	closed    bool
	closeHits int
}

func newFakeDecoder(canvases []*videotest.Canvas, rate videoframe.Rational) *fakeDecoder {
	meta := videoframe.StreamMetadata{FrameRate: rate, FrameCount: len(canvases)}
	if len(canvases) > 0 {
		meta.Dimensions = videoframe.Dimensions{W: canvases[0].W, H: canvases[0].H}
	}
	return &fakeDecoder{canvases: canvases, meta: meta, failAt: -1}
}

func (d *fakeDecoder) Open(string) (videoframe.StreamMetadata, error) {
	if d.openErr != nil {
		return videoframe.StreamMetadata{}, d.openErr
	}
	d.opened = true
	return d.meta, nil
}

func (d *fakeDecoder) ReadFrame() (videoframe.Frame, error) {
	if d.next == d.failAt {
		return nil, xerror.New("corrupt packet")
	}
	if d.next >= len(d.canvases) {
		return nil, videobackend.ErrEndOfStream
	}
	f, err := d.canvases[d.next].Frame(d.next)
	d.next++
	return f, err
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	d.closeHits++
	return nil
}

type writtenFrame struct {
	index int
	dims  videoframe.Dimensions
	data  []byte
}

type fakeEncoder struct {
	openErr  error
	writeErr error
	dims     videoframe.Dimensions
	rate     videoframe.Rational
	frames   []writtenFrame
	opened   bool
	closed   bool
}

func (e *fakeEncoder) Open(_ string, dims videoframe.Dimensions, rate videoframe.Rational) error {
	if e.openErr != nil {
		return e.openErr
	}
	e.opened = true
	e.dims, e.rate = dims, rate
	return nil
}

func (e *fakeEncoder) WriteFrame(f videoframe.Frame) error {
	if e.writeErr != nil {
		return e.writeErr
	}
	e.frames = append(e.frames, writtenFrame{index: f.Index(), dims: f.Dimensions(), data: videotest.Bytes(f)})
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closed = true
	return nil
}

type recordingReporter struct {
	states   []degrade.State
	events   []degrade.FrameEvent
	percents []int
	onFrame  func(degrade.FrameEvent)
}

func (r *recordingReporter) StateChanged(_, to degrade.State) { r.states = append(r.states, to) }
func (r *recordingReporter) Progress(p int)                 { r.percents = append(r.percents, p) }
func (r *recordingReporter) FrameProcessed(e degrade.FrameEvent) {
	r.events = append(r.events, e)
	if r.onFrame != nil {
		r.onFrame(e)
	}
}

func identicalCheckers(n int) []*videotest.Canvas {
	base := videotest.NewCanvas(160, 120, 0).Checker()
	canvases := make([]*videotest.Canvas, n)
	for i := range canvases {
		canvases[i] = base.Clone()
	}
	return canvases
}

func sameBytes(a, b []byte) bool { return bytes.Equal(a, b) }

var bigBlock = image.Rect(40, 30, 100, 90)
