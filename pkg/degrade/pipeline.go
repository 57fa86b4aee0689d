package degrade

import (
	"context"
	"errors"

	"github.com/tauraamui/idlesqueeze/pkg/idle"
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/motion"
	"github.com/tauraamui/idlesqueeze/pkg/scale"
	"github.com/tauraamui/idlesqueeze/pkg/video/videobackend"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type Stats struct {
	Metadata      videoframe.StreamMetadata
	Target        videoframe.Dimensions
	FramesRead    int
	FramesWritten int
	IdlePairs     int
	ActivePairs   int
	IdleResets    int
	Degraded      int
	State         State
}

// Pipeline degrades idle stretches of a stream. One Pipeline may run any
// number of streams, one after another or side by side, since every run
// keeps its own idle state.
type Pipeline struct {
	settings Settings
}

func New(settings Settings) (*Pipeline, error) {
	if err := settings.validate(); err != nil {
		return nil, runError(ErrInvalidSettings, PhaseSettings, -1, err)
	}
	if settings.Logger == nil {
		settings.Logger = log.Nop()
	}
	if settings.Reporter == nil {
		settings.Reporter = NopReporter()
	}
	return &Pipeline{settings: settings}, nil
}

// Run streams every frame of in through enc into out. Both dec and enc are
// closed before Run returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, dec videobackend.Decoder, enc videobackend.Encoder, in, out string) (Stats, error) {
	r := &run{
		settings: p.settings,
		log:      p.settings.Logger,
		reporter: p.settings.Reporter,
		detector: motion.NewDetector(p.settings.AreaThreshold),
		tracker:  idle.NewTracker(p.settings.IdleCriteria),
		dec:      dec,
		enc:      enc,
	}
	err := r.execute(ctx, in, out)
	r.release()
	if err != nil {
		r.transition(StateFailed)
		r.log.Error("processing %s failed: %v", in, err)
	}
	r.stats.State = r.state
	return r.stats, err
}

type run struct {
	settings Settings
	log      log.Logger
	reporter Reporter
	detector motion.Detector
	tracker  *idle.Tracker

	dec       videobackend.Decoder
	enc       videobackend.Encoder
	encClosed bool

	state       State
	stats       Stats
	lastPercent int

	prev, curr videoframe.Frame
}

func (r *run) transition(to State) {
	if r.state == to {
		return
	}
	from := r.state
	r.state = to
	r.reporter.StateChanged(from, to)
}

func (r *run) execute(ctx context.Context, in, out string) error {
	meta, err := r.dec.Open(in)
	if err != nil {
		return runError(ErrDecoderOpen, PhaseOpen, -1, err)
	}
	r.stats.Metadata = meta
	r.log.Debug("opened %s: %dx%d at %s, %d frames", in, meta.Dimensions.W, meta.Dimensions.H, meta.FrameRate, meta.FrameCount)

	if err := ctx.Err(); err != nil {
		return runError(ErrCancelled, PhasePrime, 0, err)
	}

	r.prev = r.read()
	if r.prev != nil {
		r.curr = r.read()
	}

	// the encoder is opened only once priming has settled, so a failed
	// prime never leaves an output file behind
	target := r.settings.Target.resolve(meta.Dimensions)
	if target.Empty() && r.prev != nil {
		target = r.prev.Dimensions()
	}
	if r.curr == nil {
		return r.insufficient(out, target, meta.FrameRate)
	}

	if err := r.openEncoder(out, target, meta.FrameRate); err != nil {
		return err
	}
	r.transition(StateStreaming)

	for r.curr != nil {
		if err := ctx.Err(); err != nil {
			return runError(ErrCancelled, PhaseClassify, r.prev.Index(), err)
		}
		if err := r.step(); err != nil {
			return err
		}
	}

	r.transition(StateDraining)
	if err := r.emit(r.prev, FrameEvent{Index: r.prev.Index(), Last: true}); err != nil {
		return err
	}
	r.prev.Close()
	r.prev = nil
	return r.closeEncoder()
}

// step classifies the current pair, emits the leading frame and slides
// the window forward by one frame.
func (r *run) step() error {
	cls, err := r.detector.Classify(r.prev, r.curr)
	if err != nil {
		if errors.Is(err, videoframe.ErrDimensionMismatch) {
			return runError(ErrDimensionMismatch, PhaseClassify, r.curr.Index(), err)
		}
		return runError(ErrDegrade, PhaseClassify, r.curr.Index(), err)
	}

	before := r.tracker.State()
	after := r.tracker.Advance(cls)

	event := FrameEvent{
		Index:     r.prev.Index(),
		Active:    cls.Active,
		IdleTime:  after.IdleTime,
		ResetIdle: cls.Active && before.IdleTime > 0,
	}
	if cls.Active {
		r.stats.ActivePairs++
	} else {
		r.stats.IdlePairs++
	}
	if event.ResetIdle {
		r.stats.IdleResets++
		r.log.Debug("motion between frames %d and %d, idle run of %d reset to %d", r.prev.Index(), r.curr.Index(), before.IdleTime, after.IdleTime)
	}
	if !cls.Active {
		event.Factor, event.Degraded = r.settings.Bands.FactorFor(after.IdleTime, r.settings.IdleCriteria)
	}

	if err := r.emit(r.prev, event); err != nil {
		return err
	}

	r.prev.Close()
	r.prev, r.curr = r.curr, r.read()
	return nil
}

func (r *run) emit(frame videoframe.Frame, event FrameEvent) error {
	var owned []videoframe.Frame
	defer func() {
		for _, f := range owned {
			f.Close()
		}
	}()

	outFrame := frame
	if event.Degraded {
		degraded, err := scale.Degrade(frame, event.Factor)
		if err != nil {
			return runError(ErrDegrade, PhaseDegrade, event.Index, err)
		}
		owned = append(owned, degraded)
		if r.settings.LabelIdleFrames {
			if err := scale.Label(degraded, scale.IdleLabel); err != nil {
				return runError(ErrDegrade, PhaseDegrade, event.Index, err)
			}
		}
		outFrame = degraded
		r.stats.Degraded++
	}

	resampled, err := scale.Resample(outFrame, r.stats.Target)
	if err != nil {
		return runError(ErrDegrade, PhaseDegrade, event.Index, err)
	}
	if resampled != outFrame {
		owned = append(owned, resampled)
	}

	if err := r.enc.WriteFrame(resampled); err != nil {
		return runError(ErrFrameWrite, PhaseWrite, event.Index, err)
	}
	r.stats.FramesWritten++
	r.reporter.FrameProcessed(event)
	r.progress()
	return nil
}

// progress emits one event for every whole percent crossed since the last call.
func (r *run) progress() {
	total := r.stats.Metadata.FrameCount
	if total <= 0 {
		return
	}
	percent := r.stats.FramesWritten * 100 / total
	if percent > 100 {
		percent = 100
	}
	for r.lastPercent < percent {
		r.lastPercent++
		r.reporter.Progress(r.lastPercent)
	}
}

// read returns the next frame or nil once the stream is over. A failed
// read ends the stream early instead of failing the run.
func (r *run) read() videoframe.Frame {
	frame, err := r.dec.ReadFrame()
	if err != nil {
		if !errors.Is(err, videobackend.ErrEndOfStream) {
			r.log.Warn("frame read failed after %d frames, treating as end of stream: %v", r.stats.FramesRead, err)
		}
		return nil
	}
	r.stats.FramesRead++
	return frame
}

func (r *run) insufficient(out string, target videoframe.Dimensions, rate videoframe.Rational) error {
	read := r.stats.FramesRead
	if r.settings.InsufficientFrames == InsufficientFramesFail {
		return runError(ErrInsufficientFrames, PhasePrime, read, xerror.Errorf("stream yielded %d frames", read))
	}

	r.log.Warn("stream yielded %d frames, need at least 2, nothing written", read)
	if !target.Empty() {
		if err := r.openEncoder(out, target, rate); err != nil {
			return err
		}
	}
	r.transition(StateStreaming)
	r.transition(StateDraining)
	if err := r.closeEncoder(); err != nil {
		return err
	}
	r.transition(StateDone)
	return nil
}

func (r *run) openEncoder(out string, target videoframe.Dimensions, rate videoframe.Rational) error {
	if err := r.enc.Open(out, target, rate); err != nil {
		return runError(ErrEncoderOpen, PhaseOpen, -1, err)
	}
	r.stats.Target = target
	return nil
}

func (r *run) closeEncoder() error {
	r.encClosed = true
	if err := r.enc.Close(); err != nil {
		return runError(ErrFrameWrite, PhaseDrain, r.stats.FramesWritten, err)
	}
	if r.state == StateDraining {
		r.transition(StateDone)
	}
	return nil
}

func (r *run) release() {
	if r.prev != nil {
		r.prev.Close()
		r.prev = nil
	}
	if r.curr != nil {
		r.curr.Close()
		r.curr = nil
	}
	if !r.encClosed {
		r.encClosed = true
		if err := r.enc.Close(); err != nil {
			r.log.Warn("unable to close encoder: %v", err)
		}
	}
	if err := r.dec.Close(); err != nil {
		r.log.Warn("unable to close decoder: %v", err)
	}
}
