package degrade

import "github.com/tauraamui/idlesqueeze/pkg/log"

// State is the lifecycle of a single run. A run moves from Init through
// Streaming and Draining to Done. Failed is reachable from every state
// but Done, Init included when the decoder cannot open or the context is
// already cancelled before the first pair is primed.
type State int

const (
	StateInit State = iota
	StateStreaming
	StateDraining
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// FrameEvent describes one emitted frame.
type FrameEvent struct {
	Index    int
	Active   bool
	IdleTime int
	// ResetIdle is set when motion ended a non-empty idle run.
	ResetIdle bool
	Degraded  bool
	Factor    float64
	Last      bool
}

// Reporter observes a run. All calls happen on the goroutine driving Run.
type Reporter interface {
	StateChanged(from, to State)
	FrameProcessed(FrameEvent)
	Progress(percent int)
}

func NopReporter() Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) StateChanged(State, State)   {}
func (nopReporter) FrameProcessed(FrameEvent) {}
func (nopReporter) Progress(int)              {}

// MultiReporter fans every event out to each of reporters.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) StateChanged(from, to State) {
	for _, r := range m {
		r.StateChanged(from, to)
	}
}

func (m multiReporter) FrameProcessed(e FrameEvent) {
	for _, r := range m {
		r.FrameProcessed(e)
	}
}

func (m multiReporter) Progress(percent int) {
	for _, r := range m {
		r.Progress(percent)
	}
}

// LogReporter writes state changes and every tenth percent to l.
func LogReporter(l log.Logger) Reporter {
	return logReporter{l: l}
}

type logReporter struct {
	l log.Logger
}

func (r logReporter) StateChanged(from, to State) {
	r.l.Debug("pipeline state %s -> %s", from, to)
}

func (r logReporter) FrameProcessed(e FrameEvent) {
	if e.ResetIdle {
		r.l.Debug("motion at frame %d ended idle run", e.Index)
	}
}

func (r logReporter) Progress(percent int) {
	if percent%10 == 0 {
		r.l.Info("processing %d%% complete", percent)
	}
}
