package idle

import "github.com/tauraamui/idlesqueeze/pkg/motion"

// State is a snapshot of a tracker. IdleTime counts consecutive idle
// frame pairs, IdleCriteria is how many must pass before degrading.
type State struct {
	IdleTime     int
	IdleCriteria int
}

func (s State) MeetsCriteria() bool {
	return s.IdleTime >= s.IdleCriteria
}

type Tracker struct {
	idleTime     int
	idleCriteria int
}

func NewTracker(idleCriteria int) *Tracker {
	return &Tracker{idleCriteria: idleCriteria}
}

// Advance resets the idle run on activity and extends it by one otherwise.
func (t *Tracker) Advance(cls motion.Classification) State {
	if cls.Active {
		t.idleTime = 0
	} else {
		t.idleTime++
	}
	return t.State()
}

func (t *Tracker) State() State {
	return State{IdleTime: t.idleTime, IdleCriteria: t.idleCriteria}
}

func (t *Tracker) Reset() {
	t.idleTime = 0
}
