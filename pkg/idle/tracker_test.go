package idle_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/idlesqueeze/pkg/idle"
	"github.com/tauraamui/idlesqueeze/pkg/motion"
)

var (
	idlePair   = motion.Classification{}
	activePair = motion.Classification{Active: true, Regions: []motion.Region{{Area: 5000}}}
)

func TestTrackerCountsConsecutiveIdlePairs(t *testing.T) {
	is := is.New(t)
	for _, n := range []int{0, 1, 5, 37, 500} {
		tracker := idle.NewTracker(5)
		for i := 0; i < n; i++ {
			tracker.Advance(idlePair)
		}
		is.Equal(tracker.State().IdleTime, n)
	}
}

func TestTrackerResetsOnActivityRegardlessOfRunLength(t *testing.T) {
	is := is.New(t)
	for _, run := range []int{1, 4, 5, 160, 1000} {
		tracker := idle.NewTracker(5)
		for i := 0; i < run; i++ {
			tracker.Advance(idlePair)
		}
		state := tracker.Advance(activePair)
		is.Equal(state.IdleTime, 0)
	}
}

func TestTrackerResumesCountingAfterReset(t *testing.T) {
	is := is.New(t)
	tracker := idle.NewTracker(3)
	tracker.Advance(idlePair)
	tracker.Advance(idlePair)
	tracker.Advance(activePair)
	state := tracker.Advance(idlePair)
	is.Equal(state, idle.State{IdleTime: 1, IdleCriteria: 3})
	is.True(!state.MeetsCriteria())

	tracker.Advance(idlePair)
	is.True(tracker.Advance(idlePair).MeetsCriteria())
}

func TestTrackerResetClearsIdleRun(t *testing.T) {
	is := is.New(t)
	tracker := idle.NewTracker(2)
	tracker.Advance(idlePair)
	tracker.Reset()
	is.Equal(tracker.State().IdleTime, 0)
}
