package degrade_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tauraamui/idlesqueeze/pkg/degrade"
)

type capturingLogger struct {
	lines []string
}

func (c *capturingLogger) Debug(format string, a ...interface{}) {
	c.lines = append(c.lines, "DEBUG "+fmt.Sprintf(format, a...))
}
func (c *capturingLogger) Info(format string, a ...interface{}) {
	c.lines = append(c.lines, "INFO "+fmt.Sprintf(format, a...))
}
func (c *capturingLogger) Warn(format string, a ...interface{}) {
	c.lines = append(c.lines, "WARN "+fmt.Sprintf(format, a...))
}
func (c *capturingLogger) Error(format string, a ...interface{}) {
	c.lines = append(c.lines, "ERROR "+fmt.Sprintf(format, a...))
}

func TestMultiReporterFansOut(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	r := degrade.MultiReporter(a, b, degrade.NopReporter())

	r.StateChanged(degrade.StateInit, degrade.StateStreaming)
	r.FrameProcessed(degrade.FrameEvent{Index: 4})
	r.Progress(12)

	for _, rec := range []*recordingReporter{a, b} {
		assert.Equal(t, []degrade.State{degrade.StateStreaming}, rec.states)
		assert.Len(t, rec.events, 1)
		assert.Equal(t, []int{12}, rec.percents)
	}
}

func TestLogReporterLogsEveryTenthPercent(t *testing.T) {
	logger := &capturingLogger{}
	r := degrade.LogReporter(logger)

	for p := 1; p <= 20; p++ {
		r.Progress(p)
	}
	r.StateChanged(degrade.StateStreaming, degrade.StateDraining)
	r.FrameProcessed(degrade.FrameEvent{Index: 9, ResetIdle: true})

	assert.Equal(t, []string{
		"INFO processing 10% complete",
		"INFO processing 20% complete",
		"DEBUG pipeline state streaming -> draining",
		"DEBUG motion at frame 9 ended idle run",
	}, logger.lines)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "init", degrade.StateInit.String())
	assert.Equal(t, "failed", degrade.StateFailed.String())
	assert.Equal(t, "unknown", degrade.State(42).String())
}
