package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tauraamui/idlesqueeze/pkg/degrade"
	"golang.org/x/term"
)

const barWidth = 40

// progressLine redraws a single status line on a terminal and stays
// silent when output is redirected.
type progressLine struct {
	out     io.Writer
	enabled bool
	scaled  int
}

func newProgressLine() *progressLine {
	return &progressLine{
		out:     os.Stdout,
		enabled: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (p *progressLine) StateChanged(_, to degrade.State) {
	if !p.enabled {
		return
	}
	if to == degrade.StateDone || to == degrade.StateFailed {
		fmt.Fprintln(p.out)
	}
}

func (p *progressLine) FrameProcessed(e degrade.FrameEvent) {
	if e.Degraded {
		p.scaled++
	}
}

func (p *progressLine) Progress(percent int) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.out, "\r%s", renderBar(percent, p.scaled))
}

func renderBar(percent, scaled int) string {
	filled := percent * barWidth / 100
	return fmt.Sprintf("[%s%s] %3d%% (%d idle frames scaled)",
		strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), percent, scaled)
}
