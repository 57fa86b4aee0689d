package database

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/term"
)

const maxPasswordAttempts = 3

var ErrPasswordMismatch = xerror.New("passwords did not match")

// Prompter asks the operator for values during setup.
type Prompter interface {
	Ask(label string) (string, error)
	AskSecret(label string) (string, error)
}

// TerminalPrompter reads answers from in. Secrets are read with echo off
// when in is a terminal, and as plain lines otherwise so setup can be
// scripted.
func TerminalPrompter(in *os.File, out io.Writer) Prompter {
	return &terminalPrompter{in: in, lines: bufio.NewReader(in), out: out}
}

type terminalPrompter struct {
	in    *os.File
	lines *bufio.Reader
	out   io.Writer
}

func (p *terminalPrompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return readLine(p.lines)
}

func (p *terminalPrompter) AskSecret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(p.lines)
	}
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func askForAdmin(p Prompter) (string, string, error) {
	name, err := p.Ask("Root admin username")
	if err != nil {
		return "", "", xerror.Errorf("failed to prompt for root username: %w", err)
	}
	if len(name) == 0 {
		return "", "", xerror.New("root admin username must not be empty")
	}

	for attempt := 1; attempt <= maxPasswordAttempts; attempt++ {
		password, err := p.AskSecret("Root admin password")
		if err != nil {
			return "", "", xerror.Errorf("failed to prompt for root password: %w", err)
		}
		repeated, err := p.AskSecret("Repeat root admin password")
		if err != nil {
			return "", "", xerror.Errorf("failed to prompt for root password: %w", err)
		}
		if password == repeated {
			return name, password, nil
		}
		log.Warn("Entered passwords do not match, %d attempts left", maxPasswordAttempts-attempt) //nolint
	}
	return "", "", xerror.Errorf("%w after %d attempts", ErrPasswordMismatch, maxPasswordAttempts)
}
