package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Danohx/modasarita-auth/flow"
	"golang.org/x/term"
)

// terminal prompts for input and renders results. Colour and hidden input are
// only used when the underlying files are terminals.
type terminal struct {
	in      *bufio.Reader
	out     io.Writer
	inFD    int
	colours bool
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	t := &terminal{in: bufio.NewReader(in), out: out, inFD: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.inFD = int(f.Fd())
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.colours = os.Getenv("NO_COLOR") == ""
	}
	return t
}

func (t *terminal) readLine(label string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo on a terminal and falls back to a plain line otherwise.
func (t *terminal) readSecret(label string) (string, error) {
	if t.inFD < 0 {
		return t.readLine(label)
	}
	fmt.Fprintf(t.out, "%s: ", label)
	secret, err := term.ReadPassword(t.inFD)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return string(secret), nil
}

func (t *terminal) paint(colour, s string) string {
	if !t.colours || colour == "" {
		return s
	}
	return colour + s + ResetColor
}

func (t *terminal) success(msg string) {
	fmt.Fprintln(t.out, t.paint(Green, msg))
}

func (t *terminal) failure(msg string) {
	fmt.Fprintln(t.out, t.paint(Red, msg))
}

func (t *terminal) info(msg string) {
	fmt.Fprintln(t.out, t.paint(Yellow, msg))
}

func (t *terminal) field(name, value string) {
	fmt.Fprintf(t.out, "  %-12s %s\n", name+":", value)
}

func (t *terminal) navigated(path string) {
	fmt.Fprintln(t.out, t.paint(Gray, "-> "+path))
}

func (t *terminal) state(s flow.State) {
	fmt.Fprintln(t.out, t.paint(stateColors[s.Kind()], "["+s.Kind().String()+"]"))
}
