package destination

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// LinePrompter asks on out and reads answers from in. An empty answer means
// no; anything other than y/yes/n/no asks again.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter reuses in when it is already a *bufio.Reader, so callers can
// share one buffer between prompts and later readers.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [y/N] ", question)
		line, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			if err != nil && err != io.EOF {
				return false, err
			}
			return false, nil
		}
		if err != nil {
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// TerminalPrompter returns a prompter bound to stdin/stdout, or nil when stdin
// is not a terminal.
func TerminalPrompter() Prompter {
	if !IsTerminal(os.Stdin) {
		return nil
	}
	return NewLinePrompter(os.Stdin, os.Stdout)
}
