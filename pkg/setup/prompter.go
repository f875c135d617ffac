package setup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter is how the guided flow asks the operator questions. It exists
// as an interface so automated runs and tests can script the answers.
type Prompter interface {
	// Confirm asks a yes/no question; defaultYes controls what a bare
	// enter means.
	Confirm(prompt string, defaultYes bool) bool
	// WaitForEnter blocks until the operator acknowledges.
	WaitForEnter(prompt string)
}

// StdioPrompter reads answers from an input stream, normally stdin.
type StdioPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdioPrompter wires a prompter to the given streams.
func NewStdioPrompter(in io.Reader, out io.Writer) *StdioPrompter {
	return &StdioPrompter{in: bufio.NewReader(in), out: out}
}

func (p *StdioPrompter) Confirm(prompt string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Fprintf(p.out, "%s %s ", prompt, hint)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (p *StdioPrompter) WaitForEnter(prompt string) {
	fmt.Fprintf(p.out, "%s (press enter) ", prompt)
	_, _ = p.in.ReadString('\n')
}
