package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Prompter asks the user yes/no and pick-one questions. It reads from In and
// writes to Out so tests can drive it without a terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

// NewPrompter returns a Prompter bound to stdin/stdout.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

// Confirm asks a yes/no question. Empty input selects the default.
func (p *Prompter) Confirm(question string, defaultYes bool) (bool, error) {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Fprintf(p.Out, "%s %s ", question, suffix)

	line, err := p.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Choose asks the user to pick one option by number.
// Returns the selected index.
func (p *Prompter) Choose(question string, options []string) (int, error) {
	fmt.Fprintln(p.Out, question)
	for i, opt := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintf(p.Out, "Choice [1-%d]: ", len(options))

	line, err := p.readLine()
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(options) {
		return 0, fmt.Errorf("invalid choice %q", strings.TrimSpace(line))
	}
	return n - 1, nil
}

func (p *Prompter) readLine() (string, error) {
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
