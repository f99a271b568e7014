package campaign

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks the operator. It is only used during startup.
type Prompter interface {
	Ask(question string) (string, error)
	Confirm(question string) (bool, error)
}

type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewStdinPrompter() Prompter {
	return NewLinePrompter(os.Stdin, os.Stdout)
}

func NewLinePrompter(in io.Reader, out io.Writer) Prompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

func (p *linePrompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *linePrompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
