package osutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks questions on an output and reads answers from an input.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd of the input when it is a terminal, -1 otherwise
	fd int
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// StdPrompter prompts on stderr so stdout stays clean for output.
func StdPrompter() *Prompter {
	return NewPrompter(os.Stdin, os.Stderr)
}

// Line asks for a line of input, trimmed.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password asks for a secret without echoing it when the input is a
// terminal.
func (p *Prompter) Password(prompt string) (string, error) {
	if p.fd < 0 {
		return p.Line(prompt)
	}
	fmt.Fprint(p.out, prompt)
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
