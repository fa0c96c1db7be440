package client

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter asks for values on an interactive terminal.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line reads the next line. ok is false at end of input.
func (p *Prompter) Line() (line string, ok bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return p.scanner.Text(), true
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)
	line, _ := p.Line()
	return strings.TrimSpace(line)
}

// AskDefault is Ask with a value used when the answer is empty.
func (p *Prompter) AskDefault(label, def string) string {
	fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	line, _ := p.Line()
	if line = strings.TrimSpace(line); line == "" {
		return def
	}
	return line
}

// AskInt asks for a whole number.
func (p *Prompter) AskInt(label string) (int, error) {
	v := p.Ask(label)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", strings.ToLower(label), v)
	}
	return n, nil
}

// AskList splits a comma-separated answer, dropping empty items.
func (p *Prompter) AskList(label string) []string {
	var out []string
	for _, item := range strings.Split(p.Ask(label), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
