package secrets

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LinePrompter asks on Out and reads one line from In.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{In: in, Out: out, r: bufio.NewReader(in)}
}

func (p *LinePrompter) Prompt(key, current string) (string, error) {
	if p.r == nil {
		p.r = bufio.NewReader(p.In)
	}
	if current != "" {
		fmt.Fprintf(p.Out, "%s [%s]: ", key, current)
	} else {
		fmt.Fprintf(p.Out, "%s: ", key)
	}

	line, err := p.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		if current == "" && err == io.EOF {
			return "", fmt.Errorf("%s: no input", key)
		}
		return current, nil
	}
	return line, nil
}
