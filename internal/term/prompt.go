package term

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var ErrInputClosed = errors.New("term: input closed while waiting")

const promptText = "Press ENTER to continue."

// Prompt blocks until a line is entered. The content of the line is
// ignored.
type Prompt struct {
	r *bufio.Reader
	w io.Writer
}

// NewPrompt returns a prompt reading lines from r and writing the request
// to w.
func NewPrompt(r io.Reader, w io.Writer) *Prompt {
	return &Prompt{r: bufio.NewReader(r), w: w}
}

// Wait prints the request and reads one line. It returns ErrInputClosed if
// the input ends before anything is read.
func (p *Prompt) Wait() error {
	if _, err := fmt.Fprint(p.w, promptText); err != nil {
		return err
	}
	line, err := p.r.ReadString('\n')
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if line == "" {
			return ErrInputClosed
		}
		return nil
	default:
		return fmt.Errorf("term: read line: %w", err)
	}
}
