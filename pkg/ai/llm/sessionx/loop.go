package sessionx

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// InputSource feeds user input into a session loop. Next blocks until a
// line of input is available and returns io.EOF when the stream ends.
// Input may come from a terminal, a socket, or a test harness; the loop
// does not care.
type InputSource interface {
	Next() (string, error)
}

// ReaderSource adapts any io.Reader into an InputSource, one line per turn
type ReaderSource struct {
	scanner *bufio.Scanner
}

// NewReaderSource wraps a reader (typically os.Stdin)
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{scanner: bufio.NewScanner(r)}
}

func (r *ReaderSource) Next() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// SliceSource feeds a fixed list of inputs, then io.EOF. Useful in tests.
type SliceSource struct {
	inputs []string
	next   int
}

// NewSliceSource builds a source over the given inputs
func NewSliceSource(inputs ...string) *SliceSource {
	return &SliceSource{inputs: inputs}
}

func (s *SliceSource) Next() (string, error) {
	if s.next >= len(s.inputs) {
		return "", io.EOF
	}
	line := s.inputs[s.next]
	s.next++
	return line, nil
}

// Loop runs the interactive session until the input source ends or the
// termination sentinel arrives. Every reply is handed to out. Blank lines
// are skipped. Failures are returned to the caller untouched; the loop
// never retries on its own.
func (s *Session) Loop(ctx context.Context, in InputSource, out func(reply string)) error {
	for {
		line, err := in.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == s.sentinel {
			return nil
		}

		reply, err := s.Respond(ctx, line)
		if err != nil {
			return err
		}
		out(reply)
	}
}
