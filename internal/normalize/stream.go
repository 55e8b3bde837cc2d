package normalize

import (
	"bufio"
	"io"
	"strings"

	"lognorm-backend/internal/continuation"
	"lognorm-backend/internal/model"
)

// LineSource yields raw input lines one at a time. Next returns io.EOF
// when the source is exhausted; any other error aborts the stream.
type LineSource interface {
	Next() (string, error)
}

type sliceSource struct {
	lines []string
	pos   int
}

// Lines wraps an in-memory slice as a LineSource.
func Lines(lines []string) LineSource {
	return &sliceSource{lines: lines}
}

func (s *sliceSource) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

type scannerSource struct {
	scanner *bufio.Scanner
}

// ScanLines wraps an io.Reader as a LineSource, splitting on newlines.
func ScanLines(r io.Reader) LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &scannerSource{scanner: sc}
}

func (s *scannerSource) Next() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// chainSource replays a buffered prefix before pulling from the tail.
type chainSource struct {
	head LineSource
	tail LineSource
}

func (c *chainSource) Next() (string, error) {
	if c.head != nil {
		line, err := c.head.Next()
		if err == nil {
			return line, nil
		}
		if err != io.EOF {
			return "", err
		}
		c.head = nil
	}
	return c.tail.Next()
}

// Stream groups raw lines into records using the committed profile's
// continuation rule and emits one normalized event per record. Events
// are produced on demand: nothing past the current record is read
// until Next is called again.
type Stream struct {
	normalizer   *Normalizer
	continuation *continuation.Detector
	source       LineSource
	sourceName   string

	lineNo  int
	pending *model.RawRecord
	err     error
	done    bool
}

func newStream(n *Normalizer, c *continuation.Detector, src LineSource, sourceName string) *Stream {
	return &Stream{
		normalizer:   n,
		continuation: c,
		source:       src,
		sourceName:   sourceName,
	}
}

// Profile returns the frozen profile the stream normalizes against.
func (s *Stream) Profile() *model.FormatProfile {
	return s.normalizer.Profile()
}

// Err reports the first source error, if any. io.EOF is not an error.
func (s *Stream) Err() error {
	return s.err
}

// Next returns the next normalized event. The second return value is
// false once the stream is exhausted or a source error occurred.
func (s *Stream) Next() (model.LogEvent, bool) {
	for !s.done {
		line, err := s.source.Next()
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.err = err
				s.pending = nil
				return model.LogEvent{}, false
			}
			break
		}
		s.lineNo++
		if strings.TrimSpace(line) == "" {
			continue
		}

		if s.pending == nil {
			s.pending = &model.RawRecord{LineNumber: s.lineNo, Lines: []string{line}}
			continue
		}

		prev := s.pending.Lines[len(s.pending.Lines)-1]
		if s.continuation.IsContinuation(s.Profile(), prev, line) {
			s.pending.Lines = append(s.pending.Lines, line)
			continue
		}

		rec := *s.pending
		s.pending = &model.RawRecord{LineNumber: s.lineNo, Lines: []string{line}}
		return s.normalizer.NormalizeRecord(s.sourceName, rec), true
	}

	if s.pending != nil {
		rec := *s.pending
		s.pending = nil
		return s.normalizer.NormalizeRecord(s.sourceName, rec), true
	}
	return model.LogEvent{}, false
}

// Collect drains the stream into a slice. Intended for small inputs
// and tests; large streams should be consumed with Next.
func (s *Stream) Collect() ([]model.LogEvent, error) {
	var events []model.LogEvent
	for {
		ev, ok := s.Next()
		if !ok {
			return events, s.Err()
		}
		events = append(events, ev)
	}
}
