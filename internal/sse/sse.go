// Package sse is the small line-buffered Server-Sent Events reader shared
// by the OpenAI, Anthropic, and Gemini dialect adapters.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is a single parsed Server-Sent Event record.
type Event struct {
	Event string
	Data  string
	ID    string
}

// Reader parses SSE records from an underlying stream one at a time.
type Reader struct {
	scanner *bufio.Scanner
	err     error
}

// NewReader wraps r as an SSE event source.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next event, or io.EOF when the stream ends cleanly.
func (p *Reader) Next() (*Event, error) {
	if p.err != nil {
		return nil, p.err
	}

	event := &Event{}
	var dataLines []string

	for p.scanner.Scan() {
		line := p.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 || event.Event != "" {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment
		}

		colonIdx := strings.IndexByte(line, ':')
		if colonIdx == -1 {
			continue
		}
		field := line[:colonIdx]
		value := strings.TrimPrefix(line[colonIdx+1:], " ")

		switch field {
		case "event":
			event.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			event.ID = value
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.err = err
		return nil, err
	}

	if len(dataLines) > 0 || event.Event != "" {
		event.Data = strings.Join(dataLines, "\n")
		p.err = io.EOF
		return event, nil
	}

	p.err = io.EOF
	return nil, io.EOF
}

// IsDone reports whether data is the OpenAI-style stream terminator.
func IsDone(data string) bool {
	return data == "[DONE]"
}
