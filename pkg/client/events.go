package client

import (
	"bufio"
	"io"
	"strings"
)

const (
	defaultEventType = "message"
	maxEventSize     = 1024 * 1024
)

// event is one server-sent event.
type event struct {
	Type string
	ID   string
	Data string
}

// readEvents reads server-sent events from r, calling dispatch for each complete event.
// Data lines are joined with newlines; comment lines (keepalives) are skipped.
// It returns when r is exhausted or fails.
func readEvents(r io.Reader, dispatch func(event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		data    strings.Builder
		hasData bool
		ev      event
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			// End of event
			if hasData {
				ev.Data = strings.TrimSuffix(data.String(), "\n")
				if ev.Type == "" {
					ev.Type = defaultEventType
				}
				dispatch(ev)
			}
			data.Reset()
			hasData = false
			ev = event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		}
	}
	return scanner.Err()
}
