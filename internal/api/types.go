package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Day selects a briefing.
type Day string

const (
	Yesterday Day = "yesterday"
	Today     Day = "today"
)

// Briefing is the body of /briefing/{day}. Only Text is relied upon.
type Briefing struct {
	Text      string `json:"text"`
	AudioFile string `json:"audio_file,omitempty"`
	Type      string `json:"type,omitempty"`
}

// CommandRequest is the body posted to /command.
type CommandRequest struct {
	Command string `json:"command"`
}

// ParsedCommand is the backend's interpretation of a command, when it sends one.
type ParsedCommand struct {
	Action      string `json:"action"`
	App         string `json:"app,omitempty"`
	Query       string `json:"query,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// CommandResult is the body of /command. Only Result is relied upon.
type CommandResult struct {
	CommandID     int64          `json:"command_id,omitempty"`
	ParsedCommand *ParsedCommand `json:"parsed_command,omitempty"`
	Result        string         `json:"result"`
}

// Status is the body of /status. It is informational only.
type Status struct {
	TotalEvents       int    `json:"total_events"`
	UnprocessedEvents int    `json:"unprocessed_events"`
	TotalThreads      int    `json:"total_threads"`
	TotalBriefings    int    `json:"total_briefings"`
	State             string `json:"status"`
}

// Health is the body of /health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Event is one captured context event. The backend sends database rows,
// either as [id, source, content, timestamp, ...] arrays or as objects.
type Event struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// UnmarshalJSON accepts both the row-array and the object encodings.
func (e *Event) UnmarshalJSON(data []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(data, &row); err == nil {
		if len(row) < 4 {
			return fmt.Errorf("event row has %d columns, want at least 4", len(row))
		}
		var out Event
		if err := json.Unmarshal(row[0], &out.ID); err != nil {
			return fmt.Errorf("event id: %w", err)
		}
		out.Source = rawString(row[1])
		out.Content = rawString(row[2])
		out.Timestamp = rawString(row[3])
		*e = out
		return nil
	}
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Event(p)
	return nil
}

// String formats the event as "[timestamp] source: content".
func (e Event) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp, e.Source, e.Content)
}

// Time parses Timestamp, accepting the sqlite and RFC3339 layouts.
func (e Event) Time() (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", e.Timestamp)
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// EventList is the body of /events.
type EventList struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}

// ThreadList is the body of /threads. Threads are passed through untouched.
type ThreadList struct {
	Threads []json.RawMessage `json:"threads"`
	Count   int               `json:"count"`
}
