// Package events carries task lifecycle events over NATS JetStream.
//
// Agent runtimes publish completed and failed events; the Consumer feeds them
// to the lifecycle executor. Tasks created by the lifecycle are announced on
// teamlead.task.created.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/randalmurphal/teamlead/internal/task"
)

// EventType defines the type of event.
type EventType string

const (
	// EventCompleted reports a task an agent finished.
	EventCompleted EventType = "completed"
	// EventFailed reports a task an agent could not finish.
	EventFailed EventType = "failed"
	// EventCreated announces a task the lifecycle created.
	EventCreated EventType = "created"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "teamlead.task."

// Subject returns the NATS subject for an event type.
func Subject(t EventType) string {
	return SubjectPrefix + string(t)
}

// Event is the JSON payload of every task event.
type Event struct {
	ID          string       `json:"id,omitempty"`
	Type        EventType    `json:"type"`
	WorkspaceID string       `json:"workspace_id"`
	TaskID      string       `json:"task_id"`
	Result      *task.Result `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	Task        *task.Task   `json:"task,omitempty"`
	Time        time.Time    `json:"time"`
}

// ReportID identifies the event across redeliveries. Publishers that set
// no id are keyed by task and timestamp; an event with neither yields "".
func (e Event) ReportID() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Time.IsZero() {
		return ""
	}
	return e.TaskID + "@" + e.Time.UTC().Format(time.RFC3339Nano)
}

// Decode parses and checks an event payload.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.TaskID == "" {
		return Event{}, fmt.Errorf("decode event: missing task_id")
	}
	switch ev.Type {
	case EventCompleted, EventFailed, EventCreated:
	default:
		return Event{}, fmt.Errorf("decode event: unknown type %q", ev.Type)
	}
	return ev, nil
}
