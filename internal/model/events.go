package model

import "time"

// EventType names a session lifecycle event
type EventType string

const (
	EventProgress  EventType = "progress"
	EventFinalized EventType = "finalized"
	EventReset     EventType = "reset"
)

// SessionEvent is published after a store changes state
type SessionEvent struct {
	Type      EventType `json:"type"`
	StudentID string    `json:"studentId"`
	SessionID int       `json:"sessionId"`
	SubjectID int       `json:"subjectId,omitempty"`
	Cursor    int       `json:"cursor"`
	Questions int       `json:"questions"`
	Completed bool      `json:"completed"`
	Paused    bool      `json:"paused"`
	Stats     Stats     `json:"stats"`
	At        time.Time `json:"at"`
}
