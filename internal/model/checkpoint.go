package model

import "time"

// Checkpoint is the minimal record needed to resume the cursor after a pause
type Checkpoint struct {
	SessionID     int       `json:"sessionId"`
	QuestionIndex int       `json:"questionIndex"`
	Timestamp     time.Time `json:"timestamp"`
}

// Draft is the autosave record of a session in progress.
// PendingLabel is the presented label selected for PendingQuestionID but not yet submitted.
type Draft struct {
	SessionID         int              `json:"sessionId"`
	QuestionIndex     int              `json:"questionIndex"`
	RecordedAnswers   []RecordedAnswer `json:"recordedAnswers"`
	PendingQuestionID int              `json:"pendingQuestionId,omitempty"`
	PendingLabel      string           `json:"pendingLabel,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}
