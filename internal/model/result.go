package model

import "time"

// SessionResult is the archived summary of a finalized session
type SessionResult struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	StudentID   string    `json:"studentId" bson:"studentId"`
	SessionID   int       `json:"sessionId" bson:"sessionId"`
	SubjectID   int       `json:"subjectId" bson:"subjectId"`
	Questions   int       `json:"questions" bson:"questions"`
	Stats       Stats     `json:"stats" bson:"stats"`
	FinalizedAt time.Time `json:"finalizedAt" bson:"finalizedAt"`
}
