package model

import "time"

// Session is the session service's view of one simulation session
type Session struct {
	ID         int              `json:"id" bson:"sessionId"`
	SubjectID  int              `json:"subjectId" bson:"subjectId"`
	TemplateID int              `json:"templateId,omitempty" bson:"templateId,omitempty"`
	Completed  bool             `json:"completed" bson:"completed"`
	Score      int              `json:"score" bson:"score"`
	StartedAt  time.Time        `json:"startedAt" bson:"startedAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	Questions  []Question       `json:"-" bson:"-"` // server order
	Answers    []RecordedAnswer `json:"-" bson:"-"`
}

// SessionResumeData is returned when an existing session is loaded for resumption
type SessionResumeData struct {
	Session
	ResumeIndex int `json:"resumeIndex"`
}

// StartOptions are the optional parameters for allocating a session
type StartOptions struct {
	QuestionCount int  `json:"questionCount,omitempty"`
	TemplateID    int  `json:"templateId,omitempty"`
	ForceRestart  bool `json:"forceRestart,omitempty"`
}

// StartSessionRequest is the request body for starting a session
type StartSessionRequest struct {
	SubjectID     int  `json:"subjectId" validate:"required,gt=0"`
	QuestionCount int  `json:"questionCount,omitempty" validate:"omitempty,min=5,max=50"`
	TemplateID    int  `json:"templateId,omitempty" validate:"omitempty,gt=0"`
	ForceRestart  bool `json:"forceRestart,omitempty"`
}

// Options converts the request into StartOptions
func (r *StartSessionRequest) Options() StartOptions {
	return StartOptions{
		QuestionCount: r.QuestionCount,
		TemplateID:    r.TemplateID,
		ForceRestart:  r.ForceRestart,
	}
}

// ActiveSessionInfo describes the session that blocked a new one from starting
type ActiveSessionInfo struct {
	ID       int      `json:"id"`
	Subject  string   `json:"subject"`
	Progress Progress `json:"progress"`
}

// Progress is the server-computed progress of a session
type Progress struct {
	Total    int     `json:"total"`
	Answered int     `json:"answered"`
	Percent  float64 `json:"percent"`
}

// Stats are derived from the recorded answers and the question count
type Stats struct {
	Correct       int     `json:"correct" bson:"correct"`
	Incorrect     int     `json:"incorrect" bson:"incorrect"`
	Total         int     `json:"total" bson:"total"`
	CompletionPct float64 `json:"completionPct" bson:"completionPct"`
	AccuracyPct   float64 `json:"accuracyPct" bson:"accuracyPct"`
}

// ComputeStats recomputes statistics from scratch
func ComputeStats(answers []RecordedAnswer, questionCount int) Stats {
	s := Stats{Total: len(answers)}
	for _, a := range answers {
		if a.Correct {
			s.Correct++
		}
	}
	s.Incorrect = s.Total - s.Correct
	if questionCount > 0 {
		s.CompletionPct = float64(s.Total) / float64(questionCount) * 100
	}
	if s.Total > 0 {
		s.AccuracyPct = float64(s.Correct) / float64(s.Total) * 100
	}
	return s
}

// SessionState is a read-only snapshot of a progress store
type SessionState struct {
	SessionID int                  `json:"sessionId"`
	Session   *Session             `json:"session"`
	Questions []RandomizedQuestion `json:"questions"`
	Answers   []RecordedAnswer     `json:"answers"`
	Cursor    int                  `json:"cursor"`
	Completed bool                 `json:"completed"`
	Paused    bool                 `json:"paused"`
	Loading   bool                 `json:"loading"`
	Error     string               `json:"error,omitempty"`
	Stats     Stats                `json:"stats"`
}

// CurrentQuestion returns the question under the cursor, or nil
func (s *SessionState) CurrentQuestion() *RandomizedQuestion {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Cursor]
}
