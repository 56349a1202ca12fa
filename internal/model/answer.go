package model

// RecordedAnswer is one answer in the session service's ledger.
// SelectedLabel is in canonical label space.
type RecordedAnswer struct {
	QuestionID          int    `json:"questionId" bson:"questionId"`
	SelectedLabel       string `json:"selectedLabel" bson:"selectedLabel"`
	Correct             bool   `json:"correct" bson:"correct"`
	ResponseTimeSeconds int    `json:"responseTimeSeconds" bson:"responseTimeSeconds"`
}

// AnswerSubmission is sent to the session service for the question being answered
type AnswerSubmission struct {
	QuestionID          int    `json:"questionId"`
	Label               string `json:"label"`
	ResponseTimeSeconds int    `json:"responseTimeSeconds"`
}

// SubmitAnswerRequest is the request body for answering the current question
type SubmitAnswerRequest struct {
	Label string `json:"label" validate:"required,len=1"`
}

// SaveDraftRequest is the request body for autosaving the pending selection
type SaveDraftRequest struct {
	Label string `json:"label" validate:"required,len=1"`
}

// JumpRequest is the request body for moving the cursor to a question
type JumpRequest struct {
	Index *int `json:"index" validate:"required"`
}
