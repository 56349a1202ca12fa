package service

import (
	"context"
	"errors"
	"fmt"

	"examsim/internal/model"
)

var (
	ErrBusy               = errors.New("another session command is still in flight")
	ErrServiceUnavailable = errors.New("session service unavailable")
	ErrSessionNotFound    = errors.New("session not found")
)

// SessionService is the authoritative backend that allocates sessions,
// records answers and scores them
type SessionService interface {
	CreateSession(ctx context.Context, subjectID int, opts model.StartOptions) (*model.Session, error)
	LoadSession(ctx context.Context, sessionID int) (*model.SessionResumeData, error)
	SubmitAnswer(ctx context.Context, sessionID int, sub model.AnswerSubmission) (*model.Session, error)
	FinalizeSession(ctx context.Context, sessionID int) error
}

// SessionActiveError is returned when the subject already has a session in
// progress and a restart was not forced
type SessionActiveError struct {
	Message string
	Active  model.ActiveSessionInfo
}

func (e *SessionActiveError) Error() string {
	return fmt.Sprintf("session %d already active: %s", e.Active.ID, e.Message)
}

// ServiceError is a non-2xx answer from the session service
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("session service error %d: %s", e.Status, e.Detail)
}

// Unwrap lets callers test 5xx answers against ErrServiceUnavailable
func (e *ServiceError) Unwrap() error {
	if e.Status >= 500 {
		return ErrServiceUnavailable
	}
	if e.Status == 404 {
		return ErrSessionNotFound
	}
	return nil
}

type accessTokenKey struct{}

// WithAccessToken attaches the token used to call the session service on
// behalf of the current student
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken
func AccessToken(ctx context.Context) string {
	if v, ok := ctx.Value(accessTokenKey{}).(string); ok {
		return v
	}
	return ""
}
