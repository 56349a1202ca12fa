package service

import (
	"context"
	"errors"
	"log"
	"time"

	"examsim/internal/model"
	"examsim/internal/repository"
)

var (
	// ErrNotFinalized is returned when archiving an event that does not close a session
	ErrNotFinalized = errors.New("event does not finalize a session")
	// ErrResultNotFound is returned for sessions the student has no archived result for
	ErrResultNotFound = errors.New("result not found")
)

const defaultHistoryLimit = 20

// ResultService archives finalized sessions and serves a student's history
type ResultService struct {
	resultRepo repository.ResultRepo
}

// NewResultService creates a new result service
func NewResultService(resultRepo repository.ResultRepo) *ResultService {
	return &ResultService{resultRepo: resultRepo}
}

// Archive stores the summary carried by a finalized event
func (s *ResultService) Archive(ctx context.Context, event *model.SessionEvent) error {
	if event.Type != model.EventFinalized || event.SessionID <= 0 {
		return ErrNotFinalized
	}

	finalizedAt := event.At
	if finalizedAt.IsZero() {
		finalizedAt = time.Now()
	}
	return s.resultRepo.Save(ctx, &model.SessionResult{
		StudentID:   event.StudentID,
		SessionID:   event.SessionID,
		SubjectID:   event.SubjectID,
		Questions:   event.Questions,
		Stats:       event.Stats,
		FinalizedAt: finalizedAt,
	})
}

// HandleFinalized is the event bus handler; failures are logged
func (s *ResultService) HandleFinalized(ctx context.Context, event *model.SessionEvent) {
	if err := s.Archive(ctx, event); err != nil {
		log.Printf("[Results] ERROR: archive session %d: %v", event.SessionID, err)
		return
	}
	log.Printf("[Results] archived session %d for student %s", event.SessionID, event.StudentID)
}

// History lists the student's archived sessions, newest first
func (s *ResultService) History(ctx context.Context, studentID string, limit int) ([]*model.SessionResult, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	results, err := s.resultRepo.ListByStudent(ctx, studentID, int64(limit))
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*model.SessionResult{}
	}
	return results, nil
}

// Result returns one archived session. Sessions of other students are
// reported as not found.
func (s *ResultService) Result(ctx context.Context, studentID string, sessionID int) (*model.SessionResult, error) {
	result, err := s.resultRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if result == nil || result.StudentID != studentID {
		return nil, ErrResultNotFound
	}
	return result, nil
}
