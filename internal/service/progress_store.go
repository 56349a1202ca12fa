package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"examsim/internal/cache"
	"examsim/internal/events"
	"examsim/internal/model"
	"examsim/internal/randomize"
)

// ErrStale is returned by a command whose result arrived after Reset
var ErrStale = errors.New("store was reset while the command was in flight")

// ProgressStore holds one student's active simulation session: the randomized
// question list, the server-reconciled answers, the cursor and pause state.
//
// At most one session-service command runs at a time; a second one fails
// with ErrBusy. Local cursor moves are always allowed.
type ProgressStore struct {
	owner       string
	sessions    SessionService
	checkpoints cache.CheckpointCache
	publisher   events.Publisher
	now         func() time.Time

	mu        sync.Mutex
	session   *model.Session
	questions []model.RandomizedQuestion
	answers   []model.RecordedAnswer
	cursor    int
	completed bool
	paused    bool
	loading   bool
	errMsg    string
	gen       uint64
	lastUsed  time.Time
}

// NewProgressStore creates an empty store. checkpoints may be nil, in which
// case pause/resume and autosave keep no durable record.
func NewProgressStore(owner string, sessions SessionService, checkpoints cache.CheckpointCache) *ProgressStore {
	return &ProgressStore{
		owner:       owner,
		sessions:    sessions,
		checkpoints: checkpoints,
		publisher:   events.Discard{},
		now:         time.Now,
		lastUsed:    time.Now(),
	}
}

// SetPublisher sets where state-change events go
func (s *ProgressStore) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.Discard{}
	}
	s.publisher = p
}

// Owner returns the id of the student the store belongs to
func (s *ProgressStore) Owner() string {
	return s.owner
}

// StartSession asks the session service for a new session and randomizes its
// question order and option labels
func (s *ProgressStore) StartSession(ctx context.Context, subjectID int, opts model.StartOptions) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	session, err := s.sessions.CreateSession(ctx, subjectID, opts)
	if err != nil {
		return s.fail(gen, fmt.Errorf("start session: %w", err))
	}

	ordered := randomize.RandomizeQuestions(session.Questions, session.ID)
	questions := randomize.PrepareQuestions(ordered, session.ID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrStale
	}
	s.gen++
	s.session = session
	s.questions = questions
	s.answers = nil
	s.cursor = 0
	s.completed = false
	s.paused = false
	s.loading = false
	s.errMsg = ""
	event := s.eventLocked(model.EventProgress)
	s.mu.Unlock()

	log.Printf("[Progress Store] student %s started session %d (%d questions)", s.owner, session.ID, len(questions))
	s.publisher.Publish(ctx, event)
	return nil
}

// LoadSession resumes a session the service already holds. The server's
// question order is kept as is; only option labels are randomized.
func (s *ProgressStore) LoadSession(ctx context.Context, sessionID int) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	data, err := s.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		return s.fail(gen, fmt.Errorf("load session %d: %w", sessionID, err))
	}
	if data.ID == 0 {
		data.ID = sessionID
	}

	questions := randomize.PrepareQuestions(data.Questions, data.ID)
	session := data.Session

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrStale
	}
	s.gen++
	s.session = &session
	s.questions = questions
	s.answers = reconcileAnswers(data.Answers, questions)
	s.cursor = clampIndex(data.ResumeIndex, len(questions))
	s.completed = data.Completed
	s.paused = false
	s.loading = false
	s.errMsg = ""
	event := s.eventLocked(model.EventProgress)
	s.mu.Unlock()

	log.Printf("[Progress Store] student %s resumed session %d at question %d", s.owner, data.ID, event.Cursor)
	s.publisher.Publish(ctx, event)
	return nil
}

// SubmitAnswer answers the current question with a presented label. The
// label is translated back to canonical form before it is sent, and the
// answer list is then replaced wholesale by the service's ledger.
// Without an active session or current question this is a no-op.
func (s *ProgressStore) SubmitAnswer(ctx context.Context, presentedLabel string) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.session == nil || s.cursor < 0 || s.cursor >= len(s.questions) {
		s.mu.Unlock()
		return nil
	}
	question := s.questions[s.cursor]
	sessionID := s.session.ID
	s.loading = true
	s.errMsg = ""
	s.lastUsed = s.now()
	gen := s.gen
	s.mu.Unlock()

	// response time is the question's budget, not measured time
	sub := model.AnswerSubmission{
		QuestionID:          question.ID,
		Label:               question.ToCanonical(strings.ToUpper(strings.TrimSpace(presentedLabel))),
		ResponseTimeSeconds: question.EstimatedTimeSeconds,
	}

	updated, err := s.sessions.SubmitAnswer(ctx, sessionID, sub)
	if err != nil {
		return s.fail(gen, fmt.Errorf("submit answer: %w", err))
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrStale
	}
	s.answers = reconcileAnswers(updated.Answers, s.questions)
	if !answered(s.answers, sub.QuestionID) {
		log.Printf("[Progress Store] WARN: session %d: service recorded no answer for question %d", sessionID, sub.QuestionID)
	}
	s.session.Score = updated.Score
	s.session.FinishedAt = updated.FinishedAt
	if updated.Completed {
		s.session.Completed = true
		s.completed = true
	}
	s.loading = false
	draft := s.draftLocked("")
	event := s.eventLocked(model.EventProgress)
	s.mu.Unlock()

	s.writeDraft(ctx, draft)
	s.publisher.Publish(ctx, event)
	return nil
}

// Advance moves to the next question; no-op on the last one
func (s *ProgressStore) Advance() {
	s.move(func(cursor, n int) int {
		if cursor < n-1 {
			return cursor + 1
		}
		return cursor
	})
}

// Retreat moves to the previous question; no-op on the first one
func (s *ProgressStore) Retreat() {
	s.move(func(cursor, n int) int {
		if cursor > 0 {
			return cursor - 1
		}
		return cursor
	})
}

// JumpTo moves to index; out-of-range indices are ignored
func (s *ProgressStore) JumpTo(index int) {
	s.move(func(cursor, n int) int {
		if index < 0 || index >= n {
			return cursor
		}
		return index
	})
}

func (s *ProgressStore) move(next func(cursor, n int) int) {
	s.mu.Lock()
	before := s.cursor
	s.cursor = next(s.cursor, len(s.questions))
	changed := s.cursor != before
	s.lastUsed = s.now()
	event := s.eventLocked(model.EventProgress)
	s.mu.Unlock()

	if changed {
		s.publisher.Publish(context.Background(), event)
	}
}

// Pause sets the paused flag and writes a resume checkpoint for the session
func (s *ProgressStore) Pause(ctx context.Context) {
	s.mu.Lock()
	s.paused = true
	var cp *model.Checkpoint
	if s.session != nil {
		cp = &model.Checkpoint{
			SessionID:     s.session.ID,
			QuestionIndex: s.cursor,
			Timestamp:     s.now(),
		}
	}
	event := s.eventLocked(model.EventProgress)
	s.mu.Unlock()

	if cp != nil && s.checkpoints != nil {
		if err := s.checkpoints.SetCheckpoint(ctx, cp); err != nil {
			log.Printf("[Progress Store] WARN: checkpoint for session %d not saved: %v", cp.SessionID, err)
		}
	}
	s.publisher.Publish(ctx, event)
}

// Resume restores the cursor from the session's checkpoint when one exists,
// clears the paused flag and discards the checkpoint
func (s *ProgressStore) Resume(ctx context.Context) {
	s.mu.Lock()
	sessionID := 0
	if s.session != nil {
		sessionID = s.session.ID
	}
	gen := s.gen
	s.mu.Unlock()

	var cp *model.Checkpoint
	if sessionID != 0 && s.checkpoints != nil {
		var err error
		cp, err = s.checkpoints.GetCheckpoint(ctx, sessionID)
		if err != nil {
			log.Printf("[Progress Store] WARN: checkpoint for session %d unreadable: %v", sessionID, err)
			cp = nil
		}
	}

	s.mu.Lock()
	if gen != s.gen {
		// reset or reloaded meanwhile; the checkpoint belongs to the old state
		s.mu.Unlock()
		return
	}
	if cp != nil && s.session != nil && cp.SessionID == s.session.ID &&
		cp.QuestionIndex >= 0 && cp.QuestionIndex < len(s.questions) {
		s.cursor = cp.QuestionIndex
	}
	s.paused = false
	event := s.eventLocked(model.EventProgress)
	s.mu.Unlock()

	if cp != nil {
		if err := s.checkpoints.DeleteCheckpoint(ctx, sessionID); err != nil {
			log.Printf("[Progress Store] WARN: checkpoint for session %d not discarded: %v", sessionID, err)
		}
	}
	s.publisher.Publish(ctx, event)
}

// FinalizeSession marks the session completed. Scoring already happened on
// the server; the service is only notified, and its failures are logged.
func (s *ProgressStore) FinalizeSession(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.session == nil {
		s.mu.Unlock()
		return nil
	}
	s.completed = true
	s.session.Completed = true
	sessionID := s.session.ID
	event := s.eventLocked(model.EventFinalized)
	s.mu.Unlock()

	if err := s.sessions.FinalizeSession(ctx, sessionID); err != nil {
		log.Printf("[Progress Store] WARN: finalize confirmation for session %d failed: %v", sessionID, err)
	}
	if s.checkpoints != nil {
		if err := s.checkpoints.DeleteCheckpoint(ctx, sessionID); err != nil {
			log.Printf("[Progress Store] WARN: checkpoint cleanup for session %d: %v", sessionID, err)
		}
		if err := s.checkpoints.DeleteDraft(ctx, sessionID); err != nil {
			log.Printf("[Progress Store] WARN: draft cleanup for session %d: %v", sessionID, err)
		}
	}

	log.Printf("[Progress Store] student %s finalized session %d (%.0f%% accuracy)", s.owner, sessionID, event.Stats.AccuracyPct)
	s.publisher.Publish(ctx, event)
	return nil
}

// Reset drops all state. Results of commands still in flight are discarded.
func (s *ProgressStore) Reset() {
	s.mu.Lock()
	sessionID := 0
	if s.session != nil {
		sessionID = s.session.ID
	}
	s.gen++
	s.session = nil
	s.questions = nil
	s.answers = nil
	s.cursor = 0
	s.completed = false
	s.paused = false
	s.loading = false
	s.errMsg = ""
	event := s.eventLocked(model.EventReset)
	event.SessionID = sessionID
	s.mu.Unlock()

	s.publisher.Publish(context.Background(), event)
}

// SaveDraft autosaves the pending selection for the current question
func (s *ProgressStore) SaveDraft(ctx context.Context, presentedLabel string) {
	s.mu.Lock()
	if s.session == nil || s.cursor >= len(s.questions) {
		s.mu.Unlock()
		return
	}
	draft := s.draftLocked(strings.ToUpper(strings.TrimSpace(presentedLabel)))
	s.mu.Unlock()

	s.writeDraft(ctx, draft)
}

// RestoreSelection returns the autosaved pending label for the current
// question, or "" when there is none or the question is already answered
func (s *ProgressStore) RestoreSelection(ctx context.Context) string {
	s.mu.Lock()
	if s.session == nil || s.cursor >= len(s.questions) || s.checkpoints == nil {
		s.mu.Unlock()
		return ""
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	draft, err := s.checkpoints.GetDraft(ctx, sessionID)
	if err != nil {
		log.Printf("[Progress Store] WARN: draft for session %d unreadable: %v", sessionID, err)
		return ""
	}
	if draft == nil || draft.PendingLabel == "" {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.ID != draft.SessionID || s.cursor >= len(s.questions) {
		return ""
	}
	current := s.questions[s.cursor]
	if current.ID != draft.PendingQuestionID || answered(s.answers, current.ID) {
		return ""
	}
	return draft.PendingLabel
}

// Draft returns the autosave record of the current session, if any
func (s *ProgressStore) Draft(ctx context.Context) *model.Draft {
	s.mu.Lock()
	if s.session == nil || s.checkpoints == nil {
		s.mu.Unlock()
		return nil
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	draft, err := s.checkpoints.GetDraft(ctx, sessionID)
	if err != nil {
		log.Printf("[Progress Store] WARN: draft for session %d unreadable: %v", sessionID, err)
		return nil
	}
	return draft
}

// SetError overrides the error message shown to the student
func (s *ProgressStore) SetError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

// ClearError drops the current error message
func (s *ProgressStore) ClearError() {
	s.SetError("")
}

// State returns a snapshot of the store
func (s *ProgressStore) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := model.SessionState{
		Questions: append([]model.RandomizedQuestion(nil), s.questions...),
		Answers:   append([]model.RecordedAnswer(nil), s.answers...),
		Cursor:    s.cursor,
		Completed: s.completed,
		Paused:    s.paused,
		Loading:   s.loading,
		Error:     s.errMsg,
		Stats:     model.ComputeStats(s.answers, len(s.questions)),
	}
	if s.session != nil {
		session := *s.session
		session.Questions = nil
		session.Answers = nil
		state.Session = &session
		state.SessionID = session.ID
	}
	return state
}

// CurrentQuestion returns a copy of the question under the cursor, or nil
func (s *ProgressStore) CurrentQuestion() *model.RandomizedQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 || s.cursor >= len(s.questions) {
		return nil
	}
	q := s.questions[s.cursor]
	return &q
}

// LastUsed reports when a command last touched the store
func (s *ProgressStore) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *ProgressStore) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return 0, ErrBusy
	}
	s.loading = true
	s.errMsg = ""
	s.lastUsed = s.now()
	return s.gen, nil
}

func (s *ProgressStore) fail(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return err
	}
	s.loading = false
	s.errMsg = err.Error()
	log.Printf("[Progress Store] ERROR: student %s: %v", s.owner, err)
	return err
}

func (s *ProgressStore) draftLocked(pending string) *model.Draft {
	draft := &model.Draft{
		SessionID:       s.session.ID,
		QuestionIndex:   s.cursor,
		RecordedAnswers: append([]model.RecordedAnswer(nil), s.answers...),
		UpdatedAt:       s.now(),
	}
	if pending != "" && s.cursor < len(s.questions) {
		draft.PendingQuestionID = s.questions[s.cursor].ID
		draft.PendingLabel = pending
	}
	return draft
}

func (s *ProgressStore) writeDraft(ctx context.Context, draft *model.Draft) {
	if s.checkpoints == nil || draft == nil {
		return
	}
	if err := s.checkpoints.SetDraft(ctx, draft); err != nil {
		log.Printf("[Progress Store] WARN: autosave for session %d failed: %v", draft.SessionID, err)
	}
}

func (s *ProgressStore) eventLocked(t model.EventType) *model.SessionEvent {
	event := &model.SessionEvent{
		Type:      t,
		StudentID: s.owner,
		Cursor:    s.cursor,
		Questions: len(s.questions),
		Completed: s.completed,
		Paused:    s.paused,
		Stats:     model.ComputeStats(s.answers, len(s.questions)),
		At:        s.now(),
	}
	if s.session != nil {
		event.SessionID = s.session.ID
		event.SubjectID = s.session.SubjectID
	}
	return event
}

// reconcileAnswers copies the service's ledger, keeping only answers for
// questions in the current list
func reconcileAnswers(ledger []model.RecordedAnswer, questions []model.RandomizedQuestion) []model.RecordedAnswer {
	known := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	out := make([]model.RecordedAnswer, 0, len(ledger))
	for _, a := range ledger {
		if _, ok := known[a.QuestionID]; !ok {
			log.Printf("[Progress Store] WARN: ignoring answer for unknown question %d", a.QuestionID)
			continue
		}
		out = append(out, a)
	}
	return out
}

func answered(answers []model.RecordedAnswer, questionID int) bool {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
