package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"examsim/internal/cache"
	"examsim/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeSessions struct {
	mu        sync.Mutex
	questions []model.Question
	sessionID int
	resume    *model.SessionResumeData
	ledger    []model.RecordedAnswer
	submitted []model.AnswerSubmission
	finalized []int
	recordAs  int // when set, answers are recorded against this question
	err       error
	block     chan struct{}
	entered   chan struct{}
}

func (f *fakeSessions) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeSessions) CreateSession(ctx context.Context, subjectID int, opts model.StartOptions) (*model.Session, error) {
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	return &model.Session{
		ID:        f.sessionID,
		SubjectID: subjectID,
		StartedAt: time.Now(),
		Questions: append([]model.Question(nil), f.questions...),
	}, nil
}

func (f *fakeSessions) LoadSession(ctx context.Context, sessionID int) (*model.SessionResumeData, error) {
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	return f.resume, nil
}

func (f *fakeSessions) SubmitAnswer(ctx context.Context, sessionID int, sub model.AnswerSubmission) (*model.Session, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, sub)
	questionID := sub.QuestionID
	if f.recordAs != 0 {
		questionID = f.recordAs
	}
	f.ledger = append(f.ledger, model.RecordedAnswer{
		QuestionID:          questionID,
		SelectedLabel:       sub.Label,
		Correct:             sub.Label == "A",
		ResponseTimeSeconds: sub.ResponseTimeSeconds,
	})
	return &model.Session{
		ID:        sessionID,
		Completed: len(f.ledger) >= len(f.questions),
		Answers:   append([]model.RecordedAnswer(nil), f.ledger...),
	}, nil
}

func (f *fakeSessions) FinalizeSession(ctx context.Context, sessionID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, sessionID)
	return f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event *model.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) last() *model.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

// all questions have canonical correct answer "A"
func testQuestions(n int) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{
			ID:     i + 1,
			Prompt: "question",
			Options: map[string]string{
				"A": "right", "B": "wrong 1", "C": "wrong 2", "D": "wrong 3",
			},
			CorrectAnswer:        "A",
			EstimatedTimeSeconds: 60 + i,
		}
	}
	return out
}

func newTestStore(t *testing.T, f *fakeSessions) (*ProgressStore, *miniredis.Miniredis, *recordingPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewProgressStore("42", f, cache.NewCheckpointCache(client, 0))
	pub := &recordingPublisher{}
	store.SetPublisher(pub)
	return store, mr, pub
}

func startedStore(t *testing.T) (*ProgressStore, *fakeSessions, *miniredis.Miniredis, *recordingPublisher) {
	t.Helper()
	f := &fakeSessions{questions: testQuestions(5), sessionID: 2003}
	store, mr, pub := newTestStore(t, f)
	if err := store.StartSession(context.Background(), 7, model.StartOptions{}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return store, f, mr, pub
}

func TestStartSessionRandomizesOrderAndOptions(t *testing.T) {
	store, _, _, pub := startedStore(t)
	state := store.State()

	want := []int{5, 3, 4, 2, 1}
	if len(state.Questions) != len(want) {
		t.Fatalf("got %d questions, want %d", len(state.Questions), len(want))
	}
	for i, q := range state.Questions {
		if q.ID != want[i] {
			t.Errorf("position %d: got question %d, want %d", i, q.ID, want[i])
		}
		if q.PresentedCorrect != q.Mapping["A"] {
			t.Errorf("question %d: presented correct %q does not match mapping of A (%q)", q.ID, q.PresentedCorrect, q.Mapping["A"])
		}
		if q.PresentedOptions[q.PresentedCorrect] != "right" {
			t.Errorf("question %d: presented correct option text = %q", q.ID, q.PresentedOptions[q.PresentedCorrect])
		}
	}
	if state.Cursor != 0 || state.Completed || state.Paused || state.Loading {
		t.Errorf("unexpected fresh state: %+v", state)
	}
	if state.SessionID != 2003 || state.Session.SubjectID != 7 {
		t.Errorf("session = %+v", state.Session)
	}
	if ev := pub.last(); ev == nil || ev.Type != model.EventProgress || ev.Questions != 5 {
		t.Errorf("last event = %+v", ev)
	}
}

func TestStartSessionClearsPreviousAnswers(t *testing.T) {
	store, f, _, _ := startedStore(t)
	ctx := context.Background()

	current := store.CurrentQuestion()
	if err := store.SubmitAnswer(ctx, current.PresentedCorrect); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	store.Advance()

	f.sessionID = 2004
	if err := store.StartSession(ctx, 7, model.StartOptions{ForceRestart: true}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	state := store.State()
	if len(state.Answers) != 0 || state.Cursor != 0 || state.SessionID != 2004 {
		t.Errorf("restart left state behind: answers=%d cursor=%d session=%d", len(state.Answers), state.Cursor, state.SessionID)
	}
}

func TestSubmitAnswerTranslatesPresentedLabel(t *testing.T) {
	store, f, _, _ := startedStore(t)
	current := store.CurrentQuestion()

	if err := store.SubmitAnswer(context.Background(), strings.ToLower(current.PresentedCorrect)); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if len(f.submitted) != 1 {
		t.Fatalf("got %d submissions, want 1", len(f.submitted))
	}
	sub := f.submitted[0]
	if sub.Label != "A" {
		t.Errorf("sent label %q, want canonical A", sub.Label)
	}
	if sub.QuestionID != current.ID {
		t.Errorf("sent question %d, want %d", sub.QuestionID, current.ID)
	}
	if sub.ResponseTimeSeconds != current.EstimatedTimeSeconds {
		t.Errorf("sent response time %d, want %d", sub.ResponseTimeSeconds, current.EstimatedTimeSeconds)
	}

	state := store.State()
	if len(state.Answers) != 1 || !state.Answers[0].Correct {
		t.Fatalf("answers = %+v", state.Answers)
	}
	if state.Stats.Correct != 1 || state.Stats.Incorrect != 0 {
		t.Errorf("stats = %+v", state.Stats)
	}
	if state.Stats.CompletionPct != 20 || state.Stats.AccuracyPct != 100 {
		t.Errorf("percentages = %v / %v", state.Stats.CompletionPct, state.Stats.AccuracyPct)
	}
}

func TestSubmitAnswerReplacesLedgerWholesale(t *testing.T) {
	store, f, _, _ := startedStore(t)

	// answers the server already knew about, one for a question not in the list
	f.ledger = []model.RecordedAnswer{
		{QuestionID: 1, SelectedLabel: "B", Correct: false},
		{QuestionID: 99, SelectedLabel: "A", Correct: true},
	}
	current := store.CurrentQuestion()
	wrong := ""
	for label := range current.PresentedOptions {
		if label != current.PresentedCorrect {
			wrong = label
			break
		}
	}
	if err := store.SubmitAnswer(context.Background(), wrong); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	state := store.State()
	if len(state.Answers) != 2 {
		t.Fatalf("got %d answers, want 2: %+v", len(state.Answers), state.Answers)
	}
	for _, a := range state.Answers {
		if a.QuestionID == 99 {
			t.Errorf("answer for unknown question kept")
		}
	}
	if state.Stats.Correct != 0 || state.Stats.Incorrect != 2 || state.Stats.AccuracyPct != 0 {
		t.Errorf("stats = %+v", state.Stats)
	}
}

func TestSubmitAnswerKeepsServerLedgerWhenRecordedElsewhere(t *testing.T) {
	store, f, _, _ := startedStore(t)
	current := store.CurrentQuestion()
	other := 1
	if current.ID == other {
		other = 2
	}
	f.recordAs = other

	if err := store.SubmitAnswer(context.Background(), current.PresentedCorrect); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	state := store.State()
	if len(state.Answers) != 1 || state.Answers[0].QuestionID != other {
		t.Fatalf("answers = %+v, want the service's record for question %d", state.Answers, other)
	}
	if answered(state.Answers, current.ID) {
		t.Errorf("question %d reported answered", current.ID)
	}
}

func TestSubmitAnswerAdoptsServerCompletion(t *testing.T) {
	store, _, _, _ := startedStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		current := store.CurrentQuestion()
		if err := store.SubmitAnswer(ctx, current.PresentedCorrect); err != nil {
			t.Fatalf("SubmitAnswer %d: %v", i, err)
		}
		store.Advance()
	}
	state := store.State()
	if !state.Completed {
		t.Errorf("expected store to adopt server completion")
	}
	if state.Stats.CompletionPct != 100 {
		t.Errorf("completion = %v", state.Stats.CompletionPct)
	}
}

func TestSubmitAnswerWithoutSessionIsNoop(t *testing.T) {
	f := &fakeSessions{questions: testQuestions(5), sessionID: 2003}
	store, _, _ := newTestStore(t, f)

	if err := store.SubmitAnswer(context.Background(), "A"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if len(f.submitted) != 0 {
		t.Errorf("service called without a session")
	}
}

func TestNavigationStaysInBounds(t *testing.T) {
	store, _, _, _ := startedStore(t)

	store.Retreat()
	if got := store.State().Cursor; got != 0 {
		t.Errorf("retreat at start: cursor = %d", got)
	}
	for i := 0; i < 10; i++ {
		store.Advance()
	}
	if got := store.State().Cursor; got != 4 {
		t.Errorf("advance past end: cursor = %d", got)
	}

	tests := []struct {
		jump int
		want int
	}{
		{2, 2},
		{-1, 2},
		{5, 2},
		{0, 0},
		{4, 4},
	}
	for _, tt := range tests {
		store.JumpTo(tt.jump)
		if got := store.State().Cursor; got != tt.want {
			t.Errorf("JumpTo(%d): cursor = %d, want %d", tt.jump, got, tt.want)
		}
	}
}

func TestNavigationWithoutQuestions(t *testing.T) {
	store, _, _ := newTestStore(t, &fakeSessions{})

	store.Advance()
	store.Retreat()
	store.JumpTo(0)
	store.JumpTo(3)
	if got := store.State().Cursor; got != 0 {
		t.Errorf("cursor = %d, want 0", got)
	}
	if store.CurrentQuestion() != nil {
		t.Errorf("expected no current question")
	}
}

func TestPauseResumeRestoresCursor(t *testing.T) {
	store, _, mr, _ := startedStore(t)
	ctx := context.Background()

	store.JumpTo(3)
	store.Pause(ctx)
	if !store.State().Paused {
		t.Fatalf("expected paused")
	}
	if !mr.Exists("simulation:2003:checkpoint") {
		t.Fatalf("checkpoint not written")
	}

	store.Advance()
	store.Resume(ctx)

	state := store.State()
	if state.Paused {
		t.Errorf("still paused after resume")
	}
	if state.Cursor != 3 {
		t.Errorf("cursor = %d, want 3", state.Cursor)
	}
	if mr.Exists("simulation:2003:checkpoint") {
		t.Errorf("checkpoint not discarded")
	}
}

func TestResumeIgnoresOutOfRangeCheckpoint(t *testing.T) {
	store, _, mr, _ := startedStore(t)
	ctx := context.Background()

	store.JumpTo(2)
	mr.Set("simulation:2003:checkpoint", `{"sessionId":2003,"questionIndex":99}`)
	store.Resume(ctx)

	if got := store.State().Cursor; got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
	if mr.Exists("simulation:2003:checkpoint") {
		t.Errorf("checkpoint not discarded")
	}
}

// hookedCheckpoints runs beforeGet ahead of every checkpoint read
type hookedCheckpoints struct {
	cache.CheckpointCache
	beforeGet func()
}

func (c *hookedCheckpoints) GetCheckpoint(ctx context.Context, sessionID int) (*model.Checkpoint, error) {
	if c.beforeGet != nil {
		c.beforeGet()
	}
	return c.CheckpointCache.GetCheckpoint(ctx, sessionID)
}

func TestResumeAfterResetKeepsCheckpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	checkpoints := &hookedCheckpoints{CheckpointCache: cache.NewCheckpointCache(client, 0)}
	store := NewProgressStore("42", &fakeSessions{questions: testQuestions(5), sessionID: 2003}, checkpoints)
	ctx := context.Background()
	if err := store.StartSession(ctx, 7, model.StartOptions{}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	store.JumpTo(3)
	store.Pause(ctx)
	checkpoints.beforeGet = store.Reset
	store.Resume(ctx)

	state := store.State()
	if state.Cursor != 0 || state.SessionID != 0 {
		t.Errorf("cursor %d session %d restored into a reset store", state.Cursor, state.SessionID)
	}
	if !mr.Exists("simulation:2003:checkpoint") {
		t.Errorf("checkpoint of the previous session was discarded")
	}
}

func TestPauseWithoutSession(t *testing.T) {
	store, mr, _ := newTestStore(t, &fakeSessions{})
	ctx := context.Background()

	store.Pause(ctx)
	if !store.State().Paused {
		t.Errorf("expected paused flag")
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("unexpected keys written: %v", keys)
	}
	store.Resume(ctx)
	if store.State().Paused {
		t.Errorf("expected resume to clear the flag")
	}
}

func TestBusyRejectsConcurrentCommands(t *testing.T) {
	f := &fakeSessions{
		questions: testQuestions(5),
		sessionID: 2003,
		block:     make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	store, _, _ := newTestStore(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- store.StartSession(ctx, 7, model.StartOptions{})
	}()
	<-f.entered

	if !store.State().Loading {
		t.Errorf("expected loading while the command is in flight")
	}
	if err := store.LoadSession(ctx, 1); !errors.Is(err, ErrBusy) {
		t.Errorf("LoadSession: got %v, want ErrBusy", err)
	}
	if err := store.StartSession(ctx, 7, model.StartOptions{}); !errors.Is(err, ErrBusy) {
		t.Errorf("StartSession: got %v, want ErrBusy", err)
	}

	close(f.block)
	if err := <-done; err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if store.State().Loading {
		t.Errorf("still loading after completion")
	}
}

func TestResetDiscardsInflightResult(t *testing.T) {
	f := &fakeSessions{
		questions: testQuestions(5),
		sessionID: 2003,
		block:     make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	store, _, pub := newTestStore(t, f)

	done := make(chan error, 1)
	go func() {
		done <- store.StartSession(context.Background(), 7, model.StartOptions{})
	}()
	<-f.entered

	store.Reset()
	if ev := pub.last(); ev == nil || ev.Type != model.EventReset {
		t.Errorf("last event = %+v, want reset", ev)
	}
	close(f.block)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("got %v, want ErrStale", err)
	}
	state := store.State()
	if state.Session != nil || len(state.Questions) != 0 || state.Loading {
		t.Errorf("reset state overwritten: %+v", state)
	}
}

func TestServiceErrorIsSurfaced(t *testing.T) {
	active := &SessionActiveError{
		Message: "active session exists",
		Active:  model.ActiveSessionInfo{ID: 11, Subject: "Matemáticas"},
	}
	f := &fakeSessions{err: active}
	store, _, _ := newTestStore(t, f)

	err := store.StartSession(context.Background(), 7, model.StartOptions{})
	var got *SessionActiveError
	if !errors.As(err, &got) || got.Active.ID != 11 {
		t.Fatalf("got %v, want SessionActiveError for session 11", err)
	}

	state := store.State()
	if state.Loading {
		t.Errorf("still loading after failure")
	}
	if state.Error == "" {
		t.Errorf("expected an error message")
	}
	if state.Session != nil {
		t.Errorf("session set after failure")
	}

	store.ClearError()
	if store.State().Error != "" {
		t.Errorf("ClearError did not clear")
	}
}

func TestLoadSessionKeepsServerOrder(t *testing.T) {
	questions := testQuestions(5)
	tests := []struct {
		name        string
		resumeIndex int
		wantCursor  int
	}{
		{"in range", 2, 2},
		{"past end", 10, 4},
		{"negative", -3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeSessions{
				questions: questions,
				resume: &model.SessionResumeData{
					Session: model.Session{
						ID:        2003,
						SubjectID: 7,
						Questions: questions,
						Answers: []model.RecordedAnswer{
							{QuestionID: 1, SelectedLabel: "A", Correct: true},
							{QuestionID: 2, SelectedLabel: "C", Correct: false},
						},
					},
					ResumeIndex: tt.resumeIndex,
				},
			}
			store, _, _ := newTestStore(t, f)
			if err := store.LoadSession(context.Background(), 2003); err != nil {
				t.Fatalf("LoadSession: %v", err)
			}

			state := store.State()
			for i, q := range state.Questions {
				if q.ID != i+1 {
					t.Errorf("position %d: got question %d", i, q.ID)
				}
			}
			if state.Cursor != tt.wantCursor {
				t.Errorf("cursor = %d, want %d", state.Cursor, tt.wantCursor)
			}
			if state.Stats.Correct != 1 || state.Stats.Incorrect != 1 || state.Stats.CompletionPct != 40 {
				t.Errorf("stats = %+v", state.Stats)
			}
		})
	}
}

func TestFinalizeSession(t *testing.T) {
	store, f, mr, pub := startedStore(t)
	ctx := context.Background()

	store.Pause(ctx)
	f.err = errors.New("backend down")
	if err := store.FinalizeSession(ctx); err != nil {
		t.Fatalf("FinalizeSession: %v", err)
	}

	if !store.State().Completed {
		t.Errorf("expected completed")
	}
	if len(f.finalized) != 1 || f.finalized[0] != 2003 {
		t.Errorf("finalized = %v", f.finalized)
	}
	if mr.Exists("simulation:2003:checkpoint") {
		t.Errorf("checkpoint survived finalize")
	}
	if ev := pub.last(); ev == nil || ev.Type != model.EventFinalized || ev.SessionID != 2003 {
		t.Errorf("last event = %+v", ev)
	}
}

func TestFinalizeWithoutSessionIsNoop(t *testing.T) {
	f := &fakeSessions{}
	store, _, _ := newTestStore(t, f)

	if err := store.FinalizeSession(context.Background()); err != nil {
		t.Fatalf("FinalizeSession: %v", err)
	}
	if len(f.finalized) != 0 || store.State().Completed {
		t.Errorf("finalize without a session had effects")
	}
}

func TestDraftRestore(t *testing.T) {
	store, _, _, _ := startedStore(t)
	ctx := context.Background()

	current := store.CurrentQuestion()
	store.SaveDraft(ctx, current.PresentedCorrect)
	if got := store.RestoreSelection(ctx); got != current.PresentedCorrect {
		t.Errorf("RestoreSelection = %q, want %q", got, current.PresentedCorrect)
	}

	store.Advance()
	if got := store.RestoreSelection(ctx); got != "" {
		t.Errorf("selection restored on another question: %q", got)
	}
	store.Retreat()

	if err := store.SubmitAnswer(ctx, current.PresentedCorrect); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if got := store.RestoreSelection(ctx); got != "" {
		t.Errorf("selection restored after submit: %q", got)
	}

	draft := store.Draft(ctx)
	if draft == nil || draft.SessionID != 2003 || len(draft.RecordedAnswers) != 1 {
		t.Errorf("draft = %+v", draft)
	}
}
