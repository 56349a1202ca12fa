package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"examsim/internal/model"

	"github.com/google/uuid"
)

// SessionClient calls the simulation REST backend.
// It makes exactly one attempt per call; retry policy belongs to callers.
type SessionClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewSessionClient creates a client. token is used when the request context
// carries no per-student token.
func NewSessionClient(baseURL, token string, timeout time.Duration) *SessionClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SessionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// wireQuestion is a question as the backend serializes it
type wireQuestion struct {
	ID            int               `json:"id"`
	Prompt        string            `json:"enunciado"`
	Context       string            `json:"contexto"`
	Options       map[string]string `json:"opciones"`
	ImageURL      *string           `json:"imagen_url"`
	CorrectAnswer string            `json:"respuesta_correcta"`
	Explanation   string            `json:"explicacion"`
	Feedback      string            `json:"retroalimentacion"`
	Difficulty    string            `json:"dificultad"`
	EstimatedTime int               `json:"tiempo_estimado"`
	Tags          []string          `json:"tags"`
	Order         int               `json:"orden"`
}

// wireSlot links a question to a session, with the answer once given
type wireSlot struct {
	ID           int          `json:"id"`
	Question     wireQuestion `json:"pregunta"`
	Answer       *string      `json:"respuesta_estudiante"`
	Correct      *bool        `json:"es_correcta"`
	ResponseTime *int         `json:"tiempo_respuesta"`
	Order        int          `json:"orden"`
}

// wireSession is the backend's session serializer
type wireSession struct {
	ID         int             `json:"id"`
	Subject    json.RawMessage `json:"materia"`
	Template   json.RawMessage `json:"plantilla"`
	Slots      []wireSlot      `json:"preguntas_sesion"`
	StartedAt  *time.Time      `json:"fecha_inicio"`
	FinishedAt *time.Time      `json:"fecha_fin"`
	Completed  bool            `json:"completada"`
	Score      int             `json:"puntuacion"`
}

// wireExistingAnswer is an answer already recorded in a resumed session
type wireExistingAnswer struct {
	QuestionID   int    `json:"pregunta"`
	Answer       string `json:"respuesta"`
	Correct      bool   `json:"es_correcta"`
	ResponseTime int    `json:"tiempo_respuesta"`
	Order        int    `json:"orden"`
}

// wireResume is the payload of the load-for-resume endpoint
type wireResume struct {
	ID          int                  `json:"id"`
	Subject     json.RawMessage      `json:"materia"`
	Template    json.RawMessage      `json:"plantilla"`
	StartedAt   *time.Time           `json:"fecha_inicio"`
	Completed   bool                 `json:"completada"`
	Score       int                  `json:"puntuacion"`
	Questions   []wireQuestion       `json:"preguntas_sesion"`
	Answers     []wireExistingAnswer `json:"respuestas_existentes"`
	ResumeIndex int                  `json:"siguiente_pregunta_index"`
}

type wireConflict struct {
	Detail string `json:"detail"`
	Active struct {
		ID       int    `json:"id"`
		Subject  string `json:"materia"`
		Progress struct {
			Total    int     `json:"total"`
			Answered int     `json:"respondidas"`
			Percent  float64 `json:"porcentaje"`
		} `json:"progreso"`
	} `json:"sesion_activa"`
}

type wireCreateRequest struct {
	Subject       int  `json:"materia"`
	QuestionCount int  `json:"cantidad_preguntas,omitempty"`
	Template      int  `json:"plantilla,omitempty"`
	ForceRestart  bool `json:"forzar_reinicio"`
}

type wireAnswerRequest struct {
	QuestionID   int    `json:"pregunta_id,omitempty"`
	Answer       string `json:"respuesta"`
	ResponseTime int    `json:"tiempo_respuesta"`
}

type wireFinalizeRequest struct {
	Force bool `json:"forzar_finalizacion"`
}

// doRequest performs one HTTP round trip and returns the body of a 2xx answer
func (c *SessionClient) doRequest(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	token := AccessToken(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Printf("[Session Client] %s %s (request %s)", method, path, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Session Client] ERROR: HTTP request failed: %v", err)
		return 0, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Session Client] ERROR: Failed to read response body: %v", err)
		return resp.StatusCode, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		log.Printf("[Session Client] ERROR: API returned %d for %s %s", resp.StatusCode, method, path)
		return resp.StatusCode, respBody, &ServiceError{Status: resp.StatusCode, Detail: detailOf(respBody)}
	}

	return resp.StatusCode, respBody, nil
}

// CreateSession allocates a session for a subject
func (c *SessionClient) CreateSession(ctx context.Context, subjectID int, opts model.StartOptions) (*model.Session, error) {
	payload := wireCreateRequest{
		Subject:       subjectID,
		QuestionCount: opts.QuestionCount,
		Template:      opts.TemplateID,
		ForceRestart:  opts.ForceRestart,
	}

	status, respBody, err := c.doRequest(ctx, http.MethodPost, "/simulacion/sesiones/iniciar_sesion/", payload)
	if status == http.StatusConflict {
		var conflict wireConflict
		if jsonErr := json.Unmarshal(respBody, &conflict); jsonErr != nil {
			return nil, err
		}
		return nil, &SessionActiveError{
			Message: conflict.Detail,
			Active: model.ActiveSessionInfo{
				ID:      conflict.Active.ID,
				Subject: conflict.Active.Subject,
				Progress: model.Progress{
					Total:    conflict.Active.Progress.Total,
					Answered: conflict.Active.Progress.Answered,
					Percent:  conflict.Active.Progress.Percent,
				},
			},
		}
	}
	if err != nil {
		return nil, err
	}

	return decodeSession(respBody)
}

// LoadSession fetches a session in progress with its resume position
func (c *SessionClient) LoadSession(ctx context.Context, sessionID int) (*model.SessionResumeData, error) {
	path := fmt.Sprintf("/simulacion/sesiones/%d/cargar_sesion/", sessionID)
	_, respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var w wireResume
	if err := json.Unmarshal(respBody, &w); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	data := &model.SessionResumeData{
		Session: model.Session{
			ID:         w.ID,
			SubjectID:  idOf(w.Subject),
			TemplateID: idOf(w.Template),
			Completed:  w.Completed,
			Score:      w.Score,
			Questions:  make([]model.Question, 0, len(w.Questions)),
			Answers:    make([]model.RecordedAnswer, 0, len(w.Answers)),
		},
		ResumeIndex: w.ResumeIndex,
	}
	if w.StartedAt != nil {
		data.StartedAt = *w.StartedAt
	}
	for _, q := range w.Questions {
		data.Questions = append(data.Questions, q.toModel())
	}
	for _, a := range w.Answers {
		data.Answers = append(data.Answers, model.RecordedAnswer{
			QuestionID:          a.QuestionID,
			SelectedLabel:       a.Answer,
			Correct:             a.Correct,
			ResponseTimeSeconds: a.ResponseTime,
		})
	}
	return data, nil
}

// SubmitAnswer records an answer and returns the whole updated session
func (c *SessionClient) SubmitAnswer(ctx context.Context, sessionID int, sub model.AnswerSubmission) (*model.Session, error) {
	path := fmt.Sprintf("/simulacion/sesiones/%d/responder_pregunta/", sessionID)
	payload := wireAnswerRequest{
		QuestionID:   sub.QuestionID,
		Answer:       sub.Label,
		ResponseTime: sub.ResponseTimeSeconds,
	}
	_, respBody, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	return decodeSession(respBody)
}

// FinalizeSession asks the backend to close the session
func (c *SessionClient) FinalizeSession(ctx context.Context, sessionID int) error {
	path := fmt.Sprintf("/simulacion/sesiones/%d/finalizar_sesion/", sessionID)
	_, _, err := c.doRequest(ctx, http.MethodPost, path, wireFinalizeRequest{})
	return err
}

func decodeSession(body []byte) (*model.Session, error) {
	var w wireSession
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	s := &model.Session{
		ID:         w.ID,
		SubjectID:  idOf(w.Subject),
		TemplateID: idOf(w.Template),
		Completed:  w.Completed,
		Score:      w.Score,
		FinishedAt: w.FinishedAt,
		Questions:  make([]model.Question, 0, len(w.Slots)),
		Answers:    make([]model.RecordedAnswer, 0),
	}
	if w.StartedAt != nil {
		s.StartedAt = *w.StartedAt
	}
	for _, slot := range w.Slots {
		s.Questions = append(s.Questions, slot.Question.toModel())
		if slot.Answer == nil || *slot.Answer == "" {
			continue
		}
		a := model.RecordedAnswer{
			QuestionID:    slot.Question.ID,
			SelectedLabel: *slot.Answer,
		}
		if slot.Correct != nil {
			a.Correct = *slot.Correct
		}
		if slot.ResponseTime != nil {
			a.ResponseTimeSeconds = *slot.ResponseTime
		}
		s.Answers = append(s.Answers, a)
	}
	return s, nil
}

func (q wireQuestion) toModel() model.Question {
	out := model.Question{
		ID:                   q.ID,
		Prompt:               q.Prompt,
		Context:              q.Context,
		Options:              q.Options,
		CorrectAnswer:        q.CorrectAnswer,
		Difficulty:           model.Difficulty(q.Difficulty),
		EstimatedTimeSeconds: q.EstimatedTime,
		Tags:                 q.Tags,
		Explanation:          q.Explanation,
		Feedback:             q.Feedback,
	}
	if q.ImageURL != nil {
		out.ImageURL = *q.ImageURL
	}
	if out.Options == nil {
		out.Options = map[string]string{}
	}
	return out
}

// idOf reads a foreign key serialized either as a bare id or as {"id": n}
func idOf(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var id int
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return 0
}

func detailOf(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
