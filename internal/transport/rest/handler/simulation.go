package handler

import (
	"errors"
	"net/http"
	"strconv"

	"examsim/internal/model"
	"examsim/internal/service"
	"examsim/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// SimulationHandler exposes a student's progress store over HTTP
type SimulationHandler struct {
	stores    *service.StoreRegistry
	resultSvc *service.ResultService
}

// NewSimulationHandler creates a new simulation handler. resultSvc may be nil
// when no result archive is configured.
func NewSimulationHandler(stores *service.StoreRegistry, resultSvc *service.ResultService) *SimulationHandler {
	return &SimulationHandler{
		stores:    stores,
		resultSvc: resultSvc,
	}
}

// StateResponse is the store snapshot sent to the client
type StateResponse struct {
	model.SessionState
	CurrentQuestion *model.RandomizedQuestion `json:"currentQuestion"`
}

// stateResponse hides the answer key of questions not yet answered
func stateResponse(state model.SessionState) *StateResponse {
	answered := make(map[int]bool, len(state.Answers))
	for _, a := range state.Answers {
		answered[a.QuestionID] = true
	}
	if !state.Completed {
		for i := range state.Questions {
			q := &state.Questions[i]
			if answered[q.ID] {
				continue
			}
			q.CorrectAnswer = ""
			q.PresentedCorrect = ""
			q.Explanation = ""
			q.Feedback = ""
		}
	}
	return &StateResponse{
		SessionState:    state,
		CurrentQuestion: state.CurrentQuestion(),
	}
}

func (h *SimulationHandler) store(r *http.Request) *service.ProgressStore {
	return h.stores.Get(middleware.GetStudentID(r.Context()))
}

// Start handles POST /v1/simulation/sessions
func (h *SimulationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := h.store(r)
	if err := store.StartSession(r.Context(), req.SubjectID, req.Options()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, stateResponse(store.State()))
}

// Load handles POST /v1/simulation/sessions/{id}/load
func (h *SimulationHandler) Load(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || sessionID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	store := h.store(r)
	if err := store.LoadSession(r.Context(), sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// State handles GET /v1/simulation/state
func (h *SimulationHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(h.store(r).State()))
}

// Answer handles POST /v1/simulation/answer
func (h *SimulationHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := h.store(r)
	if err := store.SubmitAnswer(r.Context(), req.Label); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// SaveDraft handles PUT /v1/simulation/draft
func (h *SimulationHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req model.SaveDraftRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store(r).SaveDraft(r.Context(), req.Label)
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// GetDraft handles GET /v1/simulation/draft
func (h *SimulationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"draft":     store.Draft(r.Context()),
		"selection": store.RestoreSelection(r.Context()),
	})
}

// Next handles POST /v1/simulation/next
func (h *SimulationHandler) Next(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.Advance()
	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// Prev handles POST /v1/simulation/prev
func (h *SimulationHandler) Prev(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.Retreat()
	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// Jump handles POST /v1/simulation/jump
func (h *SimulationHandler) Jump(w http.ResponseWriter, r *http.Request) {
	var req model.JumpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := h.store(r)
	store.JumpTo(*req.Index)
	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// Pause handles POST /v1/simulation/pause
func (h *SimulationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.Pause(r.Context())
	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// Resume handles POST /v1/simulation/resume
func (h *SimulationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.Resume(r.Context())
	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// Finalize handles POST /v1/simulation/finalize
func (h *SimulationHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if err := store.FinalizeSession(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(store.State()))
}

// Reset handles DELETE /v1/simulation
func (h *SimulationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.stores.Drop(middleware.GetStudentID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// History handles GET /v1/simulation/history
func (h *SimulationHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.resultSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "session history is not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.resultSvc.History(r.Context(), middleware.GetStudentID(r.Context()), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// HistoryEntry handles GET /v1/simulation/history/{id}
func (h *SimulationHandler) HistoryEntry(w http.ResponseWriter, r *http.Request) {
	if h.resultSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "session history is not configured")
		return
	}

	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || sessionID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	result, err := h.resultSvc.Result(r.Context(), middleware.GetStudentID(r.Context()), sessionID)
	if errors.Is(err, service.ErrResultNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
