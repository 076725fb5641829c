// Package reflection exposes the pipeline's REST endpoints.
package reflection

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/pipeline"
	"github.com/medlens/reflection/backend/internal/service/session"
	"github.com/medlens/reflection/backend/pkg/utils"
)

const defaultRounds = 3

// Handler serves session submission and result retrieval.
type Handler struct {
	svc *pipeline.Service
}

// New creates the reflection handler.
func New(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the reflection endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/reflection", h.handleSubmit)
	r.Get("/reflection/{sessionID}", h.handleResult)
	r.Get("/evaluation/{sessionID}", h.handleEvaluation)
	r.Get("/prioritization/{sessionID}", h.handlePrioritization)
	r.Get("/sessions", h.handleSessions)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query     string `json:"query"`
		MaxRounds int    `json:"maxRounds"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.MaxRounds == 0 {
		payload.MaxRounds = defaultRounds
	}

	sess, err := h.svc.Submit(r.Context(), payload.Query, payload.MaxRounds)
	if err != nil {
		if errors.Is(err, session.ErrEmptyQuery) || errors.Is(err, session.ErrInvalidRounds) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{
		"sessionId": sess.ID,
		"status":    string(sess.Status),
		"message":   "Reflection analysis has been queued for processing",
	})
}

// resultResponse is the reflection result payload. Stage fields are zero
// until the corresponding stage has produced output.
type resultResponse struct {
	model.Session
	DiscussionRounds    int                      `json:"discussionRounds"`
	MedicalInsights     []string                 `json:"medicalInsights"`
	EngineeringInsights []string                 `json:"engineeringInsights"`
	Needs               []model.NeedRecord       `json:"needs"`
	FullConversation    []model.ConversationTurn `json:"fullConversation"`
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.svc.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	resp := resultResponse{
		Session:             sess,
		MedicalInsights:     []string{},
		EngineeringInsights: []string{},
		Needs:               []model.NeedRecord{},
		FullConversation:    []model.ConversationTurn{},
	}

	if result, ok, _ := h.svc.Discussion(sessionID); ok {
		resp.DiscussionRounds = result.Rounds
		resp.MedicalInsights = result.MedicalInsights
		resp.EngineeringInsights = result.EngineeringInsights
		resp.FullConversation = result.Conversation
	}
	if records, ok, _ := h.svc.Needs(sessionID); ok {
		resp.Needs = records
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.svc.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	report, ok, _ := h.svc.Evaluation(sessionID)
	if !ok {
		h.respondStageMissing(w, sess, "evaluation")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId":        sessionID,
		"status":           "completed",
		"evaluations":      report.Evaluations,
		"summary":          report.Summary,
		"topPriorityNeeds": report.TopPriorityNeeds,
	})
}

func (h *Handler) handlePrioritization(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.svc.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	report, ok, _ := h.svc.Prioritization(sessionID)
	if !ok {
		h.respondStageMissing(w, sess, "prioritization")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId":        sessionID,
		"status":           "completed",
		"prioritizedNeeds": report.PrioritizedNeeds,
		"rankingCriteria":  report.RankingCriteria,
		"recommendations":  report.Recommendations,
	})
}

// respondStageMissing distinguishes "still running" from "never produced".
func (h *Handler) respondStageMissing(w http.ResponseWriter, sess model.Session, stage string) {
	if !sess.Status.Terminal() {
		utils.RespondJSON(w, http.StatusAccepted, map[string]string{
			"status":  string(sess.Status),
			"message": stage + " is still processing",
		})
		return
	}
	if sess.Status == model.StatusError {
		utils.RespondError(w, http.StatusInternalServerError, stage+" failed: "+sess.Error)
		return
	}
	utils.RespondError(w, http.StatusNotFound, stage+" not available")
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.svc.List()

	summaries := make(map[string]any, len(sessions))
	for _, sess := range sessions {
		query := sess.Query
		if len(query) > 100 {
			query = query[:100] + "..."
		}
		_, hasEvaluation, _ := h.svc.Evaluation(sess.ID)
		_, hasPrioritization, _ := h.svc.Prioritization(sess.ID)
		summaries[sess.ID] = map[string]any{
			"status":            sess.Status,
			"query":             query,
			"createdAt":         sess.CreatedAt,
			"hasEvaluation":     hasEvaluation,
			"hasPrioritization": hasPrioritization,
		}
	}

	utils.RespondJSON(w, http.StatusOK, summaries)
}
