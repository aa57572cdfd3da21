package dilemmas

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxReasoningLen     = 4000
)

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// fail writes err with the status StatusFor picks. Server errors are logged
// and hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		utils.WriteError(w, status, "internal error")
		return
	}
	utils.WriteError(w, status, err.Error())
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := utils.GetSessionIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "missing session")
	}
	return id, ok
}

func (h *Handler) ListDilemmas(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.ListDilemmas(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, ds)
}

func (h *Handler) GetDilemma(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.Store().GetDilemma(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	latest, err := h.svc.Store().LatestAIResponse(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, DilemmaWithAI{Dilemma: *d, AIResponse: latest})
}

// AIResponse returns the current AI response, generating one on first use or
// when ?force=true.
func (h *Handler) AIResponse(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	resp, err := h.svc.GetOrCreateResponse(r.Context(), chi.URLParam(r, "id"), nil, force)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if resp.Fallback {
		w.Header().Set("X-Data-Status", "fallback")
	}
	utils.WriteJSON(w, resp)
}

func (h *Handler) AIResponseHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	if _, err := h.svc.Store().GetDilemma(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.svc.Store().AIResponseHistory(r.Context(), id, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, history)
}

func (h *Handler) Percentages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Store().GetDilemma(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	pct, err := h.svc.CommunityPercentages(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, pct)
}

func (h *Handler) FrameworkDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.svc.FrameworkDistribution(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, dist)
}

func (h *Handler) SaveResponse(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	var input struct {
		DilemmaID string `json:"dilemma_id"`
		OptionID  string `json:"option_id"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.DilemmaID = strings.TrimSpace(input.DilemmaID)
	input.OptionID = strings.TrimSpace(input.OptionID)
	if input.DilemmaID == "" || input.OptionID == "" {
		utils.WriteError(w, http.StatusBadRequest, "dilemma_id and option_id are required")
		return
	}
	if len(input.Reasoning) > maxReasoningLen {
		utils.WriteError(w, http.StatusBadRequest, "reasoning is too long")
		return
	}

	resp := &UserResponse{
		SessionID: session,
		DilemmaID: input.DilemmaID,
		OptionID:  input.OptionID,
		Reasoning: input.Reasoning,
	}
	if err := h.svc.SaveUserResponse(r.Context(), resp); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, resp)
}

func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	responses, err := h.svc.Store().ListUserResponses(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, responses)
}

func (h *Handler) SaveScore(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	var input struct {
		HumanScore *int `json:"human_score"`
		AIScore    *int `json:"ai_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.HumanScore == nil || input.AIScore == nil {
		utils.WriteError(w, http.StatusBadRequest, "human_score and ai_score are required")
		return
	}

	cs := &ConsistencyScore{SessionID: session, HumanScore: *input.HumanScore, AIScore: *input.AIScore}
	if err := h.svc.SaveConsistencyScore(r.Context(), cs); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, cs)
}

func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	cs, err := h.svc.Store().GetConsistencyScore(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if cs == nil {
		utils.WriteError(w, http.StatusNotFound, "no score for this session")
		return
	}
	utils.WriteJSON(w, cs)
}

func (h *Handler) Comparison(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Compare(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, c)
}
