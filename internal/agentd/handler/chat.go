package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/agentd/llm"
	"github.com/askdb/askdb/internal/agentd/memory"
	"github.com/askdb/askdb/internal/agentd/response"
	"github.com/askdb/askdb/internal/agentd/userdb"
	"github.com/askdb/askdb/internal/domain"
)

// ChatHandler handles turn submission and history endpoints
type ChatHandler struct {
	history  memory.History
	userDB   *userdb.Service
	provider llm.Provider
	validate *validator.Validate
}

func NewChatHandler(history memory.History, userDB *userdb.Service, provider llm.Provider) *ChatHandler {
	return &ChatHandler{
		history:  history,
		userDB:   userDB,
		provider: provider,
		validate: validator.New(),
	}
}

// chartPattern marks inline chart payloads the model may embed in its
// answer: CHART_JSON_START{...}CHART_JSON_END.
var chartPattern = regexp.MustCompile(`(?s)CHART_JSON_START(.*?)CHART_JSON_END`)

// Chat handles one conversation turn
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, "query is required")
		return
	}

	session := req.SessionID
	if session == "" {
		session = domain.NewSessionToken()
	}

	history, err := h.history.Messages(r.Context(), session)
	if err != nil {
		log.Error().Err(err).Msg("failed to load history for prompt context")
		history = nil
	}

	result, err := h.provider.GenerateSQL(r.Context(), llm.Request{
		Question:  req.Query,
		SchemaDDL: h.userDB.SchemaDDL(r.Context(), session),
		History:   history,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", h.provider.Name()).Msg("generation failed")
		response.InternalError(w, "failed to generate a response")
		return
	}

	answer, chartData := extractChart(result.Explanation)

	h.appendHistory(r.Context(), session,
		domain.HistoryMessage{Role: string(domain.RoleUser), Content: req.Query},
		domain.HistoryMessage{Role: string(domain.RoleAssistant), Content: answer},
	)

	response.OK(w, domain.TurnResponse{
		Answer:           answer,
		SessionID:        session,
		ChartData:        chartData,
		SQLQuery:         result.SQL,
		RequiresApproval: result.SQL != "",
	})
}

// History returns the persisted turns for a session
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session_id")
	if session == "" {
		response.BadRequest(w, "session_id is required")
		return
	}

	msgs, err := h.history.Messages(r.Context(), session)
	if err != nil {
		log.Error().Err(err).Msg("failed to load history")
		response.InternalError(w, "failed to load history")
		return
	}

	if msgs == nil {
		msgs = []domain.HistoryMessage{}
	}
	response.OK(w, domain.HistoryResponse{Messages: msgs, Count: len(msgs)})
}

func (h *ChatHandler) appendHistory(ctx context.Context, session string, msgs ...domain.HistoryMessage) {
	if err := h.history.Append(ctx, session, msgs...); err != nil {
		// Log and continue: losing history must not fail the turn.
		log.Error().Err(err).Msg("failed to append history")
	}
}

// extractChart pulls an embedded chart payload out of the answer text and
// returns the cleaned answer.
func extractChart(answer string) (string, []domain.ChartPoint) {
	m := chartPattern.FindStringSubmatch(answer)
	if m == nil {
		return answer, nil
	}

	var payload struct {
		Data []domain.ChartPoint `json:"data"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		log.Warn().Err(err).Msg("dropping malformed chart payload")
		return chartPattern.ReplaceAllString(answer, ""), nil
	}
	return chartPattern.ReplaceAllString(answer, ""), payload.Data
}
