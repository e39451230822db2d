package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/auth"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
	"github.com/sayandkrishna/querypilot/pkg/repositories"
)

// historyWindow is how many prior messages are replayed to the generator.
const historyWindow = 6

// conversationTitleLimit bounds titles derived from the first question.
const conversationTitleLimit = 80

// AskRequest represents the request body for a question.
type AskRequest struct {
	Question       string `json:"question"`
	DBName         string `json:"db_name"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

// AskResponse is a resolved question plus the conversation it belongs to.
type AskResponse struct {
	*pipeline.Result
	ConversationID int64 `json:"conversation_id"`
}

// Asker resolves questions. Satisfied by the pipeline.
type Asker interface {
	Ask(ctx context.Context, userID uuid.UUID, dbName, question string, history []models.HistoryTurn) (*pipeline.Result, error)
}

// AskHandler answers natural-language questions and records the exchange.
type AskHandler struct {
	pipeline      Asker
	conversations repositories.ConversationRepository
	logger        *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(p Asker, conversations repositories.ConversationRepository, logger *zap.Logger) *AskHandler {
	return &AskHandler{pipeline: p, conversations: conversations, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /ask", mw.RequireAuth(h.Ask))
	mux.HandleFunc("GET /conversations", mw.RequireAuth(h.ListConversations))
	mux.HandleFunc("GET /conversations/{id}/messages", mw.RequireAuth(h.ConversationMessages))
}

// Ask handles POST /ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	conv, history, err := h.resolveConversation(r, userID, &req)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	result, err := h.pipeline.Ask(r.Context(), userID, req.DBName, req.Question, history)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.recordExchange(r, conv.ID, req.Question, result)

	if err := WriteJSON(w, http.StatusOK, AskResponse{Result: result, ConversationID: conv.ID}); err != nil {
		h.logger.Error("Failed to encode ask response", zap.Error(err))
	}
}

// resolveConversation loads the requested conversation and its recent
// history, or starts a new conversation titled after the question.
func (h *AskHandler) resolveConversation(r *http.Request, userID uuid.UUID, req *AskRequest) (*models.Conversation, []models.HistoryTurn, error) {
	if req.ConversationID != 0 {
		conv, err := h.conversations.GetByID(r.Context(), userID, req.ConversationID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, nil, apperrors.New(apperrors.KindValidation, "conversation not found")
			}
			return nil, nil, err
		}

		msgs, err := h.conversations.RecentMessages(r.Context(), conv.ID, historyWindow)
		if err != nil {
			return nil, nil, err
		}
		history := make([]models.HistoryTurn, 0, len(msgs))
		for _, m := range msgs {
			role := "user"
			if m.Sender != "user" {
				role = "assistant"
			}
			history = append(history, models.HistoryTurn{Role: role, Content: m.Content})
		}
		return conv, history, nil
	}

	title := strings.TrimSpace(req.Question)
	if len(title) > conversationTitleLimit {
		title = title[:conversationTitleLimit]
	}
	conv := &models.Conversation{UserID: userID, Title: title}
	if err := h.conversations.Create(r.Context(), conv); err != nil {
		return nil, nil, err
	}
	return conv, nil, nil
}

// recordExchange persists the question and the answer. Persistence
// failures are logged, not surfaced: the user already has their answer.
func (h *AskHandler) recordExchange(r *http.Request, conversationID int64, question string, result *pipeline.Result) {
	userMsg := &models.Message{
		ConversationID: conversationID,
		Sender:         "user",
		Content:        strings.TrimSpace(question),
	}
	if err := h.conversations.AddMessage(r.Context(), userMsg); err != nil {
		h.logger.Warn("Failed to record user message", zap.Error(err))
		return
	}

	content := result.SQLQuery
	if len(result.Tables) > 0 {
		content = "Tables: " + strings.Join(result.Tables, ", ")
	}
	assistantMsg := &models.Message{
		ConversationID: conversationID,
		Sender:         "assistant",
		Content:        content,
	}
	if err := h.conversations.AddMessage(r.Context(), assistantMsg); err != nil {
		h.logger.Warn("Failed to record assistant message", zap.Error(err))
	}
}

// ListConversations handles GET /conversations.
func (h *AskHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	convs, err := h.conversations.ListByUser(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"conversations": convs}); err != nil {
		h.logger.Error("Failed to encode conversations", zap.Error(err))
	}
}

// ConversationMessages handles GET /conversations/{id}/messages.
func (h *AskHandler) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Conversation id must be an integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if _, err := h.conversations.GetByID(r.Context(), userID, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "No such conversation"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		WriteError(w, h.logger, err)
		return
	}

	msgs, err := h.conversations.RecentMessages(r.Context(), id, 100)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs}); err != nil {
		h.logger.Error("Failed to encode messages", zap.Error(err))
	}
}
