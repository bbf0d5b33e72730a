package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopify-support-chat/internal/application"
	"shopify-support-chat/internal/domain"

	"github.com/rs/zerolog"
)

const maxChatBody = 256 << 10

type chatRequest struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"history"`
	Shop    string               `json:"shop,omitempty"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	Degraded bool   `json:"degraded,omitempty"`
}

// ChatHandler relays POST /api/chat to the chat service.
type ChatHandler struct {
	chat   *application.ChatService
	logger zerolog.Logger
}

func newChatHandler(chat *application.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be JSON with a message field")
		return
	}

	reply, err := h.chat.SendMessage(r.Context(), application.ChatRequest{
		Message: req.Message,
		History: req.History,
		Shop:    req.Shop,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, chatResponse{Reply: reply.Reply})
	case errors.Is(err, domain.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", "message is required")
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrChatNotConfigured):
		h.logger.Warn().Err(err).Msg("Chat degraded")
		writeJSON(w, http.StatusOK, chatResponse{Reply: application.DegradedReply, Degraded: true})
	default:
		h.logger.Error().Err(err).Msg("Chat failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "chat failed")
	}
}
