package application

import (
	"context"
	"errors"
	"strings"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	"github.com/rs/zerolog"
)

// maxHistoryTurns bounds how much prior conversation is forwarded.
const maxHistoryTurns = 20

const systemPrompt = "You are a friendly customer support assistant for an online store. " +
	"Answer helpfully and briefly. When asked about orders, refunds or shipping, " +
	"explain that you need the order number and the email used at checkout to look it up. " +
	"Keep a warm, professional tone."

// DegradedReply is shown to the user when the completion provider cannot answer.
const DegradedReply = "Sorry, I can't reach our assistant right now. Please try again in a moment."

// ChatRequest is one user turn plus prior history.
type ChatRequest struct {
	Message string
	History []domain.ChatMessage
	Shop    string
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Reply string
}

// ChatService relays chat turns to the completion provider.
type ChatService struct {
	provider ports.CompletionProvider
	stores   *StoreContextLoader
	metrics  ports.FlowMetrics
	logger   zerolog.Logger
}

// NewChatService creates the relay. provider may be nil when no API key is
// configured; stores and metrics may be nil.
func NewChatService(provider ports.CompletionProvider, stores *StoreContextLoader, metrics ports.FlowMetrics, logger zerolog.Logger) *ChatService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ChatService{
		provider: provider,
		stores:   stores,
		metrics:  metrics,
		logger:   logger,
	}
}

// SendMessage builds the prompt and returns the provider's reply.
func (s *ChatService) SendMessage(ctx context.Context, req ChatRequest) (ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.metrics.ChatOutcome("empty_message")
		return ChatReply{}, domain.ErrEmptyMessage
	}
	if s.provider == nil {
		s.metrics.ChatOutcome("not_configured")
		return ChatReply{}, domain.ErrChatNotConfigured
	}

	var storeContext string
	if req.Shop != "" && s.stores != nil {
		storeContext = s.stores.Load(ctx, req.Shop)
	}

	reply, err := s.provider.Complete(ctx, BuildPrompt(message, req.History, storeContext))
	if err != nil {
		s.metrics.ChatOutcome("upstream_unavailable")
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = errors.Join(domain.ErrUpstreamUnavailable, err)
		}
		return ChatReply{}, err
	}

	s.metrics.ChatOutcome("ok")
	s.logger.Debug().
		Str("shop", req.Shop).
		Int("history", len(req.History)).
		Bool("store_context", storeContext != "").
		Msg("Chat reply sent")

	return ChatReply{Reply: reply}, nil
}

// BuildPrompt assembles the system prompt, optional store context, the most
// recent history turns and the new user message.
func BuildPrompt(message string, history []domain.ChatMessage, storeContext string) []domain.ChatMessage {
	system := systemPrompt
	if storeContext != "" {
		system += "\n\nStore information:\n" + storeContext
	}

	turns := make([]domain.ChatMessage, 0, len(history))
	for _, h := range history {
		if h.Role != domain.RoleUser && h.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		turns = append(turns, h)
	}
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}

	out := make([]domain.ChatMessage, 0, len(turns)+2)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	out = append(out, turns...)
	out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: message})
	return out
}
