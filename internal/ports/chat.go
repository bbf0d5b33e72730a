package ports

import (
	"context"

	"shopify-support-chat/internal/domain"
)

// CompletionProvider produces a reply from an external text-generation API.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}
