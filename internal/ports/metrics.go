package ports

import (
	"time"

	"shopify-support-chat/internal/domain"
)

// FlowMetrics records OAuth and chat outcomes.
type FlowMetrics interface {
	FlowTransition(state domain.FlowState)
	OAuthOutcome(outcome string)
	ObserveExchange(elapsed time.Duration, success bool)
	ChatOutcome(outcome string)
}
