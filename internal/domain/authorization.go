package domain

import "time"

// DefaultStateTTL is how long an issued anti-forgery state stays valid.
const DefaultStateTTL = 10 * time.Minute

// AuthorizationAttempt is a pending OAuth attempt keyed by its state value.
type AuthorizationAttempt struct {
	State      string    `json:"state"`
	ShopDomain string    `json:"shop_domain"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the attempt is no longer usable at now.
func (a *AuthorizationAttempt) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// TTL returns the remaining lifetime of the attempt relative to now.
func (a *AuthorizationAttempt) TTL(now time.Time) time.Duration {
	return a.ExpiresAt.Sub(now)
}

// FlowState is a step of the OAuth authorization-code flow.
type FlowState string

const (
	FlowIdle                  FlowState = "idle"
	FlowAwaitingAuthorization FlowState = "awaiting_authorization"
	FlowAwaitingCallback      FlowState = "awaiting_callback"
	FlowExchanging            FlowState = "exchanging"
	FlowConnected             FlowState = "connected"
	FlowFailed                FlowState = "failed"
)

// CallbackParams carries the query of the authorization server's redirect.
type CallbackParams struct {
	Shop  string
	Code  string
	State string
	// RawQuery is the untouched query string, used for HMAC verification.
	RawQuery string
}
