package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidShopIdentifier    = errors.New("invalid shop identifier")
	ErrStateMismatch            = errors.New("invalid or expired state")
	ErrInvalidShopDomain        = errors.New("invalid shop domain")
	ErrTokenExchangeFailed      = errors.New("token exchange failed")
	ErrMisconfiguredAppURL      = errors.New("misconfigured app url")
	ErrUpstreamUnavailable      = errors.New("upstream unavailable")
	ErrInvalidCallbackSignature = errors.New("invalid callback signature")
	ErrMissingCode              = errors.New("missing authorization code")
	ErrOAuthNotConfigured       = errors.New("shopify app not configured")
	ErrChatNotConfigured        = errors.New("chat provider not configured")
	ErrEmptyMessage             = errors.New("message is empty")
	ErrEmptyAccessToken         = errors.New("access token cannot be empty")
)

// TokenExchangeError describes a failed code-for-token exchange.
// StatusCode is 0 when no HTTP response was received.
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed: status %d, body: %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return "token exchange failed"
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrTokenExchangeFailed.
func (e *TokenExchangeError) Is(target error) bool {
	return target == ErrTokenExchangeFailed
}
