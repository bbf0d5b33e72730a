package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	"github.com/rs/zerolog"
)

// CallbackPath is the fixed path Shopify redirects to after authorization.
const CallbackPath = "/auth/shopify/callback"

const defaultExchangeTimeout = 15 * time.Second

// OAuthConfig holds the app registration and flow settings.
type OAuthConfig struct {
	AppURL          string
	ClientID        string
	ClientSecret    string
	Scopes          []string
	StateTTL        time.Duration
	ExchangeTimeout time.Duration
	VerifyHMAC      bool
	LandingPath     string
}

// OAuthService drives the authorization-code flow for connecting a shop.
type OAuthService struct {
	cfg         OAuthConfig
	redirectURI string
	provider    ports.OAuthProvider
	states      ports.StateStore
	shops       ports.ShopStore
	metrics     ports.FlowMetrics
	logger      zerolog.Logger
	now         func() time.Time
	onConnect   []func(shop string)
}

// RedirectURIFor derives the callback URL from the public app URL.
// It fails with ErrMisconfiguredAppURL unless appURL is an absolute http(s) URL
// with a host and no query or fragment.
func RedirectURIFor(appURL string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(appURL), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: app url is empty", domain.ErrMisconfiguredAppURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMisconfiguredAppURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", domain.ErrMisconfiguredAppURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", domain.ErrMisconfiguredAppURL)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("%w: must not carry credentials, query or fragment", domain.ErrMisconfiguredAppURL)
	}
	return trimmed + CallbackPath, nil
}

// NewOAuthService validates cfg and creates the flow controller.
// metrics may be nil.
func NewOAuthService(
	cfg OAuthConfig,
	provider ports.OAuthProvider,
	states ports.StateStore,
	shops ports.ShopStore,
	metrics ports.FlowMetrics,
	logger zerolog.Logger,
) (*OAuthService, error) {
	redirectURI, err := RedirectURIFor(cfg.AppURL)
	if err != nil {
		return nil, err
	}
	if cfg.StateTTL <= 0 || cfg.StateTTL > domain.DefaultStateTTL {
		cfg.StateTTL = domain.DefaultStateTTL
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = defaultExchangeTimeout
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/"
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &OAuthService{
		cfg:         cfg,
		redirectURI: redirectURI,
		provider:    provider,
		states:      states,
		shops:       shops,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// RedirectURI is the callback URL that must be registered with Shopify.
func (s *OAuthService) RedirectURI() string { return s.redirectURI }

// AppURL is the configured public base URL.
func (s *OAuthService) AppURL() string { return strings.TrimRight(s.cfg.AppURL, "/") }

// ClientID is the public app client id.
func (s *OAuthService) ClientID() string { return s.cfg.ClientID }

// Configured reports whether app credentials are present.
func (s *OAuthService) Configured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

// LandingURL is where the browser goes after a successful connect.
func (s *OAuthService) LandingURL(shop string) string {
	q := url.Values{}
	q.Set("connected", "1")
	q.Set("shop", shop)
	sep := "?"
	if strings.Contains(s.cfg.LandingPath, "?") {
		sep = "&"
	}
	return s.cfg.LandingPath + sep + q.Encode()
}

// OnConnect registers fn to run after a shop record has been stored.
func (s *OAuthService) OnConnect(fn func(shop string)) {
	s.onConnect = append(s.onConnect, fn)
}

// BeginAuthorization normalizes rawShop, records a fresh anti-forgery state and
// returns the Shopify authorize URL. A new attempt invalidates any pending one
// of the same browser session.
func (s *OAuthService) BeginAuthorization(ctx context.Context, rawShop, sessionID string) (string, error) {
	if !s.Configured() {
		return "", domain.ErrOAuthNotConfigured
	}

	shop, err := domain.NormalizeShop(rawShop)
	if err != nil {
		s.metrics.OAuthOutcome(outcomeLabel(err))
		return "", err
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	now := s.now()
	attempt := &domain.AuthorizationAttempt{
		State:      state,
		ShopDomain: shop,
		SessionID:  sessionID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.StateTTL),
	}
	if err := s.states.Save(ctx, attempt); err != nil {
		return "", fmt.Errorf("failed to save authorization attempt: %w", err)
	}

	s.transition(shop, domain.FlowAwaitingAuthorization)
	s.logger.Info().
		Str("shop", shop).
		Str("redirect_uri", s.redirectURI).
		Time("expires_at", attempt.ExpiresAt).
		Msg("OAuth authorization started")

	return s.provider.AuthorizeURL(shop, state), nil
}

// CompleteAuthorization validates the callback, exchanges the code and persists the grant.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, params domain.CallbackParams) (*domain.ShopRecord, error) {
	s.transition(params.Shop, domain.FlowAwaitingCallback)

	record, err := s.completeAuthorization(ctx, params)
	if err != nil {
		s.transition(params.Shop, domain.FlowFailed)
		s.metrics.OAuthOutcome(outcomeLabel(err))

		event := s.logger.Warn()
		var exErr *domain.TokenExchangeError
		if errors.As(err, &exErr) {
			event = s.logger.Error().Int("status", exErr.StatusCode).Str("body", exErr.Body)
		} else if outcomeLabel(err) == "internal_error" {
			event = s.logger.Error()
		}
		event.Err(err).Str("shop", params.Shop).Msg("OAuth callback failed")
		return nil, err
	}

	s.transition(record.ShopDomain, domain.FlowConnected)
	s.metrics.OAuthOutcome("connected")
	s.logger.Info().EmbedObject(record).Msg("Shop connected")
	for _, fn := range s.onConnect {
		fn(record.ShopDomain)
	}
	return record, nil
}

func (s *OAuthService) completeAuthorization(ctx context.Context, params domain.CallbackParams) (*domain.ShopRecord, error) {
	if !s.Configured() {
		return nil, domain.ErrOAuthNotConfigured
	}

	attempt, err := s.states.Consume(ctx, params.State)
	if err != nil {
		return nil, fmt.Errorf("failed to consume authorization attempt: %w", err)
	}
	if attempt == nil {
		return nil, domain.ErrStateMismatch
	}

	// The callback shop must already be a full provider domain; no lenient normalization.
	shop := strings.ToLower(strings.TrimSpace(params.Shop))
	if !domain.IsValidShopDomain(shop) || shop != attempt.ShopDomain {
		return nil, domain.ErrInvalidShopDomain
	}

	if s.cfg.VerifyHMAC {
		query, err := url.ParseQuery(params.RawQuery)
		if err != nil || !s.provider.VerifyCallback(query) {
			return nil, domain.ErrInvalidCallbackSignature
		}
	}

	if params.Code == "" {
		return nil, domain.ErrMissingCode
	}

	s.transition(shop, domain.FlowExchanging)
	exchangeCtx, cancel := context.WithTimeout(ctx, s.cfg.ExchangeTimeout)
	defer cancel()

	start := s.now()
	grant, err := s.provider.ExchangeCode(exchangeCtx, shop, params.Code)
	s.metrics.ObserveExchange(s.now().Sub(start), err == nil)
	if err != nil {
		var exErr *domain.TokenExchangeError
		if errors.As(err, &exErr) {
			return nil, err
		}
		return nil, &domain.TokenExchangeError{Err: err}
	}
	if grant == nil || grant.AccessToken == "" {
		return nil, &domain.TokenExchangeError{Err: domain.ErrEmptyAccessToken}
	}

	record := &domain.ShopRecord{
		ShopDomain:  shop,
		AccessToken: grant.AccessToken,
		Scope:       grant.Scope,
		ConnectedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.shops.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save shop record: %w", err)
	}
	return record, nil
}

// ListShops returns the domains of all connected shops.
func (s *OAuthService) ListShops(ctx context.Context) ([]string, error) {
	records, err := s.shops.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	domains := make([]string, 0, len(records))
	for _, r := range records {
		domains = append(domains, r.ShopDomain)
	}
	return domains, nil
}

func (s *OAuthService) transition(shop string, state domain.FlowState) {
	s.metrics.FlowTransition(state)
	s.logger.Debug().Str("shop", shop).Str("flow_state", string(state)).Msg("OAuth flow transition")
}

// generateState returns 32 hex characters from crypto/rand.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidShopIdentifier):
		return "invalid_shop_identifier"
	case errors.Is(err, domain.ErrStateMismatch):
		return "state_mismatch"
	case errors.Is(err, domain.ErrInvalidShopDomain):
		return "invalid_shop_domain"
	case errors.Is(err, domain.ErrInvalidCallbackSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, domain.ErrTokenExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, domain.ErrOAuthNotConfigured):
		return "not_configured"
	default:
		return "internal_error"
	}
}

type nopMetrics struct{}

func (nopMetrics) FlowTransition(domain.FlowState)     {}
func (nopMetrics) OAuthOutcome(string)                 {}
func (nopMetrics) ObserveExchange(time.Duration, bool) {}
func (nopMetrics) ChatOutcome(string)                  {}
