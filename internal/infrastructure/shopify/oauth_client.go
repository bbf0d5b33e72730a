package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	authorizePath   = "/admin/oauth/authorize"
	accessTokenPath = "/admin/oauth/access_token"

	// maxErrorBody caps the upstream body kept for diagnostics.
	maxErrorBody = 512
)

// OAuthClientConfig holds the app credentials used for the install flow.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURI  string
	// ExchangeTimeout bounds a single token exchange.
	ExchangeTimeout time.Duration
	// HTTPClient overrides the client used for the token exchange.
	HTTPClient *http.Client
	// ShopBaseURL maps a shop domain to its base URL. Defaults to https://<shop>.
	ShopBaseURL func(shop string) string
}

type oauthClient struct {
	cfg        OAuthClientConfig
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ ports.OAuthProvider = (*oauthClient)(nil)

// NewOAuthClient creates the Shopify authorization-code adapter.
func NewOAuthClient(cfg OAuthClientConfig, logger zerolog.Logger) ports.OAuthProvider {
	if cfg.ShopBaseURL == nil {
		cfg.ShopBaseURL = func(shop string) string { return "https://" + shop }
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.ExchangeTimeout}
	}
	return &oauthClient{
		cfg: cfg,
		app: goshopify.App{
			ApiKey:      cfg.ClientID,
			ApiSecret:   cfg.ClientSecret,
			RedirectUrl: cfg.RedirectURI,
			Scope:       strings.Join(cfg.Scopes, ","),
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// oauth2Config builds the per-shop endpoint configuration.
// Shopify expects a comma-separated scope list, so scopes are passed as one element.
func (c *oauthClient) oauth2Config(shop string) *oauth2.Config {
	base := strings.TrimRight(c.cfg.ShopBaseURL(shop), "/")
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       []string{strings.Join(c.cfg.Scopes, ",")},
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + authorizePath,
			TokenURL:  base + accessTokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *oauthClient) AuthorizeURL(shop, state string) string {
	authURL := c.oauth2Config(shop).AuthCodeURL(state)

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", c.cfg.Scopes).
		Str("redirect_uri", c.cfg.RedirectURI).
		Msg("Generated OAuth authorization URL")

	return authURL
}

func (c *oauthClient) ExchangeCode(ctx context.Context, shop, code string) (*ports.TokenGrant, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExchangeTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := c.oauth2Config(shop).Exchange(ctx, code)
	if err != nil {
		exErr := toExchangeError(err)
		c.logger.Warn().
			Str("shop", shop).
			Int("status", exErr.StatusCode).
			Dur("elapsed", time.Since(start)).
			Err(exErr.Err).
			Msg("Token exchange failed")
		return nil, exErr
	}

	grant := &ports.TokenGrant{AccessToken: tok.AccessToken}
	if scope, ok := tok.Extra("scope").(string); ok {
		grant.Scope = scope
	}
	if grant.AccessToken == "" {
		return nil, &domain.TokenExchangeError{Err: domain.ErrEmptyAccessToken}
	}

	c.logger.Info().
		Str("shop", shop).
		Str("scope", grant.Scope).
		Dur("elapsed", time.Since(start)).
		Msg("Token exchange succeeded")

	return grant, nil
}

func (c *oauthClient) VerifyCallback(query url.Values) bool {
	if query.Get("hmac") == "" {
		return false
	}
	u := &url.URL{RawQuery: query.Encode()}
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Failed to verify callback signature")
		return false
	}
	return ok
}

func toExchangeError(err error) *domain.TokenExchangeError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		exErr := &domain.TokenExchangeError{Body: truncate(string(retrieveErr.Body), maxErrorBody), Err: err}
		if retrieveErr.Response != nil {
			exErr.StatusCode = retrieveErr.Response.StatusCode
		}
		return exErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TokenExchangeError{Err: fmt.Errorf("timed out: %w", err)}
	}
	return &domain.TokenExchangeError{Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
