package api

import (
	"errors"
	"net/http"
	"strings"

	"shopify-support-chat/internal/application"
	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/infrastructure/middleware"

	"github.com/rs/zerolog"
)

// OAuthHandlers serves the connect form and the Shopify install endpoints.
type OAuthHandlers struct {
	oauth  *application.OAuthService
	pages  *pages
	logger zerolog.Logger
}

func newOAuthHandlers(oauth *application.OAuthService, p *pages, logger zerolog.Logger) *OAuthHandlers {
	return &OAuthHandlers{oauth: oauth, pages: p, logger: logger}
}

// Index renders the chat landing page.
func (h *OAuthHandlers) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, http.StatusOK, "index.html", landingView(r))
}

// ConnectForm renders the shop connect form.
func (h *OAuthHandlers) ConnectForm(w http.ResponseWriter, r *http.Request) {
	view := landingView(r)
	h.pages.render(w, http.StatusOK, "connect.html", connectView{Shop: view.Shop, Connected: view.Connected})
}

// ConnectSubmit handles POST /connect with form field "shop".
func (h *OAuthHandlers) ConnectSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.render(w, http.StatusBadRequest, "connect.html", connectView{Error: "Could not read the form."})
		return
	}
	h.beginAuthorization(w, r, r.PostFormValue("shop"), true)
}

// StartAuthorization handles GET /auth/shopify?shop=...
func (h *OAuthHandlers) StartAuthorization(w http.ResponseWriter, r *http.Request) {
	h.beginAuthorization(w, r, r.URL.Query().Get("shop"), false)
}

func (h *OAuthHandlers) beginAuthorization(w http.ResponseWriter, r *http.Request, rawShop string, fromForm bool) {
	authURL, err := h.oauth.BeginAuthorization(r.Context(), rawShop, middleware.SessionID(r.Context()))
	switch {
	case err == nil:
		http.Redirect(w, r, authURL, http.StatusFound)
	case errors.Is(err, domain.ErrOAuthNotConfigured):
		h.pages.renderError(w, http.StatusServiceUnavailable, "Shopify app not configured",
			"Set SHOPIFY_CLIENT_ID, SHOPIFY_CLIENT_SECRET and SHOPIFY_APP_URL, then restart the server.")
	case errors.Is(err, domain.ErrInvalidShopIdentifier):
		msg := "Invalid shop. Use your-store.myshopify.com or your-store."
		if fromForm {
			h.pages.render(w, http.StatusBadRequest, "connect.html", connectView{Shop: rawShop, Error: msg})
			return
		}
		h.pages.renderError(w, http.StatusBadRequest, "Invalid shop", msg)
	default:
		h.logger.Error().Err(err).Msg("Failed to start OAuth authorization")
		h.pages.renderError(w, http.StatusInternalServerError, "Something went wrong", "Please try again.")
	}
}

// Callback handles GET /auth/shopify/callback.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	record, err := h.oauth.CompleteAuthorization(r.Context(), domain.CallbackParams{
		Shop:     q.Get("shop"),
		Code:     q.Get("code"),
		State:    q.Get("state"),
		RawQuery: r.URL.RawQuery,
	})
	if err != nil {
		status, title, message := callbackErrorPage(err)
		h.pages.renderError(w, status, title, message)
		return
	}
	http.Redirect(w, r, h.oauth.LandingURL(record.ShopDomain), http.StatusFound)
}

func callbackErrorPage(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrStateMismatch):
		return http.StatusBadRequest, "Link expired", "This connect link is invalid or has expired. Start the connection again."
	case errors.Is(err, domain.ErrInvalidShopDomain):
		return http.StatusBadRequest, "Invalid shop", "The shop in the callback does not match the one you started with."
	case errors.Is(err, domain.ErrInvalidCallbackSignature):
		return http.StatusBadRequest, "Invalid signature", "The callback could not be verified as coming from Shopify."
	case errors.Is(err, domain.ErrMissingCode):
		return http.StatusBadRequest, "Missing code", "Shopify did not return an authorization code."
	case errors.Is(err, domain.ErrOAuthNotConfigured):
		return http.StatusServiceUnavailable, "Shopify app not configured", "The Shopify app credentials are not set."
	case errors.Is(err, domain.ErrTokenExchangeFailed):
		return http.StatusBadGateway, "Connection failed", "Shopify rejected the authorization. Please try connecting again."
	default:
		return http.StatusInternalServerError, "Something went wrong", "The store could not be saved. Please try again."
	}
}

type connectedShopsResponse struct {
	Shops []string `json:"shops"`
}

// ConnectedShops handles GET /api/connected_shops.
func (h *OAuthHandlers) ConnectedShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.oauth.ListShops(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list connected shops")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list shops")
		return
	}
	writeJSON(w, http.StatusOK, connectedShopsResponse{Shops: shops})
}

type redirectURIResponse struct {
	RedirectURI string `json:"redirect_uri"`
	AppURL      string `json:"app_url"`
	ClientID    string `json:"client_id"`
	Hint        string `json:"hint"`
}

// RedirectURI handles GET /api/shopify_redirect_uri, a setup aid for the Partner dashboard.
func (h *OAuthHandlers) RedirectURI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redirectURIResponse{
		RedirectURI: h.oauth.RedirectURI(),
		AppURL:      h.oauth.AppURL(),
		ClientID:    h.oauth.ClientID(),
		Hint:        "Add redirect_uri exactly as shown to the app's allowed redirection URLs.",
	})
}

// landingView reads the ?connected=1&shop= banner parameters.
func landingView(r *http.Request) indexView {
	q := r.URL.Query()
	shop := strings.TrimSpace(q.Get("shop"))
	if !domain.IsValidShopDomain(shop) {
		shop = ""
	}
	return indexView{Connected: q.Get("connected") == "1" && shop != "", Shop: shop}
}
