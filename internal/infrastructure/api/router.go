package api

import (
	"net/http"

	"shopify-support-chat/internal/application"
	"shopify-support-chat/internal/infrastructure/metrics"
	securitymiddleware "shopify-support-chat/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// AppName is reported by the health endpoint.
const AppName = "shopify-support-chat"

// RouterConfig carries the services and options the router needs.
type RouterConfig struct {
	OAuth   *application.OAuthService
	Chat    *application.ChatService
	Metrics *metrics.Metrics // optional
	Logger  zerolog.Logger

	AllowedOrigins []string
	SecureCookies  bool
	// SwaggerFile is served at /swagger/doc.json. Defaults to ./docs/swagger.json.
	SwaggerFile string
}

// NewRouter wires every route.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.SwaggerFile == "" {
		cfg.SwaggerFile = "./docs/swagger.json"
	}
	logger := cfg.Logger
	p := newPages(logger)
	oauth := newOAuthHandlers(cfg.OAuth, p, logger)
	chat := newChatHandler(cfg.Chat, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securitymiddleware.AccessLogMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "app": AppName})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, cfg.SwaggerFile)
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(securitymiddleware.SessionMiddleware(cfg.SecureCookies))

		r.Get("/", oauth.Index)
		r.Get("/connect", oauth.ConnectForm)
		r.Post("/connect", oauth.ConnectSubmit)
		r.Get("/auth/shopify", oauth.StartAuthorization)
		r.Get("/auth/shopify/callback", oauth.Callback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/connected_shops", oauth.ConnectedShops)
		r.Get("/shopify_redirect_uri", oauth.RedirectURI)
		r.Method(http.MethodPost, "/chat", chat)
	})

	return r
}
