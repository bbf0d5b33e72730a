package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-support-chat/internal/application"
	"shopify-support-chat/internal/config"
	"shopify-support-chat/internal/infrastructure/api"
	"shopify-support-chat/internal/infrastructure/encryption"
	"shopify-support-chat/internal/infrastructure/llm"
	"shopify-support-chat/internal/infrastructure/metrics"
	"shopify-support-chat/internal/infrastructure/repository"
	shopifyinfra "shopify-support-chat/internal/infrastructure/shopify"
	"shopify-support-chat/internal/infrastructure/statestore"
	"shopify-support-chat/internal/ports"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redirectURI, err := application.RedirectURIFor(cfg.Shopify.AppURL)
	if err != nil {
		logger.Fatal().Err(err).Str("app_url", cfg.Shopify.AppURL).Msg("SHOPIFY_APP_URL is not a valid base URL")
	}

	m, err := metrics.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// Token store
	shops, closeShops, err := newShopStore(ctx, cfg.TokenStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.TokenStore.Driver).Msg("Failed to initialize token store")
	}
	defer closeShops()

	// State store
	states, closeStates, err := newStateStore(ctx, cfg.StateStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StateStore.Driver).Msg("Failed to initialize state store")
	}
	defer closeStates()
	if mem, ok := states.(*statestore.MemoryStateStore); ok {
		if err := m.TrackPendingStates(mem.Len); err != nil {
			logger.Fatal().Err(err).Msg("Failed to register state store metrics")
		}
	}

	provider := shopifyinfra.NewOAuthClient(shopifyinfra.OAuthClientConfig{
		ClientID:        cfg.Shopify.ClientID,
		ClientSecret:    cfg.Shopify.ClientSecret,
		Scopes:          cfg.Shopify.Scopes,
		RedirectURI:     redirectURI,
		ExchangeTimeout: cfg.Shopify.ExchangeTimeout,
	}, logger.With().Str("component", "shopify_oauth").Logger())

	oauthService, err := application.NewOAuthService(application.OAuthConfig{
		AppURL:          cfg.Shopify.AppURL,
		ClientID:        cfg.Shopify.ClientID,
		ClientSecret:    cfg.Shopify.ClientSecret,
		Scopes:          cfg.Shopify.Scopes,
		StateTTL:        cfg.Shopify.StateTTL,
		ExchangeTimeout: cfg.Shopify.ExchangeTimeout,
		VerifyHMAC:      cfg.Shopify.VerifyHMAC,
		LandingPath:     cfg.Shopify.LandingPath,
	}, provider, states, shops, m, logger.With().Str("component", "oauth").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize OAuth service")
	}

	if !oauthService.Configured() {
		logger.Warn().Msg("SHOPIFY_CLIENT_ID or SHOPIFY_CLIENT_SECRET not set, store connect is disabled")
	}
	logger.Info().
		Str("app_url", oauthService.AppURL()).
		Str("redirect_uri", oauthService.RedirectURI()).
		Strs("scopes", cfg.Shopify.Scopes).
		Bool("verify_hmac", cfg.Shopify.VerifyHMAC).
		Msg("Shopify OAuth configured; redirect_uri must be allowed in the app settings")

	storefront := shopifyinfra.NewAdminClient(cfg.Shopify.ClientID, cfg.Shopify.ClientSecret, nil,
		logger.With().Str("component", "shopify_admin").Logger())
	storeContext := application.NewStoreContextLoader(shops, storefront, logger.With().Str("component", "store_context").Logger())
	oauthService.OnConnect(storeContext.Invalidate)

	completion := llm.NewCompletionClient(llm.Config{
		APIKey:  cfg.DeepSeek.APIKey,
		BaseURL: cfg.DeepSeek.BaseURL,
		Model:   cfg.DeepSeek.Model,
	}, logger.With().Str("component", "llm").Logger())
	if completion == nil {
		logger.Warn().Msg("DEEPSEEK_API_KEY not set, chat replies will be degraded")
	}
	chatService := application.NewChatService(completion, storeContext, m, logger.With().Str("component", "chat").Logger())

	router := api.NewRouter(api.RouterConfig{
		OAuth:          oauthService,
		Chat:           chatService,
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  cfg.SecureCookies(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func newShopStore(ctx context.Context, cfg config.TokenStoreConfig, logger zerolog.Logger) (ports.ShopStore, func(), error) {
	var (
		store   ports.ShopStore
		closeFn = func() {}
	)

	switch cfg.Driver {
	case config.TokenStoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		mongoStore, err := repository.NewMongoShopStore(connectCtx, client.Database(cfg.MongoDatabase))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		store = mongoStore
		closeFn = func() { _ = client.Disconnect(context.Background()) }
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Using MongoDB token store")
	default:
		fileStore, err := repository.NewFileShopStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		store = fileStore
		logger.Info().Str("dir", cfg.Dir).Msg("Using file token store")
	}

	if cfg.EncryptionKey != "" {
		encryptionService, err := encryption.NewService(cfg.EncryptionKey)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		store = repository.NewEncryptedShopStore(store, encryptionService)
		logger.Info().Msg("Access tokens are encrypted at rest")
	}
	return store, closeFn, nil
}

func newStateStore(ctx context.Context, cfg config.StateStoreConfig, logger zerolog.Logger) (ports.StateStore, func(), error) {
	if cfg.Driver != config.StateStoreRedis {
		logger.Info().Msg("Using in-memory OAuth state store")
		return statestore.NewMemoryStateStore(time.Minute), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis OAuth state store")
	return statestore.NewRedisStateStore(client, "ssc:"), func() { _ = client.Close() }, nil
}
