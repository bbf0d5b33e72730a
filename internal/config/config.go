// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shopify-support-chat/internal/domain"

	"github.com/rs/zerolog"
)

// DefaultAppURL is used only while no app credentials are configured.
const DefaultAppURL = "http://localhost:8000"

const (
	TokenStoreFile  = "file"
	TokenStoreMongo = "mongo"

	StateStoreMemory = "memory"
	StateStoreRedis  = "redis"
)

type Config struct {
	Port           string
	LogLevel       zerolog.Level
	AllowedOrigins []string
	Shopify        ShopifyConfig
	TokenStore     TokenStoreConfig
	StateStore     StateStoreConfig
	DeepSeek       DeepSeekConfig
}

type ShopifyConfig struct {
	AppURL          string
	ClientID        string
	ClientSecret    string
	Scopes          []string
	VerifyHMAC      bool
	StateTTL        time.Duration
	ExchangeTimeout time.Duration
	LandingPath     string
}

type TokenStoreConfig struct {
	Driver        string
	Dir           string
	MongoURI      string
	MongoDatabase string
	EncryptionKey string
}

type StateStoreConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Load reads the configuration from the process environment.
// Call godotenv.Load beforehand to pick up a .env file.
func Load() (*Config, error) {
	var errs []error

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		level = zerolog.InfoLevel
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		LogLevel: level,
		Shopify: ShopifyConfig{
			AppURL:       strings.TrimRight(getEnv("SHOPIFY_APP_URL", ""), "/"),
			ClientID:     firstEnv("SHOPIFY_CLIENT_ID", "SHOPIFY_API_KEY"),
			ClientSecret: firstEnv("SHOPIFY_CLIENT_SECRET", "SHOPIFY_API_SECRET"),
			Scopes:       splitList(getEnv("SHOPIFY_SCOPES", "read_orders")),
			LandingPath:  getEnv("LANDING_PATH", "/"),
		},
		TokenStore: TokenStoreConfig{
			Driver:        strings.ToLower(getEnv("TOKEN_STORE", TokenStoreFile)),
			Dir:           getEnv("TOKEN_STORE_DIR", "data/shops"),
			MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGODB_DATABASE", "shopify_support_chat"),
			EncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		},
		StateStore: StateStoreConfig{
			Driver:        strings.ToLower(getEnv("STATE_STORE", StateStoreMemory)),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
		DeepSeek: DeepSeekConfig{
			APIKey:  getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			Model:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		},
	}

	if cfg.Shopify.VerifyHMAC, err = getBool("SHOPIFY_VERIFY_HMAC", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.Shopify.StateTTL, err = getDuration("OAUTH_STATE_TTL", 10*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.Shopify.ExchangeTimeout, err = getDuration("OAUTH_EXCHANGE_TIMEOUT", 15*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.StateStore.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err)
	}

	if cfg.Shopify.AppURL == "" {
		if cfg.Shopify.ClientID != "" && cfg.Shopify.ClientSecret != "" {
			errs = append(errs, fmt.Errorf("SHOPIFY_APP_URL: %w: required when app credentials are set", domain.ErrMisconfiguredAppURL))
		}
		cfg.Shopify.AppURL = DefaultAppURL
	}

	cfg.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))
	if strings.HasPrefix(cfg.Shopify.AppURL, "https://") && !contains(cfg.AllowedOrigins, cfg.Shopify.AppURL) {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, cfg.Shopify.AppURL)
	}

	if cfg.Shopify.StateTTL > 10*time.Minute {
		errs = append(errs, errors.New("OAUTH_STATE_TTL must not exceed 10m"))
	}
	if !strings.HasPrefix(cfg.Shopify.LandingPath, "/") {
		errs = append(errs, errors.New("LANDING_PATH must be a local path starting with /"))
	}
	switch cfg.TokenStore.Driver {
	case TokenStoreFile, TokenStoreMongo:
	default:
		errs = append(errs, fmt.Errorf("TOKEN_STORE: unknown driver %q", cfg.TokenStore.Driver))
	}
	switch cfg.StateStore.Driver {
	case StateStoreMemory, StateStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("STATE_STORE: unknown driver %q", cfg.StateStore.Driver))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SecureCookies reports whether the app is served over https.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.Shopify.AppURL, "https://")
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return defaultValue, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
