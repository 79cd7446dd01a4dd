package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/chatrelay/internal/domain"
)

const chatCompletionsPath = "/chat/completions"

// Config represents the relay configuration.
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	OpenRouter OpenRouterConfig
	OpenAI     OpenAIConfig
	Provider   ProviderSettings
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"3000"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"30"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RateLimitConfig contains per-client request limits for the API routes.
type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED"  envDefault:"true"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW"   envDefault:"15m"`
}

// RedisConfig points rate-limit counters at a shared Redis. Empty Addr keeps them in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// OpenRouterConfig contains OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey   string        `env:"OPENROUTER_API_KEY"`
	BaseURL  string        `env:"OPENROUTER_BASE_URL"  envDefault:"https://openrouter.ai/api/v1"`
	Model    string        `env:"OPENROUTER_MODEL"     envDefault:"openai/gpt-3.5-turbo"`
	SiteURL  string        `env:"OPENROUTER_SITE_URL"`
	SiteName string        `env:"OPENROUTER_SITE_NAME" envDefault:"Chat Relay"`
	Timeout  time.Duration `env:"OPENROUTER_TIMEOUT"   envDefault:"12s"`
}

// OpenAIConfig contains OpenAI provider settings.
type OpenAIConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	BaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model   string        `env:"OPENAI_MODEL"    envDefault:"gpt-3.5-turbo"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT"  envDefault:"10s"`
}

// ProviderSettings applies to every provider call.
type ProviderSettings struct {
	MaxAttempts int `env:"PROVIDER_MAX_ATTEMPTS" envDefault:"2"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*RateLimitConfig
	*RedisConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.RateLimit,
		&cfg.Redis,
	}
}

// ProviderConfigs builds the immutable provider list in preference order.
// Every supported provider is returned, configured or not; callers decide
// with HasUsableKey whether to activate it.
func ProviderConfigs(cfg *Config) []domain.ProviderConfig {
	openRouterHeaders := map[string]string{}
	if cfg.OpenRouter.SiteURL != "" {
		openRouterHeaders["HTTP-Referer"] = cfg.OpenRouter.SiteURL
	}
	if cfg.OpenRouter.SiteName != "" {
		openRouterHeaders["X-Title"] = cfg.OpenRouter.SiteName
	}

	return []domain.ProviderConfig{
		{
			Name:         domain.ProviderOpenRouter,
			APIKey:       strings.TrimSpace(cfg.OpenRouter.APIKey),
			Endpoint:     endpoint(cfg.OpenRouter.BaseURL),
			Model:        cfg.OpenRouter.Model,
			ExtraHeaders: openRouterHeaders,
			Timeout:      cfg.OpenRouter.Timeout,
			MaxAttempts:  cfg.Provider.MaxAttempts,
		},
		{
			Name:         domain.ProviderOpenAI,
			APIKey:       strings.TrimSpace(cfg.OpenAI.APIKey),
			Endpoint:     endpoint(cfg.OpenAI.BaseURL),
			Model:        cfg.OpenAI.Model,
			ExtraHeaders: map[string]string{},
			Timeout:      cfg.OpenAI.Timeout,
			MaxAttempts:  cfg.Provider.MaxAttempts,
		},
	}
}

func endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + chatCompletionsPath
}
