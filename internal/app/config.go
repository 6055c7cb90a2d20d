package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	SecureCookies bool   `default:"true" usage:"Mark session cookies Secure (disable for plain-HTTP dev)" flag:"secure-cookies"`
	Commerce      CommerceConfig
	Gate          GateConfig
	SMTP          SMTPConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// CommerceConfig points at the external commerce platform.
type CommerceConfig struct {
	Endpoint    string        `usage:"Commerce platform GraphQL endpoint URL"`
	AccessToken string        `usage:"Storefront access token" flag:"access-token"`
	Timeout     time.Duration `default:"10s" usage:"Commerce API request timeout"`
}

// GateConfig controls the storefront password gate.
type GateConfig struct {
	Password    string        `usage:"Storefront gate password"`
	TokenSecret string        `usage:"Signing secret for gate session tokens" flag:"token-secret"`
	TokenTTL    time.Duration `default:"24h" usage:"Gate session lifetime" flag:"token-ttl"`
}

// SMTPConfig points at the mail relay for signup notifications.
type SMTPConfig struct {
	Host    string `default:"localhost" usage:"SMTP relay host"`
	Port    string `default:"25" usage:"SMTP relay port"`
	From    string `default:"drops@oddline.example" usage:"Sender address for signup notifications"`
	Subject string `default:"" usage:"Welcome email subject (empty uses the built-in default)"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cookies)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	switch {
	case cfg.DatabaseURL == "":
		return nil, errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	case cfg.Commerce.Endpoint == "":
		return nil, errors.New("commerce endpoint is required: set STOREFRONT_COMMERCE_ENDPOINT")
	case cfg.Gate.Password == "":
		return nil, errors.New("gate password is required: set STOREFRONT_GATE_PASSWORD")
	case cfg.Gate.TokenSecret == "":
		return nil, errors.New("gate token secret is required: set STOREFRONT_GATE_TOKEN_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
