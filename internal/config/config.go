package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Stage backend modes.
const (
	ModeMock     = "mock"
	ModeLive     = "live"
	ModeRegistry = "registry"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema       string        `mapstructure:"DB_SCHEMA"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TLSEnabled     bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string        `mapstructure:"TLS_KEY_FILE"`

	// Token issuance
	JWTSigningKey   string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`

	// Pipeline
	ExtractionMode  string        `mapstructure:"EXTRACTION_MODE"`
	MappingMode     string        `mapstructure:"MAPPING_MODE"`
	ValidationMode  string        `mapstructure:"VALIDATION_MODE"`
	StageTimeout    time.Duration `mapstructure:"STAGE_TIMEOUT"`
	VocabularyFile  string        `mapstructure:"VOCABULARY_FILE"`
	MappingCacheTTL time.Duration `mapstructure:"MAPPING_CACHE_TTL"`
	AnthropicAPIKey string        `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `mapstructure:"ANTHROPIC_MODEL"`
	ICDAPIBaseURL   string        `mapstructure:"ICD_API_BASE_URL"`
	ICDTokenURL     string        `mapstructure:"ICD_TOKEN_URL"`
	ICDClientID     string        `mapstructure:"ICD_CLIENT_ID"`
	ICDClientSecret string        `mapstructure:"ICD_CLIENT_SECRET"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"REDIS_URL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
	"EXTRACTION_MODE", "MAPPING_MODE", "VALIDATION_MODE", "STAGE_TIMEOUT",
	"VOCABULARY_FILE", "MAPPING_CACHE_TTL", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
	"ICD_API_BASE_URL", "ICD_TOKEN_URL", "ICD_CLIENT_ID", "ICD_CLIENT_SECRET",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("JWT_ISSUER", "ayushmap")
	v.SetDefault("ACCESS_TOKEN_TTL", "5m")
	v.SetDefault("REFRESH_TOKEN_TTL", "24h")
	v.SetDefault("EXTRACTION_MODE", ModeMock)
	v.SetDefault("MAPPING_MODE", ModeMock)
	v.SetDefault("VALIDATION_MODE", ModeMock)
	v.SetDefault("STAGE_TIMEOUT", "10s")
	v.SetDefault("MAPPING_CACHE_TTL", "24h")
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5")
	v.SetDefault("ICD_API_BASE_URL", "https://id.who.int")
	v.SetDefault("ICD_TOKEN_URL", "https://icdaccessmanagement.who.int/connect/token")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSigningKey == "" {
		log.Println("WARNING: JWT_SIGNING_KEY is not set; using an insecure development key.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		cfg.JWTSigningKey = "development-only-signing-key-change-me"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run: stage modes are
// known, live backends have their credentials, and token signing is set up.
func (c *Config) Validate() error {
	if len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 characters, got %d", len(c.JWTSigningKey))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%s) must not be shorter than ACCESS_TOKEN_TTL (%s)", c.RefreshTokenTTL, c.AccessTokenTTL)
	}

	if err := checkMode("EXTRACTION_MODE", c.ExtractionMode, ModeMock, ModeLive); err != nil {
		return err
	}
	if err := checkMode("MAPPING_MODE", c.MappingMode, ModeMock, ModeLive); err != nil {
		return err
	}
	if err := checkMode("VALIDATION_MODE", c.ValidationMode, ModeMock, ModeRegistry, ModeLive); err != nil {
		return err
	}

	if (c.ExtractionMode == ModeLive || c.MappingMode == ModeLive) && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when EXTRACTION_MODE or MAPPING_MODE is %q", ModeLive)
	}
	if c.ValidationMode == ModeLive && (c.ICDClientID == "" || c.ICDClientSecret == "") {
		return fmt.Errorf("ICD_CLIENT_ID and ICD_CLIENT_SECRET are required when VALIDATION_MODE is %q", ModeLive)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("STAGE_TIMEOUT must be positive")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}

func checkMode(name, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(quoted, ", "), got)
}
