package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Tenancy   TenancyConfig
	OAuth     OAuthConfig
	RateLimit RateLimitConfig
	TLS       TLSConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
	// LogLevel overrides the env-derived level when set (debug, info, warn, error).
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	ExpiryDays int
}

// TenancyConfig describes how hosts map to tenants and how public URLs are
// built for redirects and cookies.
type TenancyConfig struct {
	RootDomain         string
	LocalMarker        string
	ReservedSubdomains []string
	PublicScheme       string
	PublicPort         int
}

type OAuthConfig struct {
	GoogleClientID      string
	GoogleClientSecret  string
	PlatformRedirectURL string
	ClientRedirectURL   string
	TimeoutSeconds      int
}

type RateLimitConfig struct {
	Requests       int
	WindowSeconds  int
	// TrustedProxies lists the CIDRs whose forwarding headers are believed.
	TrustedProxies []string
}

type TLSConfig struct {
	Autocert bool
	CacheDir string
	Email    string
}

// SecurityConfig controls retention of recorded session rejections.
type SecurityConfig struct {
	EventRetentionDays int
	PruneSchedule      string
	WorkerConcurrency  int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryDays) * 24 * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (o *OAuthConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// IsLocal reports whether the root domain is a local development host.
func (t *TenancyConfig) IsLocal() bool {
	return t.LocalMarker != "" && strings.Contains(t.RootDomain, t.LocalMarker)
}

// PublicURL builds an absolute URL for host, appending the public port
// unless it is the scheme default.
func (t *TenancyConfig) PublicURL(host, path string) string {
	port := ""
	switch {
	case t.PublicPort == 0:
	case t.PublicScheme == "https" && t.PublicPort == 443:
	case t.PublicScheme == "http" && t.PublicPort == 80:
	default:
		port = fmt.Sprintf(":%d", t.PublicPort)
	}
	return t.PublicScheme + "://" + host + port + path
}

// TenantURL builds the public URL of path on the tenant's subdomain.
func (t *TenancyConfig) TenantURL(slug, path string) string {
	return t.PublicURL(slug+"."+t.RootDomain, path)
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "gymhub")
	v.SetDefault("DATABASE_PASSWORD", "gymhub_secret")
	v.SetDefault("DATABASE_NAME", "gymhub")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_ISSUER", "gymhub")
	v.SetDefault("JWT_EXPIRY_DAYS", 30)
	v.SetDefault("ROOT_DOMAIN", "localhost")
	v.SetDefault("LOCAL_MARKER", "localhost")
	v.SetDefault("RESERVED_SUBDOMAINS", "www")
	v.SetDefault("PUBLIC_SCHEME", "http")
	v.SetDefault("PUBLIC_PORT", 8080)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/v1/auth/google/callback")
	v.SetDefault("GOOGLE_CLIENT_REDIRECT_URI", "http://localhost:8080/api/v1/auth/google/client/callback")
	v.SetDefault("OAUTH_TIMEOUT_SECONDS", 10)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("TLS_AUTOCERT", false)
	v.SetDefault("TLS_CACHE_DIR", "/var/lib/gymhub/certs")
	v.SetDefault("TLS_EMAIL", "")
	v.SetDefault("SECURITY_EVENT_RETENTION_DAYS", 90)
	v.SetDefault("SECURITY_PRUNE_SCHEDULE", "0 3 * * *")
	v.SetDefault("WORKER_CONCURRENCY", 10)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:     v.GetString("SERVER_HOST"),
			Port:     v.GetInt("SERVER_PORT"),
			Env:      v.GetString("SERVER_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Issuer:     v.GetString("JWT_ISSUER"),
			ExpiryDays: v.GetInt("JWT_EXPIRY_DAYS"),
		},
		Tenancy: TenancyConfig{
			RootDomain:         strings.ToLower(strings.TrimSpace(v.GetString("ROOT_DOMAIN"))),
			LocalMarker:        v.GetString("LOCAL_MARKER"),
			ReservedSubdomains: splitList(v.GetString("RESERVED_SUBDOMAINS")),
			PublicScheme:       v.GetString("PUBLIC_SCHEME"),
			PublicPort:         v.GetInt("PUBLIC_PORT"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:      v.GetString("GOOGLE_CLIENT_ID"),
			GoogleClientSecret:  v.GetString("GOOGLE_CLIENT_SECRET"),
			PlatformRedirectURL: v.GetString("GOOGLE_REDIRECT_URI"),
			ClientRedirectURL:   v.GetString("GOOGLE_CLIENT_REDIRECT_URI"),
			TimeoutSeconds:      v.GetInt("OAUTH_TIMEOUT_SECONDS"),
		},
		RateLimit: RateLimitConfig{
			Requests:       v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds:  v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		TLS: TLSConfig{
			Autocert: v.GetBool("TLS_AUTOCERT"),
			CacheDir: v.GetString("TLS_CACHE_DIR"),
			Email:    v.GetString("TLS_EMAIL"),
		},
		Security: SecurityConfig{
			EventRetentionDays: v.GetInt("SECURITY_EVENT_RETENTION_DAYS"),
			PruneSchedule:      v.GetString("SECURITY_PRUNE_SCHEDULE"),
			WorkerConcurrency:  v.GetInt("WORKER_CONCURRENCY"),
		},
	}

	if cfg.OAuth.TimeoutSeconds <= 0 {
		cfg.OAuth.TimeoutSeconds = 10
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
