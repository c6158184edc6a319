// Package config loads and validates server configuration from the
// environment. A .env file in the working directory is honored when
// present; real environment variables always win. Configuration is read
// once at startup and treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds every runtime setting of the server.
type Config struct {
	// Zep Cloud gateway.
	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`

	// Transport. Host/Port only apply to the sse transport.
	Host      string `validate:"required"`
	Port      int    `validate:"min=1,max=65535"`
	Transport string `validate:"oneof=sse stdio"`

	// User identity.
	AllowedUserIDs []string `validate:"min=1,dive,required"`
	DefaultUserID  string   `validate:"required"`

	// Observability.
	LogLevel string `validate:"oneof=DEBUG INFO WARNING ERROR CRITICAL"`
	LogFile  string
	Debug    bool

	// Local state (session registry database).
	DataDir string `validate:"required"`

	// Request budgets.
	RateLimitPerMinute    int `validate:"min=1"`
	MaxConcurrentRequests int `validate:"min=1"`
	RequestTimeoutSeconds int `validate:"min=1"`
	CacheTTLSeconds       int `validate:"min=0"`
	MemoryRetentionDays   int `validate:"min=1"`

	EnableCORS bool
}

// Load reads configuration from the environment (and .env, if present)
// and validates it. It is the only place environment variables are read.
func Load() (*Config, error) {
	// Missing .env is not an error: production deployments configure
	// through the real environment.
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()

	cfg := &Config{
		APIKey:  getEnv("ZEP_API_KEY", ""),
		BaseURL: strings.TrimRight(getEnv("ZEP_BASE_URL", "https://api.getzep.com"), "/"),

		Host:      getEnv("HOST", "0.0.0.0"),
		Port:      getEnvAsInt("PORT", 8052),
		Transport: strings.ToLower(getEnv("TRANSPORT", "sse")),

		AllowedUserIDs: splitCSV(getEnv("ZEP_USER_IDS", "aaron_whaley")),
		DefaultUserID:  strings.TrimSpace(getEnv("ZEP_DEFAULT_USER_ID", "aaron_whaley")),

		LogLevel: strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		LogFile:  getEnv("LOG_FILE", filepath.Join(home, "zep_mcp_server.log")),
		Debug:    getEnvAsBool("DEBUG", false),

		DataDir: getEnv("DATA_DIR", filepath.Join(home, ".zep-mcp")),

		RateLimitPerMinute:    getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
		MaxConcurrentRequests: getEnvAsInt("MAX_CONCURRENT_REQUESTS", 100),
		RequestTimeoutSeconds: getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 30),
		CacheTTLSeconds:       getEnvAsInt("CACHE_TTL_SECONDS", 300),
		MemoryRetentionDays:   getEnvAsInt("MEMORY_RETENTION_DAYS", 365),

		EnableCORS: getEnvAsBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags plus the one cross-field rule tags
// cannot express: the default user id must be a member of the allow-list.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !c.IsAllowedUserID(c.DefaultUserID) {
		return fmt.Errorf("config: default user id %q must be one of ZEP_USER_IDS %v", c.DefaultUserID, c.AllowedUserIDs)
	}
	return nil
}

// IsAllowedUserID reports whether id is a member of the allow-list.
func (c *Config) IsAllowedUserID(id string) bool {
	for _, allowed := range c.AllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// RequestTimeout returns the gateway per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the gateway read-cache lifetime. Zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Addr returns the host:port listen address for the sse transport.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ─── Env helpers ─────────────────────────────────────────────────────────────

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
