package config

import (
	"strings"
	"testing"
	"time"
)

// setBaseEnv pins every config variable to a known value so tests are
// insulated from the developer's real environment and any .env file.
func setBaseEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"ZEP_API_KEY":             "test-key",
		"ZEP_BASE_URL":            "https://api.getzep.com",
		"HOST":                    "",
		"PORT":                    "",
		"TRANSPORT":               "",
		"ZEP_USER_IDS":            "",
		"ZEP_DEFAULT_USER_ID":     "",
		"LOG_LEVEL":               "",
		"LOG_FILE":                "",
		"DEBUG":                   "",
		"DATA_DIR":                "",
		"RATE_LIMIT_PER_MINUTE":   "",
		"MAX_CONCURRENT_REQUESTS": "",
		"REQUEST_TIMEOUT_SECONDS": "",
		"CACHE_TTL_SECONDS":       "",
		"MEMORY_RETENTION_DAYS":   "",
		"ENABLE_CORS":             "",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BaseURL != "https://api.getzep.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 8052 {
		t.Errorf("Addr defaults = %s", cfg.Addr())
	}
	if cfg.Transport != "sse" {
		t.Errorf("Transport = %q, want sse", cfg.Transport)
	}
	if len(cfg.AllowedUserIDs) != 1 || cfg.AllowedUserIDs[0] != "aaron_whaley" {
		t.Errorf("AllowedUserIDs = %v", cfg.AllowedUserIDs)
	}
	if cfg.DefaultUserID != "aaron_whaley" {
		t.Errorf("DefaultUserID = %q", cfg.DefaultUserID)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.RateLimitPerMinute != 100 || cfg.MaxConcurrentRequests != 100 {
		t.Errorf("request budgets = %d/%d", cfg.RateLimitPerMinute, cfg.MaxConcurrentRequests)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout())
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL())
	}
	if cfg.MemoryRetentionDays != 365 {
		t.Errorf("MemoryRetentionDays = %d", cfg.MemoryRetentionDays)
	}
	if !cfg.EnableCORS {
		t.Error("EnableCORS should default to true")
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
	if cfg.DataDir == "" || cfg.LogFile == "" {
		t.Error("DataDir and LogFile should have home-relative defaults")
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRANSPORT", "STDIO")
	t.Setenv("PORT", "9000")
	t.Setenv("ZEP_USER_IDS", "aaron_whaley, tech_knowledge_base ,")
	t.Setenv("ZEP_DEFAULT_USER_ID", "tech_knowledge_base")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_TTL_SECONDS", "0")
	t.Setenv("ENABLE_CORS", "false")
	t.Setenv("ZEP_BASE_URL", "https://zep.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Transport != "stdio" {
		t.Errorf("Transport = %q, want stdio (lowered)", cfg.Transport)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if len(cfg.AllowedUserIDs) != 2 {
		t.Errorf("AllowedUserIDs = %v, want 2 trimmed entries", cfg.AllowedUserIDs)
	}
	if cfg.DefaultUserID != "tech_knowledge_base" {
		t.Errorf("DefaultUserID = %q", cfg.DefaultUserID)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG (uppered)", cfg.LogLevel)
	}
	if cfg.CacheTTL() != 0 {
		t.Errorf("CacheTTL = %v, want 0 (disabled)", cfg.CacheTTL())
	}
	if cfg.EnableCORS {
		t.Error("EnableCORS = true, want false")
	}
	if strings.HasSuffix(cfg.BaseURL, "/") {
		t.Errorf("BaseURL should be trimmed of trailing slash: %q", cfg.BaseURL)
	}
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T)
		wantSub string
	}{
		{
			name:    "missing api key",
			mutate:  func(t *testing.T) { t.Setenv("ZEP_API_KEY", "") },
			wantSub: "APIKey",
		},
		{
			name:    "bad transport",
			mutate:  func(t *testing.T) { t.Setenv("TRANSPORT", "websocket") },
			wantSub: "Transport",
		},
		{
			name:    "bad log level",
			mutate:  func(t *testing.T) { t.Setenv("LOG_LEVEL", "verbose") },
			wantSub: "LogLevel",
		},
		{
			name: "default user not in allow-list",
			mutate: func(t *testing.T) {
				t.Setenv("ZEP_USER_IDS", "alice,bob")
				t.Setenv("ZEP_DEFAULT_USER_ID", "mallory")
			},
			wantSub: "must be one of",
		},
		{
			name:    "port out of range",
			mutate:  func(t *testing.T) { t.Setenv("PORT", "70000") },
			wantSub: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			tt.mutate(t)

			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestIsAllowedUserID(t *testing.T) {
	cfg := &Config{AllowedUserIDs: []string{"aaron_whaley", "tech_knowledge_base"}}

	if !cfg.IsAllowedUserID("aaron_whaley") {
		t.Error("aaron_whaley should be allowed")
	}
	if cfg.IsAllowedUserID("random_hacker_id") {
		t.Error("random_hacker_id should not be allowed")
	}
	if cfg.IsAllowedUserID("") {
		t.Error("empty id should not be allowed")
	}
}
