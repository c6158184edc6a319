// Package resources implements the MCP resource handlers for the
// memory server.
//
// Resources provide read-only data that the host can consume for
// context. They use URI-based addressing (zep://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aaronwhaley/zep-mcp/internal/config"
	"github.com/aaronwhaley/zep-mcp/internal/registry"
)

// Handler manages the memory server's resource endpoints.
type Handler struct {
	cfg *config.Config
	reg *registry.Store
}

// NewHandler creates a resource Handler. reg may be nil when the
// local mirror is unavailable.
func NewHandler(cfg *config.Config, reg *registry.Store) *Handler {
	return &Handler{cfg: cfg, reg: reg}
}

// ConfigResource returns the MCP resource definition for the server
// configuration view.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		"zep://config",
		"Memory Server Configuration",
		mcp.WithResourceDescription("Active server configuration with credentials redacted"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleConfig returns the sanitized configuration as JSON. The API
// key never leaves the server.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	view := map[string]any{
		"base_url":              h.cfg.BaseURL,
		"transport":             h.cfg.Transport,
		"allowed_user_ids":      h.cfg.AllowedUserIDs,
		"default_user_id":       h.cfg.DefaultUserID,
		"log_level":             h.cfg.LogLevel,
		"cache_ttl_seconds":     h.cfg.CacheTTLSeconds,
		"memory_retention_days": h.cfg.MemoryRetentionDays,
		"enable_cors":           h.cfg.EnableCORS,
		"local_mirror":          h.reg != nil,
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config view: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// StatsResource returns the MCP resource definition for mirror
// statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"zep://sessions/stats",
		"Session Mirror Statistics",
		mcp.WithResourceDescription("Aggregate session counts by user, platform and context type"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the mirror's aggregate counts as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.reg == nil {
		return errorResource(req.Params.URI, "local session mirror is unavailable"), nil
	}

	stats, err := h.reg.Stats()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource carrying an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
