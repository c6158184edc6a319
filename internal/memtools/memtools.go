// Package memtools provides the MCP tool handlers for the Zep memory
// server.
//
// Each tool handler follows the same pattern:
// - A struct holding its dependencies, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers answer with JSON payloads. Argument violations become
// protocol-level tool errors; gateway and storage faults are reported
// inside the payload as {"success": false, "error": ...} so the model
// sees what went wrong and can react.
package memtools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/aaronwhaley/zep-mcp/internal/registry"
	"github.com/aaronwhaley/zep-mcp/internal/session"
	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

// Deps bundles what the tool handlers work against. Registry may be
// nil when the local mirror failed to open; handlers degrade to
// gateway-only behavior in that case.
type Deps struct {
	Gateway  *zep.Client
	Resolver *session.Resolver
	Engine   *session.Engine
	Registry *registry.Store
	Log      *zap.Logger
}

// logger never returns nil so handlers can log unconditionally.
func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// mirror upserts a descriptor into the local registry, best effort.
// A mirror failure never fails the tool call that triggered it.
func (d Deps) mirror(desc session.Descriptor) {
	if d.Registry == nil {
		return
	}
	if err := d.Registry.Upsert(desc); err != nil {
		d.logger().Warn("mirror upsert failed",
			zap.String("session_id", desc.SessionID),
			zap.Error(err),
		)
	}
}

// loadDescriptors lists a user's sessions as descriptors. The gateway
// is authoritative; the local mirror only knows about sessions created
// on this machine, so it serves as fallback when the gateway listing
// fails. The returned source names which side answered.
func (d Deps) loadDescriptors(ctx context.Context, userID string) ([]session.Descriptor, string, error) {
	sessions, gwErr := d.Gateway.ListSessions(ctx, userID)
	if gwErr == nil {
		descriptors := make([]session.Descriptor, 0, len(sessions))
		for _, s := range sessions {
			descriptors = append(descriptors,
				session.DescriptorFromMetadata(s.SessionID, s.UserID, parseTime(s.CreatedAt), s.Metadata))
		}
		return descriptors, "gateway", nil
	}
	if d.Registry == nil {
		return nil, "", gwErr
	}
	d.logger().Warn("gateway session listing failed, using local mirror",
		zap.String("user_id", userID),
		zap.Error(gwErr),
	)
	descriptors, err := d.Registry.ForUser(userID)
	if err != nil {
		d.logger().Warn("local mirror listing failed too", zap.Error(err))
		return nil, "", gwErr
	}
	return descriptors, "local_mirror", nil
}

// ─── Argument helpers ────────────────────────────────────────────────────────

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringsArg extracts a string-array argument. Non-string elements are
// dropped.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mapArg extracts an object argument.
func mapArg(req mcp.CallToolRequest, key string) map[string]any {
	v, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return nil
	}
	return v
}

// ─── Response helpers ────────────────────────────────────────────────────────

// respond marshals v as indented JSON into a text result.
func respond(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// respondErr reports a failed operation inside the payload.
func respondErr(action string, err error) *mcp.CallToolResult {
	return respond(map[string]any{
		"success": false,
		"error":   fmt.Sprintf("failed to %s: %v", action, err),
	})
}

// parseTime turns a gateway RFC 3339 timestamp into a time.Time,
// zero when absent or malformed.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
