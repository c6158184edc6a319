package memtools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/aaronwhaley/zep-mcp/internal/session"
	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

// CreateSessionTool handles the create_session MCP tool.
type CreateSessionTool struct {
	deps Deps
}

// NewCreateSessionTool creates a CreateSessionTool.
func NewCreateSessionTool(deps Deps) *CreateSessionTool {
	return &CreateSessionTool{deps: deps}
}

// Definition returns the MCP tool definition for create_session.
func (t *CreateSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("create_session",
		mcp.WithDescription(
			"Create a new conversation session with an explicit id. Prefer "+
				"create_smart_session unless you already have a naming scheme.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Unique session identifier"),
		),
		mcp.WithString("user_id",
			mcp.Description("Owner of the session (default: the configured default user)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Additional session metadata"),
		),
	)
}

// Handle processes the create_session tool call.
func (t *CreateSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))
	meta := metadataArg(req)

	created, err := t.deps.Gateway.AddSession(ctx, zep.AddSessionParams{
		SessionID: sessionID,
		UserID:    userID,
		Metadata:  meta,
	})
	if err != nil {
		return respondErr("create session", err), nil
	}

	if created.Metadata != nil {
		meta = created.Metadata
	}
	t.deps.mirror(session.DescriptorFromMetadata(sessionID, userID, parseTime(created.CreatedAt), meta))

	t.deps.logger().Info("session created",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
	)
	return respond(map[string]any{
		"success": true,
		"session": map[string]any{
			"session_id": sessionID,
			"user_id":    userID,
			"metadata":   meta,
			"created_at": created.CreatedAt,
		},
	}), nil
}

// metadataArg reads the metadata argument, tolerating clients that
// send it as a JSON-encoded string instead of an object.
func metadataArg(req mcp.CallToolRequest) map[string]any {
	if m := mapArg(req, "metadata"); m != nil {
		return m
	}
	raw, ok := req.GetArguments()["metadata"].(string)
	if !ok || raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{"description": raw}
	}
	return m
}

// ─── SmartSessionTool ───────────────────────────────────────────────────────

// SmartSessionTool handles the create_smart_session MCP tool.
type SmartSessionTool struct {
	deps Deps

	// now is swappable so tests get deterministic session ids.
	now func() time.Time
}

// NewSmartSessionTool creates a SmartSessionTool.
func NewSmartSessionTool(deps Deps) *SmartSessionTool {
	return &SmartSessionTool{deps: deps, now: time.Now}
}

// Definition returns the MCP tool definition for create_smart_session.
func (t *SmartSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("create_smart_session",
		mcp.WithDescription(
			"Create a session with a generated id and rich metadata. The id "+
				"encodes the detected platform, the context, the project and "+
				"today's date, so the same work resumed on the same day lands "+
				"in the same session.",
		),
		mcp.WithString("context",
			mcp.Required(),
			mcp.Description("Short description of what this session is about"),
		),
		mcp.WithString("context_type",
			mcp.Description("One of: coding, general, research, deployment, debugging, documentation (default: general)"),
		),
		mcp.WithString("project",
			mcp.Description("Project name if applicable"),
		),
		mcp.WithArray("tags",
			mcp.Description("Additional tags for the session"),
		),
		mcp.WithString("privacy_level",
			mcp.Description("'normal' or 'sensitive'; sensitive sessions never feed cross-session context"),
		),
		mcp.WithArray("initial_messages",
			mcp.Description("Messages to store immediately, each with 'role' and 'content'"),
		),
		mcp.WithString("user_id",
			mcp.Description("Owner of the session (default: the configured default user)"),
		),
	)
}

// Handle processes the create_smart_session tool call.
func (t *SmartSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contextDesc := req.GetString("context", "")
	if contextDesc == "" {
		return mcp.NewToolResultError("'context' is required"), nil
	}

	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))
	contextType := session.ParseContextType(req.GetString("context_type", ""))
	project := req.GetString("project", "")
	tags := stringsArg(req, "tags")
	platform := session.Detect(session.SignalsFromEnv())
	now := t.now()

	sessionID, err := session.BuildID(platform, contextType, contextDesc, project, now)
	if err != nil {
		return respondErr("build session id", err), nil
	}

	meta := session.BuildMetadata(platform, contextType, contextDesc, project, tags, now)
	if req.GetString("privacy_level", "") == session.PrivacySensitive {
		meta["privacy_level"] = session.PrivacySensitive
	}

	// Same context on the same day resolves to the same id. Reuse the
	// existing session instead of failing the create; the response is
	// indistinguishable from a fresh create so callers never branch on
	// which one happened.
	if existing, err := t.deps.Gateway.GetSession(ctx, sessionID); err == nil {
		t.deps.mirror(session.DescriptorFromMetadata(sessionID, userID, parseTime(existing.CreatedAt), existing.Metadata))
		return respond(map[string]any{
			"success": true,
			"session": smartSessionPayload(sessionID, userID, existing.Metadata),
		}), nil
	} else if !errors.Is(err, zep.ErrNotFound) {
		return respondErr("check for existing session", err), nil
	}

	created, err := t.deps.Gateway.AddSession(ctx, zep.AddSessionParams{
		SessionID: sessionID,
		UserID:    userID,
		Metadata:  meta,
	})
	if err != nil {
		return respondErr("create smart session", err), nil
	}

	if msgs := messagesArg(req, "initial_messages"); len(msgs) > 0 {
		if err := t.deps.Gateway.AddMemory(ctx, sessionID, msgs); err != nil {
			return respondErr("store initial messages", err), nil
		}
	}

	t.deps.mirror(session.DescriptorFromMetadata(sessionID, userID, parseTime(created.CreatedAt), meta))

	t.deps.logger().Info("smart session created",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("platform", string(platform)),
	)
	return respond(map[string]any{
		"success": true,
		"session": smartSessionPayload(sessionID, userID, meta),
	}), nil
}

func smartSessionPayload(sessionID, userID string, meta map[string]any) map[string]any {
	return map[string]any{
		"session_id":   sessionID,
		"user_id":      userID,
		"metadata":     meta,
		"platform":     meta["platform"],
		"context_type": meta["context_type"],
		"project":      meta["project"],
	}
}

// ─── ListSessionsTool ───────────────────────────────────────────────────────

// ListSessionsTool handles the list_sessions MCP tool.
type ListSessionsTool struct {
	deps Deps
}

// NewListSessionsTool creates a ListSessionsTool.
func NewListSessionsTool(deps Deps) *ListSessionsTool {
	return &ListSessionsTool{deps: deps}
}

// Definition returns the MCP tool definition for list_sessions.
func (t *ListSessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_sessions",
		mcp.WithDescription(
			"List a user's conversation sessions, newest first.",
		),
		mcp.WithString("user_id",
			mcp.Description("Target user (default: the configured default user)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return (default: 50)"),
		),
	)
}

// Handle processes the list_sessions tool call.
func (t *ListSessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))
	limit := intArg(req, "limit", 50)
	if limit <= 0 {
		limit = 50
	}

	sessions, gwErr := t.deps.Gateway.ListSessions(ctx, userID)
	if gwErr != nil {
		return t.fromMirror(userID, limit, gwErr)
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	out := make([]map[string]any, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, map[string]any{
			"session_id": s.SessionID,
			"user_id":    s.UserID,
			"metadata":   s.Metadata,
			"created_at": s.CreatedAt,
			"updated_at": s.UpdatedAt,
		})
	}

	return respond(map[string]any{
		"success":  true,
		"user_id":  userID,
		"sessions": out,
		"count":    len(out),
		"source":   "gateway",
	}), nil
}

// fromMirror answers list_sessions from the local registry when the
// gateway listing fails. The mirror only holds sessions created on
// this machine, so the result may be partial.
func (t *ListSessionsTool) fromMirror(userID string, limit int, gwErr error) (*mcp.CallToolResult, error) {
	if t.deps.Registry == nil {
		return respondErr("list sessions", gwErr), nil
	}
	descriptors, err := t.deps.Registry.ForUser(userID)
	if err != nil {
		t.deps.logger().Warn("local mirror listing failed too", zap.Error(err))
		return respondErr("list sessions", gwErr), nil
	}
	t.deps.logger().Warn("gateway session listing failed, using local mirror",
		zap.String("user_id", userID),
		zap.Error(gwErr),
	)
	if len(descriptors) > limit {
		descriptors = descriptors[:limit]
	}

	out := make([]map[string]any, 0, len(descriptors))
	for _, d := range descriptors {
		createdAt := ""
		if !d.CreatedAt.IsZero() {
			createdAt = d.CreatedAt.Format(time.RFC3339)
		}
		out = append(out, map[string]any{
			"session_id": d.SessionID,
			"user_id":    d.UserID,
			"metadata":   d.MetadataMap(),
			"created_at": createdAt,
		})
	}

	return respond(map[string]any{
		"success":  true,
		"user_id":  userID,
		"sessions": out,
		"count":    len(out),
		"source":   "local_mirror",
	}), nil
}

// messagesArg converts a message-array argument into gateway messages.
// Entries missing a role default to "user"; entries without content
// are dropped.
func messagesArg(req mcp.CallToolRequest, key string) []zep.Message {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []zep.Message
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		content, _ := m["content"].(string)
		if content == "" {
			continue
		}
		role, _ := m["role"].(string)
		if role == "" {
			role = "user"
		}
		roleType, _ := m["role_type"].(string)
		var meta map[string]any
		if mm, ok := m["metadata"].(map[string]any); ok {
			meta = mm
		}
		out = append(out, zep.Message{
			Role:     role,
			RoleType: roleType,
			Content:  content,
			Metadata: meta,
		})
	}
	return out
}
