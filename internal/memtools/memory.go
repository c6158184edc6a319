package memtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

// AddMemoryTool handles the add_memory MCP tool.
type AddMemoryTool struct {
	deps Deps
}

// NewAddMemoryTool creates an AddMemoryTool.
func NewAddMemoryTool(deps Deps) *AddMemoryTool {
	return &AddMemoryTool{deps: deps}
}

// Definition returns the MCP tool definition for add_memory.
func (t *AddMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("add_memory",
		mcp.WithDescription(
			"Store conversation messages in a session's memory. The gateway "+
				"extracts facts and maintains a summary from what is stored here.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to append to"),
		),
		mcp.WithArray("messages",
			mcp.Required(),
			mcp.Description("Messages to store, each with 'role' and 'content' (optional 'role_type', 'metadata')"),
		),
	)
}

// Handle processes the add_memory tool call.
func (t *AddMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	messages := messagesArg(req, "messages")
	if len(messages) == 0 {
		return mcp.NewToolResultError("'messages' must contain at least one entry with content"), nil
	}

	if err := t.deps.Gateway.AddMemory(ctx, sessionID, messages); err != nil {
		return respondErr("add memory", err), nil
	}

	t.deps.logger().Info("messages stored",
		zap.String("session_id", sessionID),
		zap.Int("count", len(messages)),
	)
	return respond(map[string]any{
		"success":        true,
		"session_id":     sessionID,
		"messages_added": len(messages),
	}), nil
}

// ─── GetMemoryTool ──────────────────────────────────────────────────────────

// GetMemoryTool handles the get_memory MCP tool.
type GetMemoryTool struct {
	deps Deps
}

// NewGetMemoryTool creates a GetMemoryTool.
func NewGetMemoryTool(deps Deps) *GetMemoryTool {
	return &GetMemoryTool{deps: deps}
}

// Definition returns the MCP tool definition for get_memory.
func (t *GetMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("get_memory",
		mcp.WithDescription(
			"Retrieve a session's memory: recent messages, the maintained "+
				"summary, and facts relevant to the conversation.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to read"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum messages to return (default: 50)"),
		),
		mcp.WithNumber("min_rating",
			mcp.Description("Drop facts rated below this value (default: 0)"),
		),
	)
}

// Handle processes the get_memory tool call.
func (t *GetMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	limit := intArg(req, "limit", 50)
	if limit <= 0 {
		limit = 50
	}
	minRating, _ := req.GetArguments()["min_rating"].(float64)

	memory, err := t.deps.Gateway.GetMemory(ctx, sessionID, limit)
	if err != nil {
		return respondErr("get memory", err), nil
	}

	messages := make([]map[string]any, 0, len(memory.Messages))
	for i, m := range memory.Messages {
		if i >= limit {
			break
		}
		messages = append(messages, map[string]any{
			"role":      m.Role,
			"role_type": m.RoleType,
			"content":   m.Content,
			"metadata":  m.Metadata,
		})
	}

	result := map[string]any{
		"success":    true,
		"session_id": sessionID,
		"messages":   messages,
	}

	if len(memory.RelevantFacts) > 0 {
		facts := make([]map[string]any, 0, len(memory.RelevantFacts))
		for _, f := range memory.RelevantFacts {
			if f.Rating < minRating {
				continue
			}
			facts = append(facts, map[string]any{
				"fact":       f.Fact,
				"rating":     f.Rating,
				"created_at": f.CreatedAt,
			})
		}
		result["facts"] = facts
	}

	if memory.Summary != nil && memory.Summary.Content != "" {
		result["summary"] = map[string]any{"content": memory.Summary.Content}
	}

	return respond(result), nil
}

// ─── SearchMemoryTool ───────────────────────────────────────────────────────

// SearchMemoryTool handles the search_memory MCP tool.
type SearchMemoryTool struct {
	deps Deps
}

// NewSearchMemoryTool creates a SearchMemoryTool.
func NewSearchMemoryTool(deps Deps) *SearchMemoryTool {
	return &SearchMemoryTool{deps: deps}
}

// Definition returns the MCP tool definition for search_memory.
func (t *SearchMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("search_memory",
		mcp.WithDescription(
			"Semantic search over one session's stored conversation history.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to search"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 10)"),
		),
		mcp.WithString("search_scope",
			mcp.Description("'messages' or 'summary' (default: messages)"),
		),
	)
}

// Handle processes the search_memory tool call.
func (t *SearchMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	limit := intArg(req, "limit", 10)
	if limit <= 0 {
		limit = 10
	}
	scope := req.GetString("search_scope", "messages")

	results, err := t.deps.Gateway.SearchMemory(ctx, sessionID, zep.SearchQuery{
		Text:        query,
		SearchScope: scope,
		Limit:       limit,
	})
	if err != nil {
		return respondErr("search memory", err), nil
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entry := map[string]any{"score": r.Score}
		switch {
		case r.Message != nil:
			entry["role"] = r.Message.Role
			entry["content"] = r.Message.Content
			entry["created_at"] = r.Message.CreatedAt
		case r.Summary != nil:
			entry["content"] = r.Summary.Content
			entry["created_at"] = r.Summary.CreatedAt
		default:
			continue
		}
		out = append(out, entry)
	}

	return respond(map[string]any{
		"success":    true,
		"session_id": sessionID,
		"query":      query,
		"results":    out,
		"count":      len(out),
	}), nil
}
