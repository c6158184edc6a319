package memtools

import (
	"context"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/aaronwhaley/zep-mcp/internal/session"
	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

// relatedSearchFanout caps how many related sessions get a memory
// search on a get_relevant_context call.
const relatedSearchFanout = 5

// RelevantContextTool handles the get_relevant_context MCP tool.
type RelevantContextTool struct {
	deps Deps

	now func() time.Time
}

// NewRelevantContextTool creates a RelevantContextTool.
func NewRelevantContextTool(deps Deps) *RelevantContextTool {
	return &RelevantContextTool{deps: deps, now: time.Now}
}

// Definition returns the MCP tool definition for get_relevant_context.
func (t *RelevantContextTool) Definition() mcp.Tool {
	return mcp.NewTool("get_relevant_context",
		mcp.WithDescription(
			"Combine the current session's memory with context from related "+
				"sessions on other platforms. Sessions are ranked by shared "+
				"project, related context type and overlapping tags; sensitive "+
				"sessions are never included.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Current session identifier"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query run against the related sessions"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum related sessions to include (default: 10)"),
		),
		mcp.WithNumber("lookback_days",
			mcp.Description("How far back to look for related sessions (default: 30)"),
		),
		mcp.WithString("user_id",
			mcp.Description("Target user (default: the configured default user)"),
		),
	)
}

// Handle processes the get_relevant_context tool call.
func (t *RelevantContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	query := req.GetString("query", "")
	limit := intArg(req, "limit", 10)
	if limit <= 0 {
		limit = 10
	}
	lookbackDays := intArg(req, "lookback_days", 30)
	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))

	result := map[string]any{
		"success":                 true,
		"current_session":         map[string]any{"session_id": sessionID},
		"related_sessions":        []map[string]any{},
		"cross_platform_insights": map[string]any{},
	}

	// Current session memory is best effort: a session that exists but
	// has no stored messages yet should not fail the whole call.
	if memory, err := t.deps.Gateway.GetMemory(ctx, sessionID, 20); err == nil {
		result["current_session"] = currentSessionPayload(sessionID, memory)
	} else {
		t.deps.logger().Warn("could not read current session memory",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	all, _, err := t.deps.loadDescriptors(ctx, userID)
	if err != nil {
		return respondErr("list sessions", err), nil
	}

	current, candidates := splitDescriptors(sessionID, all)
	if current.CreatedAt.IsZero() {
		// Unknown start time: anchor the lookback window at now.
		current.CreatedAt = t.now()
	}

	ranked := t.deps.Engine.RelatedSessions(current, candidates, lookbackDays)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	related := make([]map[string]any, 0, len(ranked))
	for i, r := range ranked {
		entry := map[string]any{
			"session_id":   r.SessionID,
			"platform":     string(r.Platform),
			"context":      r.Context,
			"context_type": string(r.ContextType),
		}
		if query != "" && i < relatedSearchFanout {
			entry["relevant_memories"] = t.searchRelated(ctx, r.SessionID, query)
		}
		related = append(related, entry)
	}
	result["related_sessions"] = related

	result["cross_platform_insights"] = crossPlatformInsights(current, candidates, lookbackDays)
	return respond(result), nil
}

// searchRelated pulls the best matches for query out of one related
// session. Search failures degrade to an empty list.
func (t *RelevantContextTool) searchRelated(ctx context.Context, sessionID, query string) []map[string]any {
	hits, err := t.deps.Gateway.SearchMemory(ctx, sessionID, zep.SearchQuery{
		Text:        query,
		SearchScope: "messages",
		Limit:       3,
	})
	if err != nil {
		t.deps.logger().Debug("related session search failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return []map[string]any{}
	}

	out := make([]map[string]any, 0, 2)
	for _, h := range hits {
		if len(out) == 2 {
			break
		}
		if h.Message == nil {
			continue
		}
		out = append(out, map[string]any{
			"content": h.Message.Content,
			"score":   h.Score,
		})
	}
	return out
}

func currentSessionPayload(sessionID string, memory *zep.Memory) map[string]any {
	messages := memory.Messages
	if len(messages) > 20 {
		messages = messages[len(messages)-20:]
	}

	msgs := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, map[string]any{
			"role":       m.Role,
			"content":    m.Content,
			"created_at": m.CreatedAt,
		})
	}

	payload := map[string]any{
		"session_id": sessionID,
		"messages":   msgs,
	}
	if memory.Summary != nil && memory.Summary.Content != "" {
		payload["summary"] = memory.Summary.Content
	}
	return payload
}

// splitDescriptors separates the current session from the rest. A
// current session the listing does not contain gets empty defaults.
func splitDescriptors(currentID string, all []session.Descriptor) (session.Descriptor, []session.Descriptor) {
	current := session.DescriptorFromMetadata(currentID, "", time.Time{}, nil)
	candidates := make([]session.Descriptor, 0, len(all))
	for _, d := range all {
		if d.SessionID == currentID {
			current = d
			continue
		}
		candidates = append(candidates, d)
	}
	return current, candidates
}

func crossPlatformInsights(current session.Descriptor, candidates []session.Descriptor, lookbackDays int) map[string]any {
	platforms := map[string]struct{}{}
	projects := map[string]struct{}{}
	contextTypes := map[string]struct{}{}

	cutoff := current.CreatedAt.AddDate(0, 0, -lookbackDays)
	recent := 0

	note := func(d session.Descriptor) {
		platforms[string(d.Platform)] = struct{}{}
		contextTypes[string(d.ContextType)] = struct{}{}
		if d.Project != "" {
			projects[d.Project] = struct{}{}
		}
	}

	note(current)
	for _, d := range candidates {
		note(d)
		if !d.CreatedAt.Before(cutoff) {
			recent++
		}
	}

	return map[string]any{
		"platforms_active":     sortedKeys(platforms),
		"projects_in_progress": sortedKeys(projects),
		"context_types":        sortedKeys(contextTypes),
		"total_sessions":       len(candidates) + 1,
		"recent_sessions":      recent,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ─── PlatformSummaryTool ────────────────────────────────────────────────────

// PlatformSummaryTool handles the get_platform_summary MCP tool.
type PlatformSummaryTool struct {
	deps Deps

	now func() time.Time
}

// NewPlatformSummaryTool creates a PlatformSummaryTool.
func NewPlatformSummaryTool(deps Deps) *PlatformSummaryTool {
	return &PlatformSummaryTool{deps: deps, now: time.Now}
}

// Definition returns the MCP tool definition for get_platform_summary.
func (t *PlatformSummaryTool) Definition() mcp.Tool {
	return mcp.NewTool("get_platform_summary",
		mcp.WithDescription(
			"Summarize recent activity per platform: session counts plus the "+
				"context types and projects touched on each.",
		),
		mcp.WithString("platform",
			mcp.Description("Restrict to one platform (cursor, claude_desktop, claude_code, web_claude)"),
		),
		mcp.WithNumber("days",
			mcp.Description("Window in days (default: 7)"),
		),
		mcp.WithString("user_id",
			mcp.Description("Target user (default: the configured default user)"),
		),
	)
}

// Handle processes the get_platform_summary tool call.
func (t *PlatformSummaryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	platformFilter := req.GetString("platform", "")
	days := intArg(req, "days", 7)
	if days <= 0 {
		days = 7
	}
	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))

	descriptors, source, err := t.deps.loadDescriptors(ctx, userID)
	if err != nil {
		return respondErr("load sessions", err), nil
	}

	cutoff := t.now().AddDate(0, 0, -days)

	type bucket struct {
		sessions int
		contexts map[string]struct{}
		projects map[string]struct{}
	}
	stats := map[string]*bucket{}
	total := 0

	for _, d := range descriptors {
		// Undated rows stay in: they cannot prove recency either way.
		if !d.CreatedAt.IsZero() && d.CreatedAt.Before(cutoff) {
			continue
		}
		platform := string(d.Platform)
		if platformFilter != "" && platform != platformFilter {
			continue
		}

		b := stats[platform]
		if b == nil {
			b = &bucket{contexts: map[string]struct{}{}, projects: map[string]struct{}{}}
			stats[platform] = b
		}
		b.sessions++
		total++
		b.contexts[string(d.ContextType)] = struct{}{}
		if d.Project != "" {
			b.projects[d.Project] = struct{}{}
		}
	}

	platforms := make(map[string]any, len(stats))
	for platform, b := range stats {
		platforms[platform] = map[string]any{
			"sessions": b.sessions,
			"contexts": sortedKeys(b.contexts),
			"projects": sortedKeys(b.projects),
		}
	}

	return respond(map[string]any{
		"success":        true,
		"user_id":        userID,
		"period_days":    days,
		"platforms":      platforms,
		"total_sessions": total,
		"source":         source,
	}), nil
}
