// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it loads configuration, builds the
// concrete dependencies (logger, gateway client, relevance engine,
// session registry) and injects them into the tools/prompts/resources
// that depend on them. No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/aaronwhaley/zep-mcp/internal/config"
	"github.com/aaronwhaley/zep-mcp/internal/logging"
	"github.com/aaronwhaley/zep-mcp/internal/memtools"
	"github.com/aaronwhaley/zep-mcp/internal/prompts"
	"github.com/aaronwhaley/zep-mcp/internal/registry"
	"github.com/aaronwhaley/zep-mcp/internal/resources"
	"github.com/aaronwhaley/zep-mcp/internal/session"
	"github.com/aaronwhaley/zep-mcp/internal/zep"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved. The configuration is returned alongside
// the server so the command can pick the transport.
//
// The returned cleanup function closes the session registry and flushes
// the logger; it must be called on shutdown (typically via defer) and
// is always non-nil, even when registry init failed.
func New() (*server.MCPServer, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, noop, err
	}

	log := logging.New(cfg.LogLevel, cfg.LogFile, cfg.Debug)

	resolver := session.NewResolver(cfg.AllowedUserIDs, cfg.DefaultUserID, log)
	engine := session.NewEngine(session.DefaultRelevanceEdges())

	gateway, err := zep.New(zep.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.RequestTimeout(),
		CacheTTL: cfg.CacheTTL(),
		Logger:   log,
	})
	if err != nil {
		return nil, nil, noop, fmt.Errorf("creating gateway client: %w", err)
	}

	// --- Session registry (optional subsystem) ---
	//
	// The registry is a local mirror of session descriptors. If it fails
	// to open, memory tools keep working against the gateway alone:
	// aggregate views lose their local source and the stats resource
	// reports unavailable, nothing else. We log a warning and continue.

	cleanup := func() { _ = log.Sync() }
	reg, regErr := registry.New(registry.Config{
		DataDir:       cfg.DataDir,
		RetentionDays: cfg.MemoryRetentionDays,
	})
	if regErr != nil {
		log.Warn("session registry disabled", zap.Error(regErr))
		reg = nil
	} else {
		cleanup = func() {
			if err := reg.Close(); err != nil {
				log.Warn("session registry close", zap.Error(err))
			}
			_ = log.Sync()
		}
		if n, err := reg.PruneExpired(); err != nil {
			log.Warn("session registry prune", zap.Error(err))
		} else if n > 0 {
			log.Info("pruned expired session descriptors", zap.Int64("count", n))
		}
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"zep-memory-server",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
		server.WithToolHandlerMiddleware(rateLimitMiddleware(cfg.RateLimitPerMinute)),
		server.WithToolHandlerMiddleware(concurrencyMiddleware(int64(cfg.MaxConcurrentRequests))),
	)

	deps := memtools.Deps{
		Gateway:  gateway,
		Resolver: resolver,
		Engine:   engine,
		Registry: reg,
		Log:      log,
	}
	registerTools(s, deps)

	// --- Register prompts ---

	resumePrompt := prompts.NewResumePrompt(resolver, reg)
	s.AddPrompt(resumePrompt.Definition(), resumePrompt.Handle)

	checkpointPrompt := prompts.NewCheckpointPrompt()
	s.AddPrompt(checkpointPrompt.Definition(), checkpointPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(cfg, reg)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	log.Info("server assembled",
		zap.String("version", Version),
		zap.String("transport", cfg.Transport),
		zap.Bool("local_mirror", reg != nil),
	)

	return s, cfg, cleanup, nil
}

// noop is a no-op cleanup function used as the default before any
// resource that needs closing has been created.
func noop() {}

// registerTools registers the 12 memory MCP tools with the server.
func registerTools(s *server.MCPServer, deps memtools.Deps) {
	// --- User management ---
	createUser := memtools.NewCreateUserTool(deps)
	s.AddTool(createUser.Definition(), createUser.Handle)

	updateMetadata := memtools.NewUpdateUserMetadataTool(deps)
	s.AddTool(updateMetadata.Definition(), updateMetadata.Handle)

	getFacts := memtools.NewGetFactsTool(deps)
	s.AddTool(getFacts.Definition(), getFacts.Handle)

	availableUsers := memtools.NewAvailableUsersTool(deps)
	s.AddTool(availableUsers.Definition(), availableUsers.Handle)

	// --- Session lifecycle ---
	createSession := memtools.NewCreateSessionTool(deps)
	s.AddTool(createSession.Definition(), createSession.Handle)

	smartSession := memtools.NewSmartSessionTool(deps)
	s.AddTool(smartSession.Definition(), smartSession.Handle)

	listSessions := memtools.NewListSessionsTool(deps)
	s.AddTool(listSessions.Definition(), listSessions.Handle)

	// --- Memory storage & retrieval ---
	addMemory := memtools.NewAddMemoryTool(deps)
	s.AddTool(addMemory.Definition(), addMemory.Handle)

	getMemory := memtools.NewGetMemoryTool(deps)
	s.AddTool(getMemory.Definition(), getMemory.Handle)

	searchMemory := memtools.NewSearchMemoryTool(deps)
	s.AddTool(searchMemory.Definition(), searchMemory.Handle)

	// --- Cross-session intelligence ---
	relevantContext := memtools.NewRelevantContextTool(deps)
	s.AddTool(relevantContext.Definition(), relevantContext.Handle)

	platformSummary := memtools.NewPlatformSummaryTool(deps)
	s.AddTool(platformSummary.Definition(), platformSummary.Handle)
}

// ─── Request budget middlewares ──────────────────────────────────────────────

// rateLimitMiddleware rejects tool calls once the per-minute budget is
// exhausted. Rejections are tool errors, not protocol failures, so the
// caller sees a retryable message instead of a dropped request.
func rateLimitMiddleware(perMinute int) server.ToolHandlerMiddleware {
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if !limiter.Allow() {
				return mcp.NewToolResultError("rate limit exceeded, retry in a moment"), nil
			}
			return next(ctx, req)
		}
	}
}

// concurrencyMiddleware bounds the number of in-flight tool calls.
// Excess calls queue on the semaphore until a slot frees or their
// context is canceled.
func concurrencyMiddleware(maxInFlight int64) server.ToolHandlerMiddleware {
	sem := semaphore.NewWeighted(maxInFlight)
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil, err
			}
			defer sem.Release(1)
			return next(ctx, req)
		}
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use the memory server effectively.
func serverInstructions() string {
	return `You have access to a Zep persistent memory server. It stores
conversation memory in Zep Cloud so context survives between sessions and
across AI platforms (Claude Desktop, Cursor, Claude Code, web).

## CORE WORKFLOW

At the START of a substantial working session:
1. Call create_smart_session with a short context description, a
   context_type (coding, debugging, research, deployment, documentation,
   general) and, when working inside a repository, the project name.
   The server detects which platform you are running on and builds a
   deterministic session id. Calling it twice in the same place on the
   same day resumes the existing session instead of creating a new one.
2. Call get_relevant_context with the new session id to pull in related
   work from other sessions and platforms. Pass a query when you know
   what you are looking for (e.g. "auth refactor") and the server will
   search the most relevant related sessions for matching memories.

DURING the session:
- Call add_memory after meaningful exchanges: decisions made, problems
  solved, approaches rejected. Store real conversation turns, not
  summaries of summaries.
- Call search_memory or get_memory when the user references earlier
  discussion you cannot see.

## CROSS-PLATFORM AWARENESS

The same user works across several AI tools. Sessions carry platform,
project and context_type metadata, and get_relevant_context ranks other
sessions by shared project (strongest signal), related context type, and
overlapping tags. Use it when the user says things like "as we discussed
in Cursor" or "continuing from my desktop session".

get_platform_summary shows activity per platform over recent days. Use
it when the user asks what they have been working on.

## USERS AND FACTS

The server is locked to a configured allow-list of user ids; unknown ids
silently fall back to the default user, so you rarely need to pass
user_id at all. get_available_user_ids lists the configured ids.
get_facts returns long-term facts Zep has extracted about the user.
Check it when personalization would help, and filter with min_rating
(0.7 or higher) when you only want confident facts.

## PRIVACY

Sessions created with privacy_level "sensitive" never appear as related
context in other sessions. When the user asks for a private discussion,
create the session with privacy_level=sensitive.

## RULES

- Session ids from create_smart_session are deterministic. Do not
  invent your own ids for smart sessions.
- Store memory in the session it belongs to; one session per distinct
  piece of work.
- Memory tool failures return {"success": false, "error": ...} payloads.
  Report the error to the user; do not retry more than once.`
}
