// Package prompts implements the MCP prompt handlers for the memory
// server.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aaronwhaley/zep-mcp/internal/registry"
	"github.com/aaronwhaley/zep-mcp/internal/session"
)

// ResumePrompt handles the memory-resume MCP prompt.
// It guides the AI to restore cross-platform context before new work.
type ResumePrompt struct {
	resolver *session.Resolver
	reg      *registry.Store

	now func() time.Time
}

// NewResumePrompt creates a ResumePrompt. reg may be nil when the
// local mirror is unavailable.
func NewResumePrompt(resolver *session.Resolver, reg *registry.Store) *ResumePrompt {
	return &ResumePrompt{resolver: resolver, reg: reg, now: time.Now}
}

// Definition returns the MCP prompt definition for registration.
func (p *ResumePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("memory-resume",
		mcp.WithPromptDescription(
			"Resume work with full memory context. Creates a session for "+
				"what you're about to do and pulls in related context from "+
				"your other platforms.",
		),
		mcp.WithArgument("context",
			mcp.ArgumentDescription("What you're about to work on"),
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project name if applicable"),
		),
	)
}

// Handle processes the memory-resume prompt request.
func (p *ResumePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	contextDesc := "continuing my work"
	project := ""
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["context"]; ok && v != "" {
			contextDesc = v
		}
		if v, ok := args["project"]; ok {
			project = v
		}
	}

	projectArg := ""
	if project != "" {
		projectArg = fmt.Sprintf(", project='%s'", project)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"I'm about to work on: %s.\n\n"+
			"Please restore my memory context:\n"+
			"1. Run `create_smart_session` with context='%s'%s\n"+
			"2. Run `get_relevant_context` with the returned session_id and a query describing this work\n"+
			"3. Run `get_facts` to recall what you know about me\n"+
			"4. Summarize the relevant history before we start\n",
		contextDesc, contextDesc, projectArg,
	)

	if activity := p.recentActivity(); activity != "" {
		sb.WriteString("\n")
		sb.WriteString(activity)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Resume with memory: %s", contextDesc),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(sb.String()),
			},
		},
	}, nil
}

// recentActivity renders the default user's per-platform session
// counts for the past week, empty when the mirror is unavailable.
func (p *ResumePrompt) recentActivity() string {
	if p.reg == nil {
		return ""
	}

	breakdown, err := p.reg.PlatformBreakdown(p.resolver.Default(), p.now().AddDate(0, 0, -7))
	if err != nil || len(breakdown) == 0 {
		return ""
	}

	platforms := make([]string, 0, len(breakdown))
	for platform := range breakdown {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	parts := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		parts = append(parts, fmt.Sprintf("%s (%d)", platform, breakdown[platform]))
	}
	return fmt.Sprintf("For reference, my session activity this week: %s.", strings.Join(parts, ", "))
}

// ─── CheckpointPrompt ───────────────────────────────────────────────────────

// CheckpointPrompt handles the memory-checkpoint MCP prompt.
// It instructs the AI to persist the important parts of the current
// conversation before it is lost.
type CheckpointPrompt struct{}

// NewCheckpointPrompt creates a CheckpointPrompt.
func NewCheckpointPrompt() *CheckpointPrompt {
	return &CheckpointPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CheckpointPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("memory-checkpoint",
		mcp.WithPromptDescription(
			"Save the important parts of this conversation to memory so "+
				"future sessions on any platform can pick up from here.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session to store the checkpoint in (omit to create one)"),
		),
	)
}

// Handle processes the memory-checkpoint prompt request.
func (p *CheckpointPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sessionStep := "1. Run `create_smart_session` with a context describing this conversation\n"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["session_id"]; ok && v != "" {
			sessionStep = fmt.Sprintf("1. Use the existing session '%s'\n", v)
		}
	}

	return &mcp.GetPromptResult{
		Description: "Checkpoint this conversation to memory",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please checkpoint this conversation:\n" +
						sessionStep +
						"2. Distill the decisions, discoveries and open questions from this conversation\n" +
						"3. Run `add_memory` with those distilled messages\n" +
						"4. Confirm what was saved and under which session id\n",
				),
			},
		},
	}, nil
}
