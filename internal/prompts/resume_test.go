package prompts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aaronwhaley/zep-mcp/internal/registry"
	"github.com/aaronwhaley/zep-mcp/internal/session"
)

func testResolver() *session.Resolver {
	return session.NewResolver([]string{"aaron_whaley"}, "aaron_whaley", nil)
}

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Messages[0].Content)
	}
	return tc.Text
}

func TestResumePrompt_Definition(t *testing.T) {
	p := NewResumePrompt(testResolver(), nil)
	def := p.Definition()

	if def.Name != "memory-resume" {
		t.Errorf("prompt name = %q", def.Name)
	}
	if len(def.Arguments) != 2 {
		t.Errorf("got %d arguments, want 2", len(def.Arguments))
	}
}

func TestResumePrompt_NamesTheWorkflowTools(t *testing.T) {
	p := NewResumePrompt(testResolver(), nil)

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{
		"context": "fixing auth bug",
		"project": "my_app",
	}

	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := promptText(t, res)
	for _, want := range []string{
		"create_smart_session",
		"get_relevant_context",
		"get_facts",
		"context='fixing auth bug'",
		"project='my_app'",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt text missing %q:\n%s", want, text)
		}
	}
}

func TestResumePrompt_IncludesMirrorActivity(t *testing.T) {
	reg, err := registry.New(registry.Config{DataDir: t.TempDir(), RetentionDays: 365})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	for i, platform := range []session.Platform{session.PlatformCursor, session.PlatformCursor, session.PlatformClaudeDesktop} {
		err := reg.Upsert(session.Descriptor{
			SessionID:   strings.Repeat("s", i+1),
			UserID:      "aaron_whaley",
			Platform:    platform,
			ContextType: session.ContextCoding,
			Privacy:     session.PrivacyNormal,
			CreatedAt:   now.AddDate(0, 0, -1),
		})
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	p := NewResumePrompt(testResolver(), reg)
	p.now = func() time.Time { return now }

	res, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := promptText(t, res)
	if !strings.Contains(text, "claude_desktop (1)") || !strings.Contains(text, "cursor (2)") {
		t.Errorf("activity line missing or wrong:\n%s", text)
	}
}

func TestResumePrompt_NoMirrorOmitsActivity(t *testing.T) {
	p := NewResumePrompt(testResolver(), nil)

	res, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if strings.Contains(promptText(t, res), "session activity") {
		t.Error("activity line present without a mirror")
	}
}

func TestCheckpointPrompt_ExistingSession(t *testing.T) {
	p := NewCheckpointPrompt()

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"session_id": "cursor_auth_2025_06_10"}

	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := promptText(t, res)
	if !strings.Contains(text, "cursor_auth_2025_06_10") {
		t.Errorf("session id not referenced:\n%s", text)
	}
	if strings.Contains(text, "create_smart_session") {
		t.Error("prompt suggests creating a session despite one being given")
	}
}

func TestCheckpointPrompt_NewSession(t *testing.T) {
	p := NewCheckpointPrompt()

	res, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := promptText(t, res)
	if !strings.Contains(text, "create_smart_session") {
		t.Errorf("prompt should fall back to creating a session:\n%s", text)
	}
	if !strings.Contains(text, "add_memory") {
		t.Errorf("prompt should instruct storing messages:\n%s", text)
	}
}
