package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/aaronwhaley/zep-mcp/internal/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(Config{DataDir: t.TempDir(), RetentionDays: 365})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDescriptor(id string, createdAt time.Time) session.Descriptor {
	return session.Descriptor{
		SessionID:   id,
		UserID:      "aaron_whaley",
		Platform:    session.PlatformCursor,
		ContextType: session.ContextCoding,
		Context:     "fixing auth bug",
		Project:     "my_app",
		Tags:        []string{"auth", "backend"},
		Privacy:     session.PrivacyNormal,
		CreatedAt:   createdAt,
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	createdAt := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	if err := s.Upsert(testDescriptor("cursor_fixing_auth_bug_my_app_2025_06_10", createdAt)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get("cursor_fixing_auth_bug_my_app_2025_06_10")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "aaron_whaley" {
		t.Errorf("UserID = %q", got.UserID)
	}
	if got.Platform != session.PlatformCursor {
		t.Errorf("Platform = %q", got.Platform)
	}
	if got.ContextType != session.ContextCoding {
		t.Errorf("ContextType = %q", got.ContextType)
	}
	if got.Project != "my_app" {
		t.Errorf("Project = %q", got.Project)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "auth" || got.Tags[1] != "backend" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.Privacy != session.PrivacyNormal {
		t.Errorf("Privacy = %q", got.Privacy)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, createdAt)
	}
}

func TestUpsertKeepsOriginalCreatedAt(t *testing.T) {
	s := newTestStore(t)
	first := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	d := testDescriptor("s1", first)
	if err := s.Upsert(d); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Second write with a later timestamp and changed fields.
	d.CreatedAt = first.AddDate(0, 0, 3)
	d.ContextType = session.ContextDebugging
	d.Privacy = session.PrivacySensitive
	if err := s.Upsert(d); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(first) {
		t.Errorf("CreatedAt = %v, want first insert time %v", got.CreatedAt, first)
	}
	if got.ContextType != session.ContextDebugging {
		t.Errorf("ContextType = %q, want refreshed value", got.ContextType)
	}
	if got.Privacy != session.PrivacySensitive {
		t.Errorf("Privacy = %q, want refreshed value", got.Privacy)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertEmptyTagsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	d := testDescriptor("s1", time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
	d.Tags = nil
	if err := s.Upsert(d); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Tags != nil {
		t.Errorf("Tags = %v, want nil", got.Tags)
	}
}

func TestForUserOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"oldest", "middle", "newest"} {
		if err := s.Upsert(testDescriptor(id, base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	other := testDescriptor("other_user_session", base)
	other.UserID = "tech_knowledge_base"
	if err := s.Upsert(other); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.ForUser("aaron_whaley")
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d sessions, want 3", len(got))
	}
	want := []string{"newest", "middle", "oldest"}
	for i, w := range want {
		if got[i].SessionID != w {
			t.Errorf("position %d = %q, want %q", i, got[i].SessionID, w)
		}
	}
}

func TestPlatformBreakdown(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	add := func(id string, platform session.Platform, daysAgo int) {
		t.Helper()
		d := testDescriptor(id, now.AddDate(0, 0, -daysAgo))
		d.Platform = platform
		if err := s.Upsert(d); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	add("c1", session.PlatformCursor, 1)
	add("c2", session.PlatformCursor, 2)
	add("d1", session.PlatformClaudeDesktop, 3)
	add("old", session.PlatformClaudeCode, 30)

	got, err := s.PlatformBreakdown("aaron_whaley", now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("PlatformBreakdown: %v", err)
	}
	if got["cursor"] != 2 {
		t.Errorf("cursor = %d, want 2", got["cursor"])
	}
	if got["claude_desktop"] != 1 {
		t.Errorf("claude_desktop = %d, want 1", got["claude_desktop"])
	}
	if _, ok := got["claude_code"]; ok {
		t.Error("claude_code counted despite falling outside the window")
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	a := testDescriptor("a", now)
	b := testDescriptor("b", now)
	b.Platform = session.PlatformClaudeDesktop
	b.ContextType = session.ContextResearch
	c := testDescriptor("c", now)
	c.UserID = "tech_knowledge_base"

	for _, d := range []session.Descriptor{a, b, c} {
		if err := s.Upsert(d); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSessions != 3 {
		t.Errorf("TotalSessions = %d", stats.TotalSessions)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d", stats.TotalUsers)
	}
	if stats.ByPlatform["cursor"] != 2 || stats.ByPlatform["claude_desktop"] != 1 {
		t.Errorf("ByPlatform = %v", stats.ByPlatform)
	}
	if stats.ByContextType["coding"] != 2 || stats.ByContextType["research"] != 1 {
		t.Errorf("ByContextType = %v", stats.ByContextType)
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	if err := s.Upsert(testDescriptor("recent", now)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(testDescriptor("stale", now.AddDate(-1, 0, -1))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	pruned, err := s.Prune(now.AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	if _, err := s.Get("recent"); err != nil {
		t.Errorf("recent session pruned unexpectedly: %v", err)
	}
	if _, err := s.Get("stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale session still present, err = %v", err)
	}
}
