package session

import (
	"os"
	"strings"
)

// Platform identifies the client environment a session originates from.
// It is a naming/classification tag only, never an authorization input.
type Platform string

// Platform tags. These literals appear inside session identifiers and in
// stored metadata, so they are part of the persisted format and must not
// change between releases.
const (
	PlatformCursor        Platform = "cursor"
	PlatformClaudeDesktop Platform = "claude_desktop"
	PlatformClaudeCode    Platform = "claude_code"
	PlatformWebClaude     Platform = "web_claude"
	PlatformUnknown       Platform = "unknown"
)

// Platforms returns every known platform tag, excluding unknown.
func Platforms() []Platform {
	return []Platform{PlatformCursor, PlatformClaudeDesktop, PlatformClaudeCode, PlatformWebClaude}
}

// ParsePlatform maps a free-form string onto a known platform tag,
// returning PlatformUnknown for anything unrecognized.
func ParsePlatform(s string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformCursor:
		return PlatformCursor
	case PlatformClaudeDesktop:
		return PlatformClaudeDesktop
	case PlatformClaudeCode:
		return PlatformClaudeCode
	case PlatformWebClaude:
		return PlatformWebClaude
	}
	return PlatformUnknown
}

// ─── Detection ───────────────────────────────────────────────────────────────

// Signals carries the raw environment evidence platform detection runs
// on. The struct is filled by the caller (normally via SignalsFromEnv)
// so Detect stays a pure function and detection is testable without
// mutating the process environment.
type Signals struct {
	// Explicit per-client environment flags. Any non-empty value counts.
	ClaudeDesktop string
	CursorSession string
	ClaudeCode    string

	// ProcessName is the invoking executable path (argv[0]).
	ProcessName string

	// ParentProcess is the PARENT_PROCESS hint some launchers export.
	ParentProcess string
}

// SignalsFromEnv snapshots the detection signals from the current
// process environment.
func SignalsFromEnv() Signals {
	sig := Signals{
		ClaudeDesktop: os.Getenv("CLAUDE_DESKTOP"),
		CursorSession: os.Getenv("CURSOR_SESSION"),
		ClaudeCode:    os.Getenv("CLAUDE_CODE"),
		ParentProcess: os.Getenv("PARENT_PROCESS"),
	}
	if len(os.Args) > 0 {
		sig.ProcessName = os.Args[0]
	}
	return sig
}

// Detect classifies the calling platform from its signals.
//
// Evidence is weighed in three tiers: explicit environment flags, then
// the executable name, then the parent-process hint. Within each tier
// the desktop client wins over the Cursor editor, which wins over the
// claude_code CLI; the desktop flag is the most authoritative signal
// because that client cannot be confused with the others. With no
// recognized signal the session is attributed to web_claude.
func Detect(sig Signals) Platform {
	if sig.ClaudeDesktop != "" {
		return PlatformClaudeDesktop
	}
	if sig.CursorSession != "" {
		return PlatformCursor
	}
	if sig.ClaudeCode != "" {
		return PlatformClaudeCode
	}

	if p, ok := classifyProcessName(sig.ProcessName); ok {
		return p
	}
	if p, ok := classifyProcessName(sig.ParentProcess); ok {
		return p
	}

	return PlatformWebClaude
}

// classifyProcessName applies the substring heuristics shared by the
// process-name and parent-process tiers.
func classifyProcessName(name string) (Platform, bool) {
	name = strings.ToLower(name)
	switch {
	case name == "":
		return PlatformUnknown, false
	case strings.Contains(name, "claude") && strings.Contains(name, "desktop"):
		return PlatformClaudeDesktop, true
	case strings.Contains(name, "cursor"):
		return PlatformCursor, true
	case strings.Contains(name, "claude") && strings.Contains(name, "code"):
		return PlatformClaudeCode, true
	}
	return PlatformUnknown, false
}
