// Package session implements the classification core for the Zep memory
// server: user identity resolution, platform detection, deterministic
// session identifier construction, and rule-based cross-session relevance.
//
// Everything here is pure and synchronous. Configuration (user allow-list,
// default user id, relevance table) is injected at construction and treated
// as immutable; nothing reads ambient state except SignalsFromEnv, which
// exists so the tool layer can snapshot the process environment per request
// and keep Detect a function of its explicit inputs.
package session

import (
	"time"
)

// Privacy levels recorded in session metadata. Sensitive sessions are
// never offered as cross-session context.
const (
	PrivacyNormal    = "normal"
	PrivacySensitive = "sensitive"
)

// Descriptor is the classification view of a stored session: everything
// the relevance engine needs, nothing the memory gateway owns (messages,
// summaries and facts stay on the gateway side).
type Descriptor struct {
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id,omitempty"`
	Platform    Platform    `json:"platform"`
	ContextType ContextType `json:"context_type"`
	Context     string      `json:"context,omitempty"`
	Project     string      `json:"project,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Privacy     string      `json:"privacy_level,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DescriptorFromMetadata rebuilds a Descriptor from a session's stored
// metadata map. Missing or mistyped keys degrade to zero values rather
// than failing: descriptors for sessions created outside this server are
// still usable for relevance ranking, just with fewer matching signals.
// createdAt is the gateway's session timestamp; when it is zero the
// metadata's own created_at (RFC 3339) is used instead.
func DescriptorFromMetadata(sessionID, userID string, createdAt time.Time, meta map[string]any) Descriptor {
	d := Descriptor{
		SessionID:   sessionID,
		UserID:      userID,
		Platform:    ParsePlatform(metaString(meta, "platform")),
		ContextType: ParseContextType(metaString(meta, "context_type")),
		Context:     metaString(meta, "context"),
		Project:     metaString(meta, "project"),
		Tags:        metaStrings(meta, "tags"),
		Privacy:     metaString(meta, "privacy_level"),
		CreatedAt:   createdAt,
	}
	if d.Privacy == "" {
		d.Privacy = PrivacyNormal
	}
	if d.CreatedAt.IsZero() {
		if ts, err := time.Parse(time.RFC3339, metaString(meta, "created_at")); err == nil {
			d.CreatedAt = ts
		}
	}
	return d
}

// MetadataMap renders the descriptor back into the metadata shape stored
// on the gateway. Inverse of DescriptorFromMetadata for the fields both
// sides carry; platform-specific keys are added by BuildMetadata at
// session creation and are not round-tripped here.
func (d Descriptor) MetadataMap() map[string]any {
	meta := map[string]any{
		"platform":      string(d.Platform),
		"context_type":  string(d.ContextType),
		"privacy_level": d.Privacy,
	}
	if d.Context != "" {
		meta["context"] = d.Context
	}
	if d.Project != "" {
		meta["project"] = d.Project
	}
	if len(d.Tags) > 0 {
		meta["tags"] = d.Tags
	}
	if !d.CreatedAt.IsZero() {
		meta["created_at"] = d.CreatedAt.Format(time.RFC3339)
	}
	return meta
}

// ─── Metadata helpers ────────────────────────────────────────────────────────

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// metaStrings reads a string slice that may have round-tripped through
// JSON (arriving as []any) or stayed native ([]string).
func metaStrings(meta map[string]any, key string) []string {
	if meta == nil {
		return nil
	}
	switch v := meta[key].(type) {
	case []string:
		if len(v) == 0 {
			return nil
		}
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
