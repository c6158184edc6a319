package session

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// idDateLayout is the calendar-date suffix of every session identifier.
const idDateLayout = "2006_01_02"

// maxSlugLen bounds each slugged segment so free-text context cannot
// produce unbounded identifiers.
const maxSlugLen = 20

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses every run of non-alphanumerics into a
// single underscore, trims leading/trailing underscores and truncates to
// maxSlugLen. Input that carries no alphanumerics at all slugs to "".
func Slugify(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}
	v = nonAlnumRun.ReplaceAllString(v, "_")
	v = strings.Trim(v, "_")
	if len(v) > maxSlugLen {
		v = strings.TrimRight(v[:maxSlugLen], "_")
	}
	return v
}

// BuildID composes the deterministic session identifier
//
//	{platform}_{token}[_{project}]_{YYYY_MM_DD}
//
// where token is the slugged context description, the literal "session"
// when the description slugs away to nothing, or the context type tag
// when no description was given at all. The project segment is slugged
// independently and omitted when empty.
//
// Identical inputs on the same calendar date yield a byte-identical
// identifier; smart session creation relies on this for its
// create-or-reuse behavior. The zero date is the one caller contract
// violation and is rejected.
func BuildID(platform Platform, contextType ContextType, context, project string, date time.Time) (string, error) {
	if date.IsZero() {
		return "", errors.New("session: build id: zero date")
	}

	token := Slugify(context)
	if token == "" {
		if strings.TrimSpace(context) != "" {
			token = "session"
		} else {
			token = string(ParseContextType(string(contextType)))
		}
	}

	parts := []string{string(platform), token}
	if projectSlug := Slugify(project); projectSlug != "" {
		parts = append(parts, projectSlug)
	}
	parts = append(parts, date.Format(idDateLayout))

	return strings.Join(parts, "_"), nil
}

// BuildMetadata assembles the metadata map recorded on a freshly created
// session: the classification fields plus a couple of platform-specific
// hints downstream consumers key on.
func BuildMetadata(platform Platform, contextType ContextType, context, project string, tags []string, createdAt time.Time) map[string]any {
	meta := map[string]any{
		"platform":      string(platform),
		"context":       context,
		"context_type":  string(ParseContextType(string(contextType))),
		"created_at":    createdAt.Format(time.RFC3339),
		"privacy_level": PrivacyNormal,
	}
	if project != "" {
		meta["project"] = project
	}
	if len(tags) > 0 {
		meta["tags"] = tags
	}

	switch platform {
	case PlatformCursor:
		meta["editor"] = "cursor"
		meta["primary_use"] = "coding"
	case PlatformClaudeDesktop:
		meta["interface"] = "desktop"
		meta["primary_use"] = "general"
	case PlatformClaudeCode:
		meta["interface"] = "cli"
		meta["primary_use"] = "coding"
	}

	return meta
}
