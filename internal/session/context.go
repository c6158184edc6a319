package session

import "strings"

// ContextType is the coarse category of work a session represents. It
// drives relevance matching between sessions and nothing else.
type ContextType string

// Context type tags. Like platform tags these appear in identifiers and
// stored metadata and are part of the persisted format.
const (
	ContextCoding        ContextType = "coding"
	ContextGeneral       ContextType = "general"
	ContextResearch      ContextType = "research"
	ContextDeployment    ContextType = "deployment"
	ContextDebugging     ContextType = "debugging"
	ContextDocumentation ContextType = "documentation"
)

// ContextTypes returns every known context type tag.
func ContextTypes() []ContextType {
	return []ContextType{
		ContextCoding, ContextGeneral, ContextResearch,
		ContextDeployment, ContextDebugging, ContextDocumentation,
	}
}

// ParseContextType normalizes a free-form string onto a known context
// type. Unrecognized input falls back to general rather than failing:
// classification is a convenience, not validation.
func ParseContextType(s string) ContextType {
	switch ContextType(strings.ToLower(strings.TrimSpace(s))) {
	case ContextCoding:
		return ContextCoding
	case ContextResearch:
		return ContextResearch
	case ContextDeployment:
		return ContextDeployment
	case ContextDebugging:
		return ContextDebugging
	case ContextDocumentation:
		return ContextDocumentation
	}
	return ContextGeneral
}

// ─── Relevance edges ─────────────────────────────────────────────────────────

// TypePair is an unordered pair of context types whose sessions are
// likely to share useful context.
type TypePair struct {
	A, B ContextType
}

// DefaultRelevanceEdges returns the built-in relevance table. Edges are
// symmetric: listing {coding, debugging} also relates debugging to
// coding.
func DefaultRelevanceEdges() []TypePair {
	return []TypePair{
		{ContextCoding, ContextDebugging},
		{ContextCoding, ContextDeployment},
		{ContextCoding, ContextDocumentation},
		{ContextDebugging, ContextDeployment},
		{ContextDocumentation, ContextResearch},
		{ContextResearch, ContextGeneral},
	}
}
