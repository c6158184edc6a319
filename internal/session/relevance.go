package session

import (
	"sort"
)

// Relevance weights. The exact values are a policy choice; what matters
// is the strict ordering they encode: a same-project match always
// outranks a related-context-type match, which always outranks a
// tag-overlap match, and same-project alone outranks the other two
// signals combined.
const (
	weightSameProject = 4
	weightRelatedType = 2
	weightTagOverlap  = 1
)

// Engine ranks candidate sessions against a current session using the
// static relevance-edge table. Rule-based and fully deterministic; safe
// for concurrent use once constructed.
type Engine struct {
	related map[TypePair]struct{}
}

// NewEngine builds an Engine over the given edges. Edges are unordered:
// each pair is indexed in both directions. A nil or empty edge list is
// valid and leaves only exact context-type equality as a type match.
func NewEngine(edges []TypePair) *Engine {
	related := make(map[TypePair]struct{}, 2*len(edges))
	for _, e := range edges {
		related[TypePair{e.A, e.B}] = struct{}{}
		related[TypePair{e.B, e.A}] = struct{}{}
	}
	return &Engine{related: related}
}

// Related reports whether the table holds an edge between a and b, in
// either direction. Equal types are not implicitly related here; the
// scoring path treats equality separately.
func (e *Engine) Related(a, b ContextType) bool {
	_, ok := e.related[TypePair{a, b}]
	return ok
}

// RelatedSessions filters and ranks candidates for the current session,
// most relevant first.
//
// A candidate is admitted when it scores on at least one signal: same
// non-empty project, equal-or-related context type, or overlapping tags.
// Zero-score candidates are excluded outright; relevance is
// inclusion/exclusion first, ranking second. Candidates created more
// than lookbackDays before the current session are out of range, a
// non-positive lookbackDays means no history at all, sensitive sessions
// (on either side) never participate, and the current session never
// appears in its own results. Ties are broken by most recent creation
// time, then lexical session identifier.
func (e *Engine) RelatedSessions(current Descriptor, candidates []Descriptor, lookbackDays int) []Descriptor {
	if lookbackDays <= 0 || len(candidates) == 0 {
		return nil
	}
	if current.Privacy == PrivacySensitive {
		return nil
	}

	cutoff := current.CreatedAt.AddDate(0, 0, -lookbackDays)

	type rankedDescriptor struct {
		d     Descriptor
		score int
	}
	var ranked []rankedDescriptor

	for _, cand := range candidates {
		if cand.SessionID == current.SessionID {
			continue
		}
		if cand.Privacy == PrivacySensitive {
			continue
		}
		if cand.CreatedAt.Before(cutoff) {
			continue
		}
		if score := e.score(current, cand); score > 0 {
			ranked = append(ranked, rankedDescriptor{d: cand, score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if !ranked[i].d.CreatedAt.Equal(ranked[j].d.CreatedAt) {
			return ranked[i].d.CreatedAt.After(ranked[j].d.CreatedAt)
		}
		return ranked[i].d.SessionID < ranked[j].d.SessionID
	})

	out := make([]Descriptor, len(ranked))
	for i, r := range ranked {
		out[i] = r.d
	}
	return out
}

func (e *Engine) score(current, cand Descriptor) int {
	score := 0
	if current.Project != "" && current.Project == cand.Project {
		score += weightSameProject
	}
	if cand.ContextType == current.ContextType || e.Related(current.ContextType, cand.ContextType) {
		score += weightRelatedType
	}
	if tagsOverlap(current.Tags, cand.Tags) {
		score += weightTagOverlap
	}
	return score
}

func tagsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
