package session

import (
	"strings"

	"go.uber.org/zap"
)

// Resolver maps requested user ids onto the configured allow-list. It is
// total: any input resolves to a usable id, and an unknown id is
// remapped to the default with a warning rather than failing the
// caller's request.
type Resolver struct {
	allowed   []string
	defaultID string
	log       *zap.Logger
}

// NewResolver builds a Resolver over the configured allow-list and
// default id. A nil logger is replaced with a no-op logger.
func NewResolver(allowed []string, defaultID string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		allowed:   append([]string(nil), allowed...),
		defaultID: defaultID,
		log:       log,
	}
}

// Resolve returns requested when it is a member of the allow-list, and
// the default id otherwise. An empty or blank request means "no
// preference" and resolves to the default silently; a present but
// unknown id is logged before remapping.
func (r *Resolver) Resolve(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return r.defaultID
	}
	for _, id := range r.allowed {
		if id == requested {
			return requested
		}
	}
	r.log.Warn("requested user id not in allow-list, using default",
		zap.String("requested", requested),
		zap.String("default", r.defaultID),
	)
	return r.defaultID
}

// Allowed returns a copy of the allow-list in configured order.
func (r *Resolver) Allowed() []string {
	return append([]string(nil), r.allowed...)
}

// Default returns the configured default user id.
func (r *Resolver) Default() string {
	return r.defaultID
}
