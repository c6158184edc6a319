package zep

// Wire types for the v2 API. Timestamps stay strings (RFC 3339 as the
// gateway sends them); callers that need time.Time parse at the edge.

// User is a Zep user record.
type User struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Session is a Zep memory session.
type Session struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Message is a single turn stored in a session.
type Message struct {
	UUID      string         `json:"uuid,omitempty"`
	Role      string         `json:"role,omitempty"`
	RoleType  string         `json:"role_type,omitempty"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// Summary is the gateway-maintained rollup of a session.
type Summary struct {
	UUID      string `json:"uuid,omitempty"`
	Content   string `json:"content,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Fact is one extracted fact about a user.
type Fact struct {
	UUID      string  `json:"uuid,omitempty"`
	Fact      string  `json:"fact"`
	Rating    float64 `json:"rating,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// Memory is the stored state of a session: recent messages plus the
// summary and facts the gateway has distilled from them.
type Memory struct {
	Messages      []Message      `json:"messages,omitempty"`
	Summary       *Summary       `json:"summary,omitempty"`
	RelevantFacts []Fact         `json:"relevant_facts,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// SearchResult is one hit from a session search.
type SearchResult struct {
	Message *Message `json:"message,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
	Score   float64  `json:"score,omitempty"`
}

// CreateUserParams creates a user.
type CreateUserParams struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UpdateUserParams patches a user. Zero fields are left untouched.
type UpdateUserParams struct {
	Email     string         `json:"email,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AddSessionParams creates a session bound to a user.
type AddSessionParams struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SearchQuery describes a session search. Limit travels as a query
// parameter, everything else in the request body.
type SearchQuery struct {
	Text          string  `json:"text"`
	SearchScope   string  `json:"search_scope,omitempty"`
	SearchType    string  `json:"search_type,omitempty"`
	MinFactRating float64 `json:"min_fact_rating,omitempty"`
	Limit         int     `json:"-"`
}

type addMemoryRequest struct {
	Messages []Message `json:"messages"`
}

type factsResponse struct {
	Facts []Fact `json:"facts"`
}
