package memtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

// CreateUserTool handles the create_user MCP tool.
type CreateUserTool struct {
	deps Deps
}

// NewCreateUserTool creates a CreateUserTool.
func NewCreateUserTool(deps Deps) *CreateUserTool {
	return &CreateUserTool{deps: deps}
}

// Definition returns the MCP tool definition for create_user.
func (t *CreateUserTool) Definition() mcp.Tool {
	return mcp.NewTool("create_user",
		mcp.WithDescription(
			"Create a new user in the memory system. User ids outside the configured "+
				"allow-list are mapped to the default user.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Unique user identifier"),
		),
		mcp.WithString("email",
			mcp.Description("User email address"),
		),
		mcp.WithString("first_name",
			mcp.Description("User first name"),
		),
		mcp.WithString("last_name",
			mcp.Description("User last name"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary metadata to attach to the user"),
		),
	)
}

// Handle processes the create_user tool call.
func (t *CreateUserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requested := req.GetString("user_id", "")
	if requested == "" {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}

	userID := t.deps.Resolver.Resolve(requested)
	user, err := t.deps.Gateway.CreateUser(ctx, zep.CreateUserParams{
		UserID:    userID,
		Email:     req.GetString("email", ""),
		FirstName: req.GetString("first_name", ""),
		LastName:  req.GetString("last_name", ""),
		Metadata:  mapArg(req, "metadata"),
	})
	if err != nil {
		return respondErr("create user", err), nil
	}

	t.deps.logger().Info("user created", zap.String("user_id", userID))
	return respond(map[string]any{
		"success": true,
		"user":    user,
	}), nil
}

// ─── UpdateUserMetadataTool ─────────────────────────────────────────────────

// UpdateUserMetadataTool handles the update_user_metadata MCP tool.
type UpdateUserMetadataTool struct {
	deps Deps
}

// NewUpdateUserMetadataTool creates an UpdateUserMetadataTool.
func NewUpdateUserMetadataTool(deps Deps) *UpdateUserMetadataTool {
	return &UpdateUserMetadataTool{deps: deps}
}

// Definition returns the MCP tool definition for update_user_metadata.
func (t *UpdateUserMetadataTool) Definition() mcp.Tool {
	return mcp.NewTool("update_user_metadata",
		mcp.WithDescription(
			"Merge new keys into a user's metadata. Existing keys not named in "+
				"the update are preserved.",
		),
		mcp.WithObject("metadata",
			mcp.Required(),
			mcp.Description("Metadata keys to set or overwrite"),
		),
		mcp.WithString("user_id",
			mcp.Description("Target user (default: the configured default user)"),
		),
	)
}

// Handle processes the update_user_metadata tool call.
func (t *UpdateUserMetadataTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	updates := mapArg(req, "metadata")
	if len(updates) == 0 {
		return mcp.NewToolResultError("'metadata' is required"), nil
	}

	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))

	// Read-merge-write: the gateway replaces metadata wholesale on
	// update, so unnamed keys have to be carried over here.
	current, err := t.deps.Gateway.GetUser(ctx, userID)
	if err != nil {
		return respondErr("load user", err), nil
	}

	merged := make(map[string]any, len(current.Metadata)+len(updates))
	for k, v := range current.Metadata {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}

	user, err := t.deps.Gateway.UpdateUser(ctx, userID, zep.UpdateUserParams{Metadata: merged})
	if err != nil {
		return respondErr("update user metadata", err), nil
	}

	return respond(map[string]any{
		"success":  true,
		"user_id":  userID,
		"metadata": user.Metadata,
	}), nil
}

// ─── GetFactsTool ───────────────────────────────────────────────────────────

// GetFactsTool handles the get_facts MCP tool.
type GetFactsTool struct {
	deps Deps
}

// NewGetFactsTool creates a GetFactsTool.
func NewGetFactsTool(deps Deps) *GetFactsTool {
	return &GetFactsTool{deps: deps}
}

// Definition returns the MCP tool definition for get_facts.
func (t *GetFactsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_facts",
		mcp.WithDescription(
			"Retrieve the facts the memory system has learned about a user "+
				"across all their sessions.",
		),
		mcp.WithString("user_id",
			mcp.Description("Target user (default: the configured default user)"),
		),
		mcp.WithNumber("min_rating",
			mcp.Description("Drop facts rated below this value (default: 0)"),
		),
	)
}

// Handle processes the get_facts tool call.
func (t *GetFactsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := t.deps.Resolver.Resolve(req.GetString("user_id", ""))
	minRating, _ := req.GetArguments()["min_rating"].(float64)

	facts, err := t.deps.Gateway.GetUserFacts(ctx, userID)
	if err != nil {
		return respondErr("get facts", err), nil
	}

	out := make([]map[string]any, 0, len(facts))
	for _, f := range facts {
		if f.Rating < minRating {
			continue
		}
		out = append(out, map[string]any{
			"fact":       f.Fact,
			"rating":     f.Rating,
			"created_at": f.CreatedAt,
		})
	}

	return respond(map[string]any{
		"success": true,
		"user_id": userID,
		"facts":   out,
		"count":   len(out),
	}), nil
}

// ─── AvailableUsersTool ─────────────────────────────────────────────────────

// AvailableUsersTool handles the get_available_user_ids MCP tool.
type AvailableUsersTool struct {
	deps Deps
}

// NewAvailableUsersTool creates an AvailableUsersTool.
func NewAvailableUsersTool(deps Deps) *AvailableUsersTool {
	return &AvailableUsersTool{deps: deps}
}

// Definition returns the MCP tool definition for get_available_user_ids.
func (t *AvailableUsersTool) Definition() mcp.Tool {
	return mcp.NewTool("get_available_user_ids",
		mcp.WithDescription(
			"List the user ids this server accepts and which one is the default. "+
				"Requests naming any other user id fall back to the default.",
		),
	)
}

// Handle processes the get_available_user_ids tool call.
func (t *AvailableUsersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(map[string]any{
		"success":         true,
		"user_ids":        t.deps.Resolver.Allowed(),
		"default_user_id": t.deps.Resolver.Default(),
	}), nil
}
