package zep

import (
	"context"
	"fmt"
	"net/url"
)

// CreateUser registers a new user with the gateway.
func (c *Client) CreateUser(ctx context.Context, p CreateUserParams) (*User, error) {
	var out User
	if err := c.do(ctx, "POST", "/api/v2/users", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches a user by id. Unknown ids return ErrNotFound.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var out User
	path := fmt.Sprintf("/api/v2/users/%s", url.PathEscape(userID))
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser patches an existing user and returns the updated record.
func (c *Client) UpdateUser(ctx context.Context, userID string, p UpdateUserParams) (*User, error) {
	var out User
	path := fmt.Sprintf("/api/v2/users/%s", url.PathEscape(userID))
	if err := c.do(ctx, "PATCH", path, nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserFacts returns the facts the gateway has extracted about a
// user across all their sessions.
func (c *Client) GetUserFacts(ctx context.Context, userID string) ([]Fact, error) {
	key := "facts:" + userID
	var cached []Fact
	if c.cacheGet(key, &cached) {
		return cached, nil
	}

	var out factsResponse
	path := fmt.Sprintf("/api/v2/users/%s/facts", url.PathEscape(userID))
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		return nil, err
	}
	c.cacheSet(key, out.Facts)
	return out.Facts, nil
}

// ListSessions returns every session owned by a user, newest first as
// the gateway orders them. Results are cached until the TTL expires or
// AddSession touches the same user.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	key := "sessions:" + userID
	var cached []Session
	if c.cacheGet(key, &cached) {
		return cached, nil
	}

	var out []Session
	path := fmt.Sprintf("/api/v2/users/%s/sessions", url.PathEscape(userID))
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		return nil, err
	}
	c.cacheSet(key, out)
	return out, nil
}
