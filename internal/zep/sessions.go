package zep

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AddSession creates a session and invalidates the owner's cached
// session list.
func (c *Client) AddSession(ctx context.Context, p AddSessionParams) (*Session, error) {
	var out Session
	if err := c.do(ctx, "POST", "/api/v2/sessions", nil, p, &out); err != nil {
		return nil, err
	}
	c.cacheDelete("sessions:" + p.UserID)
	return &out, nil
}

// GetSession fetches a session by id. Unknown ids return ErrNotFound.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var out Session
	path := fmt.Sprintf("/api/v2/sessions/%s", url.PathEscape(sessionID))
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddMemory appends messages to a session and invalidates its cached
// memory reads.
func (c *Client) AddMemory(ctx context.Context, sessionID string, messages []Message) error {
	path := fmt.Sprintf("/api/v2/sessions/%s/memory", url.PathEscape(sessionID))
	if err := c.do(ctx, "POST", path, nil, addMemoryRequest{Messages: messages}, nil); err != nil {
		return err
	}
	c.cacheDeletePrefix("memory:" + sessionID + ":")
	return nil
}

// GetMemory returns the stored memory of a session. lastN > 0 limits
// the result to the most recent messages; zero returns the gateway
// default window.
func (c *Client) GetMemory(ctx context.Context, sessionID string, lastN int) (*Memory, error) {
	key := "memory:" + sessionID + ":" + strconv.Itoa(lastN)
	var cached Memory
	if c.cacheGet(key, &cached) {
		return &cached, nil
	}

	query := url.Values{}
	if lastN > 0 {
		query.Set("lastn", strconv.Itoa(lastN))
	}

	var out Memory
	path := fmt.Sprintf("/api/v2/sessions/%s/memory", url.PathEscape(sessionID))
	if err := c.do(ctx, "GET", path, query, nil, &out); err != nil {
		return nil, err
	}
	c.cacheSet(key, out)
	return &out, nil
}

// SearchMemory runs a semantic search over one session's history.
func (c *Client) SearchMemory(ctx context.Context, sessionID string, q SearchQuery) ([]SearchResult, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var out []SearchResult
	path := fmt.Sprintf("/api/v2/sessions/%s/search", url.PathEscape(sessionID))
	if err := c.do(ctx, "POST", path, query, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
