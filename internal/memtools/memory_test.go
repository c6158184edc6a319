package memtools

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

func TestAddMemoryTool_SendsMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/sessions/{id}/memory", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "s1" {
			t.Errorf("session id = %q", r.PathValue("id"))
		}
		var body struct {
			Messages []zep.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(body.Messages) != 2 {
			t.Fatalf("got %d messages, want 2", len(body.Messages))
		}
		if body.Messages[0].Role != "user" || body.Messages[0].Content != "the auth bug is back" {
			t.Errorf("first message = %+v", body.Messages[0])
		}
		if body.Messages[1].Role != "assistant" {
			t.Errorf("second message role = %q", body.Messages[1].Role)
		}
		w.WriteHeader(http.StatusCreated)
	})

	tool := NewAddMemoryTool(newTestDeps(t, mux))
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"session_id": "s1",
		"messages": []interface{}{
			map[string]interface{}{"content": "the auth bug is back"},
			map[string]interface{}{"role": "assistant", "content": "checking the token refresh path"},
		},
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	payload := mustSucceed(t, res)
	if payload["messages_added"] != float64(2) {
		t.Errorf("messages_added = %v", payload["messages_added"])
	}
}

func TestAddMemoryTool_RequiresMessages(t *testing.T) {
	tool := NewAddMemoryTool(newTestDeps(t, http.NotFoundHandler()))

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing messages", map[string]interface{}{"session_id": "s1"}},
		{"empty array", map[string]interface{}{"session_id": "s1", "messages": []interface{}{}}},
		{"entries without content", map[string]interface{}{
			"session_id": "s1",
			"messages":   []interface{}{map[string]interface{}{"role": "user"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			mustBeToolError(t, res)
		})
	}
}

func TestGetMemoryTool_ShapesPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/sessions/{id}/memory", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, zep.Memory{
			Messages: []zep.Message{
				{Role: "user", RoleType: "user", Content: "the auth bug is back"},
				{Role: "assistant", RoleType: "assistant", Content: "token refresh race"},
			},
			Summary: &zep.Summary{Content: "debugging the auth token refresh race"},
			RelevantFacts: []zep.Fact{
				{Fact: "auth service uses JWT refresh tokens", Rating: 0.9},
				{Fact: "user drinks coffee", Rating: 0.1},
			},
		})
	})

	tool := NewGetMemoryTool(newTestDeps(t, mux))
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"session_id": "s1",
		"min_rating": 0.5,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	payload := mustSucceed(t, res)

	messages := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	first := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "the auth bug is back" {
		t.Errorf("first message = %v", first)
	}

	facts := payload["facts"].([]any)
	if len(facts) != 1 {
		t.Fatalf("got %d facts after rating filter, want 1", len(facts))
	}

	summary := payload["summary"].(map[string]any)
	if summary["content"] != "debugging the auth token refresh race" {
		t.Errorf("summary = %v", summary)
	}
}

func TestGetMemoryTool_RequiresSessionID(t *testing.T) {
	tool := NewGetMemoryTool(newTestDeps(t, http.NotFoundHandler()))
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	mustBeToolError(t, res)
}

func TestSearchMemoryTool_Defaults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/sessions/{id}/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %q, want default 10", got)
		}
		var q zep.SearchQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if q.SearchScope != "messages" {
			t.Errorf("search_scope = %q, want default messages", q.SearchScope)
		}
		writeTestJSON(t, w, []zep.SearchResult{
			{Message: &zep.Message{Role: "user", Content: "the auth bug is back"}, Score: 0.91},
		})
	})

	tool := NewSearchMemoryTool(newTestDeps(t, mux))
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"session_id": "s1",
		"query":      "auth bug",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	payload := mustSucceed(t, res)
	if payload["count"] != float64(1) {
		t.Fatalf("count = %v", payload["count"])
	}
	results := payload["results"].([]any)
	hit := results[0].(map[string]any)
	if hit["content"] != "the auth bug is back" || hit["score"] != 0.91 {
		t.Errorf("hit = %v", hit)
	}
}

func TestSearchMemoryTool_RequiresQuery(t *testing.T) {
	tool := NewSearchMemoryTool(newTestDeps(t, http.NotFoundHandler()))
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	mustBeToolError(t, res)
}
