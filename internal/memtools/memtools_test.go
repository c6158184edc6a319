package memtools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/aaronwhaley/zep-mcp/internal/registry"
	"github.com/aaronwhaley/zep-mcp/internal/session"
	"github.com/aaronwhaley/zep-mcp/internal/zep"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// fixedNow anchors time-dependent tools in tests.
var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func fixedNowFunc() time.Time { return fixedNow }

// newTestDeps wires real dependencies against a stub gateway.
func newTestDeps(t *testing.T, handler http.Handler) Deps {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := zep.New(zep.Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("zep.New: %v", err)
	}

	reg, err := registry.New(registry.Config{DataDir: t.TempDir(), RetentionDays: 365})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	return Deps{
		Gateway:  gw,
		Resolver: session.NewResolver([]string{"aaron_whaley", "tech_knowledge_base"}, "aaron_whaley", nil),
		Engine:   session.NewEngine(session.DefaultRelevanceEdges()),
		Registry: reg,
		Log:      zap.NewNop(),
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// decodePayload unmarshals a JSON tool response.
func decodePayload(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &payload); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, resultText(r))
	}
	return payload
}

// mustSucceed decodes a payload and asserts success: true.
func mustSucceed(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	payload := decodePayload(t, r)
	if payload["success"] != true {
		t.Fatalf("payload reports failure: %v", payload)
	}
	return payload
}

// mustFailInPayload decodes a payload and asserts success: false.
func mustFailInPayload(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	payload := decodePayload(t, r)
	if payload["success"] != false {
		t.Fatalf("payload reports success: %v", payload)
	}
	return payload
}

// mustBeToolError asserts a protocol-level tool error (bad arguments).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult) {
	t.Helper()
	if r == nil || !r.IsError {
		t.Fatalf("expected a tool error, got: %s", resultText(r))
	}
}

// writeTestJSON is the stub-gateway response helper.
func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encoding stub response: %v", err)
	}
}

// gatewayDown simulates a gateway outage: every route fails.
func gatewayDown() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"gateway unavailable"}`, http.StatusBadGateway)
	})
}

// clearPlatformEnv pins all detection inputs so tests are hermetic.
func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CLAUDE_DESKTOP", "CURSOR_SESSION", "CLAUDE_CODE", "PARENT_PROCESS"} {
		t.Setenv(key, "")
	}
}
