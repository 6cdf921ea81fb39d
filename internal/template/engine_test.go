package template

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hcplat/mockapi/internal/requestctx"
)

func TestNewEngine(t *testing.T) {
	e := NewEngine()
	if e == nil {
		t.Fatal("NewEngine returned nil")
	}
	if e.rng == nil {
		t.Fatal("Engine rng is nil")
	}
}

func jsonCtx(t *testing.T, body string) *requestctx.Context {
	t.Helper()
	headers := map[string]string{"Content-Type": "application/json"}
	return requestctx.Build("POST", "/login", headers, nil, []byte(body))
}

func TestRender_RequestNamespace(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("get", "/x", nil, nil, nil)

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "method and path",
			template: "{{request.method}} {{request.path}}",
			expected: "GET /x",
		},
		{
			name:     "bare method and path",
			template: "{{method}} {{path}}",
			expected: "GET /x",
		},
		{
			name:     "whitespace inside delimiters",
			template: "{{ request.method }}",
			expected: "GET",
		},
		{
			name:     "leading dot form",
			template: "{{.request.path}}",
			expected: "/x",
		},
		{
			name:     "unknown namespace renders empty",
			template: "[{{bogus.thing}}]",
			expected: "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_HeadersAndQuery(t *testing.T) {
	e := NewEngine()
	headers := map[string]string{"X-Request-Id": "abc-123", "Content-Type": "application/json"}
	query := map[string]string{"limit": "10"}
	ctx := requestctx.Build("GET", "/items", headers, query, nil)

	tests := []struct {
		template string
		expected string
	}{
		{"{{headers.X-Request-Id}}", "abc-123"},
		{"{{headers.x-request-id}}", "abc-123"}, // case-insensitive
		{"{{header.X-Request-Id}}", "abc-123"},  // singular alias
		{"{{query.limit}}", "10"},
		{"{{query.missing}}", ""},
		{"{{headers.Missing}}", ""},
	}

	for _, tt := range tests {
		result, err := e.Render(tt.template, ctx)
		if err != nil {
			t.Fatalf("Render(%q) failed: %v", tt.template, err)
		}
		if result != tt.expected {
			t.Errorf("Render(%q) = %q, want %q", tt.template, result, tt.expected)
		}
	}
}

func TestRender_BodyNamespace(t *testing.T) {
	e := NewEngine()
	ctx := jsonCtx(t, `{"user": {"name": "alice", "roles": ["admin", "dev"]}, "count": 3}`)

	tests := []struct {
		template string
		expected string
	}{
		{"{{body.user.name}}", "alice"},
		{"{{body.count}}", "3"},
		{"{{body.user.roles.0}}", "admin"},
		{"{{body.user.roles.1}}", "dev"},
		{"{{body.missing.path}}", ""},
		{"{{raw_body}}", `{"user": {"name": "alice", "roles": ["admin", "dev"]}, "count": 3}`},
	}

	for _, tt := range tests {
		result, err := e.Render(tt.template, ctx)
		if err != nil {
			t.Fatalf("Render(%q) failed: %v", tt.template, err)
		}
		if result != tt.expected {
			t.Errorf("Render(%q) = %q, want %q", tt.template, result, tt.expected)
		}
	}
}

func TestRender_BodyFormNamespace(t *testing.T) {
	e := NewEngine()
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	ctx := requestctx.Build("POST", "/submit", headers, nil, []byte("name=alice&tag=a&tag=b"))

	tests := []struct {
		template string
		expected string
	}{
		{"{{body.name}}", "alice"},
		{"{{body.tag}}", "a"},   // first value
		{"{{body.tag.1}}", "b"}, // indexed
		{"{{body.tag.9}}", ""},
		{"{{body.missing}}", ""},
	}

	for _, tt := range tests {
		result, err := e.Render(tt.template, ctx)
		if err != nil {
			t.Fatalf("Render(%q) failed: %v", tt.template, err)
		}
		if result != tt.expected {
			t.Errorf("Render(%q) = %q, want %q", tt.template, result, tt.expected)
		}
	}
}

func TestRender_DBNamespace(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)
	ctx.DB = map[string]any{
		"email":  "alice@example.com",
		"active": true,
		"id":     float64(42),
		"tags":   []any{"a", "b"},
		"nested": map[string]any{"plan": "premium"},
	}

	tests := []struct {
		template string
		expected string
	}{
		{"{{db.email}}", "alice@example.com"},
		{"{{db.active}}", "true"},
		{"{{db.id}}", "42"},
		{"{{db.tags.1}}", "b"},
		{"{{db.nested.plan}}", "premium"},
		{"{{db.nested}}", `{"plan":"premium"}`},
		{"{{db.missing}}", ""},
	}

	for _, tt := range tests {
		result, err := e.Render(tt.template, ctx)
		if err != nil {
			t.Fatalf("Render(%q) failed: %v", tt.template, err)
		}
		if result != tt.expected {
			t.Errorf("Render(%q) = %q, want %q", tt.template, result, tt.expected)
		}
	}
}

func TestRender_DBWithoutLookupRendersEmpty(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)

	result, err := e.Render("[{{db.email}}]", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result != "[]" {
		t.Errorf("Render = %q, want empty substitution", result)
	}
}

func TestRender_SyntaxErrors(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)

	tests := []struct {
		name     string
		template string
	}{
		{"unclosed expression", `{"a": "{{body.name"}`},
		{"unclosed at end", `hello {{`},
		{"nested open", `{{a {{b}} }}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Render(tt.template, ctx)
			if err == nil {
				t.Fatalf("expected syntax error for %q", tt.template)
			}
			if _, ok := err.(*Error); !ok {
				t.Errorf("error type = %T, want *Error", err)
			}
		})
	}
}

func TestRender_MissingVariableIsNotAnError(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)

	result, err := e.Render(`{"v": "{{body.not.there}}"}`, ctx)
	if err != nil {
		t.Fatalf("missing variable produced error: %v", err)
	}
	if result != `{"v": ""}` {
		t.Errorf("result = %q", result)
	}
}

func TestRender_RandomGenerators(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)

	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	result, err := e.Render("{{random.uuid}}", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !uuidPattern.MatchString(result) {
		t.Errorf("random.uuid = %q", result)
	}

	result, _ = e.Render("{{random.int(5,10)}}", ctx)
	n, err := strconv.Atoi(result)
	if err != nil || n < 5 || n > 10 {
		t.Errorf("random.int(5,10) = %q", result)
	}

	result, _ = e.Render("{{random.string(12)}}", ctx)
	if len(result) != 12 {
		t.Errorf("random.string(12) length = %d", len(result))
	}

	result, _ = e.Render("{{random.bool}}", ctx)
	if result != "true" && result != "false" {
		t.Errorf("random.bool = %q", result)
	}

	result, _ = e.Render("{{random.email}}", ctx)
	if !strings.HasSuffix(result, "@example.com") {
		t.Errorf("random.email = %q", result)
	}
}

func TestRender_TimestampGenerators(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)

	result, err := e.Render("{{timestamp.unix}}", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	unix, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		t.Fatalf("timestamp.unix = %q", result)
	}
	if diff := time.Now().Unix() - unix; diff < 0 || diff > 5 {
		t.Errorf("timestamp.unix drifted: %d", diff)
	}

	result, _ = e.Render("{{timestamp.iso}}", ctx)
	if _, err := time.Parse(time.RFC3339, result); err != nil {
		t.Errorf("timestamp.iso = %q: %v", result, err)
	}

	result, _ = e.Render("{{timestamp.format(2006-01-02)}}", ctx)
	if _, err := time.Parse("2006-01-02", result); err != nil {
		t.Errorf("timestamp.format = %q: %v", result, err)
	}
}

func TestRenderHeaders(t *testing.T) {
	e := NewEngine()
	ctx := jsonCtx(t, `{"id": "abc"}`)

	headers := map[string]string{
		"X-Echo-Id":    "{{body.id}}",
		"Content-Type": "application/json",
	}

	rendered, err := e.RenderHeaders(headers, ctx)
	if err != nil {
		t.Fatalf("RenderHeaders failed: %v", err)
	}
	if rendered["X-Echo-Id"] != "abc" {
		t.Errorf("X-Echo-Id = %q", rendered["X-Echo-Id"])
	}
	if rendered["Content-Type"] != "application/json" {
		t.Errorf("static header mangled: %q", rendered["Content-Type"])
	}
}

func TestRenderHeaders_PropagatesSyntaxError(t *testing.T) {
	e := NewEngine()
	ctx := requestctx.Build("GET", "/x", nil, nil, nil)

	_, err := e.RenderHeaders(map[string]string{"X-Bad": "{{oops"}, ctx)
	if err == nil {
		t.Fatal("expected error from malformed header template")
	}
}
