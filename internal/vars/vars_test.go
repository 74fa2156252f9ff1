package vars

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/restbench/restbench/internal/types"
)

func testContext() types.VariableContext {
	return types.VariableContext{
		Global:     map[string]string{"x": "G", "host": "api.example.com", "a": "1", "b": "2"},
		Collection: map[string]string{"x": "C", "userId": "42"},
	}
}

func TestResolve_Precedence(t *testing.T) {
	ctx := testContext()

	if got := Resolve("{{x}}", ctx); got != "C" {
		t.Errorf("Expected collection scope to win, got %q", got)
	}
	if got := Resolve("{{global.x}}", ctx); got != "G" {
		t.Errorf("Expected global scope, got %q", got)
	}
	if got := Resolve("{{collection.x}}", ctx); got != "C" {
		t.Errorf("Expected collection scope, got %q", got)
	}
}

func TestResolve_ExplicitScopeNoFallback(t *testing.T) {
	ctx := types.VariableContext{
		Global:     map[string]string{"onlyGlobal": "G"},
		Collection: map[string]string{"onlyCollection": "C"},
	}

	if got := Resolve("{{collection.onlyGlobal}}", ctx); got != "" {
		t.Errorf("Expected empty string for strict scope miss, got %q", got)
	}
	if got := Resolve("{{global.onlyCollection}}", ctx); got != "" {
		t.Errorf("Expected empty string for strict scope miss, got %q", got)
	}
}

func TestResolve_MissingYieldsEmpty(t *testing.T) {
	ctx := types.VariableContext{Global: map[string]string{}, Collection: map[string]string{}}

	if got := Resolve("{{missing}}", ctx); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}

func TestResolve_MultiplePlaceholders(t *testing.T) {
	ctx := types.VariableContext{Global: map[string]string{"a": "1", "b": "2"}}

	if got := Resolve("{{a}}/{{b}}", ctx); got != "1/2" {
		t.Errorf("Expected 1/2, got %q", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := testContext()

	once := Resolve("https://{{host}}/users/{{userId}}", ctx)
	twice := Resolve(once, ctx)
	if once != twice {
		t.Errorf("Expected idempotent resolution, got %q then %q", once, twice)
	}
}

func TestResolve_NilMaps(t *testing.T) {
	// A caller may omit the collection scope entirely.
	ctx := types.VariableContext{Global: map[string]string{"x": "G"}}

	if got := Resolve("{{x}}", ctx); got != "G" {
		t.Errorf("Expected fallback to global with nil collection map, got %q", got)
	}
}

func TestResolve_DoesNotMutateContext(t *testing.T) {
	ctx := testContext()
	Resolve("{{x}} {{missing}} {{$guid}}", ctx)

	if len(ctx.Global) != 4 || len(ctx.Collection) != 2 {
		t.Error("Resolution mutated the variable context")
	}
}

func TestDynamic_Timestamp(t *testing.T) {
	got := Resolve("{{$timestamp}}", types.VariableContext{})
	if !regexp.MustCompile(`^\d+$`).MatchString(got) {
		t.Errorf("Expected decimal timestamp, got %q", got)
	}
}

func TestDynamic_RandomInt(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := Resolve("{{$randomInt}}", types.VariableContext{})
		n, err := strconv.Atoi(got)
		if err != nil {
			t.Fatalf("Expected integer, got %q", got)
		}
		if n < 0 || n >= 1000000 {
			t.Fatalf("randomInt out of range: %d", n)
		}
	}
}

func TestDynamic_GUID(t *testing.T) {
	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	for _, placeholder := range []string{"{{$guid}}", "{{$uuid}}"} {
		got := Resolve(placeholder, types.VariableContext{})
		if !uuidPattern.MatchString(got) {
			t.Errorf("%s: expected UUID v4, got %q", placeholder, got)
		}
	}
}

func TestDynamic_RandomEmail(t *testing.T) {
	got := Resolve("{{$randomEmail}}", types.VariableContext{})
	if !regexp.MustCompile(`^[a-z0-9]+@example\.com$`).MatchString(got) {
		t.Errorf("Expected synthesized email, got %q", got)
	}
}

func TestDynamic_UnknownFallsThroughToScopes(t *testing.T) {
	ctx := types.VariableContext{Global: map[string]string{"notDynamic": "fromGlobal"}}

	if got := Resolve("{{$notDynamic}}", ctx); got != "fromGlobal" {
		t.Errorf("Expected fall-through to scope lookup, got %q", got)
	}
}

func TestPreview_CollectsUnresolved(t *testing.T) {
	ctx := types.VariableContext{Global: map[string]string{"a": "1"}}

	resolved, unresolved := Preview("{{a}}/{{missing}}/{{missing}}/{{alsoMissing}}", ctx)
	if resolved != "1///" {
		t.Errorf("Unexpected resolved text %q", resolved)
	}
	if len(unresolved) != 2 {
		t.Fatalf("Expected 2 unique unresolved names, got %v", unresolved)
	}
	if unresolved[0] != "missing" || unresolved[1] != "alsoMissing" {
		t.Errorf("Unexpected unresolved list %v", unresolved)
	}
}

func TestPreview_DynamicNeverReported(t *testing.T) {
	_, unresolved := Preview("{{$timestamp}}-{{$guid}}", types.VariableContext{})
	if len(unresolved) != 0 {
		t.Errorf("Dynamic variables must not be reported, got %v", unresolved)
	}
}

func TestResolveValue_Recursion(t *testing.T) {
	ctx := types.VariableContext{Global: map[string]string{"name": "bench"}}

	input := map[string]any{
		"label": "{{name}}",
		"count": float64(3),
		"nested": map[string]any{
			"items": []any{"{{name}}-1", true, nil},
		},
	}

	out, ok := ResolveValue(input, ctx).(map[string]any)
	if !ok {
		t.Fatal("Expected map result")
	}
	if out["label"] != "bench" {
		t.Errorf("Expected resolved label, got %v", out["label"])
	}
	if out["count"] != float64(3) {
		t.Errorf("Non-string leaf must be untouched, got %v", out["count"])
	}
	nested := out["nested"].(map[string]any)
	items := nested["items"].([]any)
	if items[0] != "bench-1" {
		t.Errorf("Expected resolved nested item, got %v", items[0])
	}
	if items[1] != true || items[2] != nil {
		t.Error("Non-string slice leaves must be untouched")
	}

	// The input itself must be left alone.
	if input["label"] != "{{name}}" {
		t.Error("ResolveValue mutated its input")
	}
}

func TestResolveRequest(t *testing.T) {
	ctx := testContext()

	req := types.RequestDescriptor{
		Name:   "get user",
		Method: "GET",
		URL:    "https://{{host}}/users/{{userId}}",
		Headers: map[string]string{
			"Authorization": "Bearer {{token}}",
		},
		Body: `{"x":"{{x}}"}`,
		QueryParams: []types.QueryParam{
			{Key: "page", Value: "{{page}}", Enabled: true},
		},
	}

	resolved, unresolved := ResolveRequest(req, ctx)

	if resolved.URL != "https://api.example.com/users/42" {
		t.Errorf("Unexpected URL %q", resolved.URL)
	}
	if resolved.Headers["Authorization"] != "Bearer " {
		t.Errorf("Unexpected header %q", resolved.Headers["Authorization"])
	}
	if resolved.Body != `{"x":"C"}` {
		t.Errorf("Unexpected body %q", resolved.Body)
	}
	if resolved.QueryParams[0].Value != "" {
		t.Errorf("Unexpected query value %q", resolved.QueryParams[0].Value)
	}
	if len(unresolved) != 2 {
		t.Errorf("Expected token and page unresolved, got %v", unresolved)
	}

	// Original untouched.
	if req.URL != "https://{{host}}/users/{{userId}}" || req.Headers["Authorization"] != "Bearer {{token}}" {
		t.Error("ResolveRequest mutated its input")
	}
}
