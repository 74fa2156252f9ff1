package vars

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restbench/restbench/internal/types"
)

// Placeholder pattern: {{name}}, {{scope.name}}, {{$dynamic}}
var placeholderPattern = regexp.MustCompile(`\{\{(\$?)(?:(collection|global)\.)?(\w+)\}\}`)

// Resolve substitutes every placeholder in text using ctx.
//
// Dynamic placeholders ({{$timestamp}}, {{$randomInt}}, {{$guid}}/{{$uuid}},
// {{$randomEmail}}) are generated at call time; an unrecognized dynamic name
// falls through to a normal scope lookup. Explicit prefixes resolve strictly
// from that scope; unprefixed names check the collection scope before the
// global scope. A miss resolves to the empty string.
func Resolve(text string, ctx types.VariableContext) string {
	return substitute(text, ctx, nil)
}

// Preview performs the same substitution as Resolve but also reports the
// identifiers whose non-dynamic resolution came up empty, for UI hinting.
func Preview(text string, ctx types.VariableContext) (string, []string) {
	var unresolved []string
	resolved := substitute(text, ctx, &unresolved)
	return resolved, dedupe(unresolved)
}

// ResolveValue recurses through nested maps and slices, resolving string
// leaves and leaving every other value untouched.
func ResolveValue(value any, ctx types.VariableContext) any {
	switch v := value.(type) {
	case string:
		return Resolve(v, ctx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = ResolveValue(elem, ctx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = ResolveValue(elem, ctx)
		}
		return out
	default:
		return value
	}
}

// ResolveRequest returns a copy of req with URL, headers, body and query
// params resolved, plus the identifiers that resolved empty. The input
// descriptor is not modified.
func ResolveRequest(req types.RequestDescriptor, ctx types.VariableContext) (types.RequestDescriptor, []string) {
	var unresolved []string

	resolved := req
	resolved.URL = substitute(req.URL, ctx, &unresolved)

	if len(req.Headers) > 0 {
		resolved.Headers = make(map[string]string, len(req.Headers))
		for k, v := range req.Headers {
			resolved.Headers[k] = substitute(v, ctx, &unresolved)
		}
	}

	if req.Body != "" {
		resolved.Body = substitute(req.Body, ctx, &unresolved)
	}

	if len(req.QueryParams) > 0 {
		resolved.QueryParams = make([]types.QueryParam, len(req.QueryParams))
		for i, p := range req.QueryParams {
			p.Key = substitute(p.Key, ctx, &unresolved)
			p.Value = substitute(p.Value, ctx, &unresolved)
			resolved.QueryParams[i] = p
		}
	}

	return resolved, dedupe(unresolved)
}

// substitute runs one substitution pass. When unresolved is non-nil, every
// identifier whose scope lookup produced an empty string is appended to it.
// Recognized dynamic names are never reported.
func substitute(text string, ctx types.VariableContext, unresolved *[]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		dynamic := parts[1] == "$"
		scope := parts[2]
		name := parts[3]

		if dynamic {
			if v, ok := dynamicValue(name); ok {
				return v
			}
			// Unknown dynamic name: fall through to a scope lookup.
		}

		var value string
		var found bool
		switch scope {
		case "collection":
			value, found = lookup(ctx.Collection, name)
		case "global":
			value, found = lookup(ctx.Global, name)
		default:
			if value, found = lookup(ctx.Collection, name); !found {
				value, found = lookup(ctx.Global, name)
			}
		}

		if !found || value == "" {
			if unresolved != nil {
				*unresolved = append(*unresolved, name)
			}
		}
		return value
	})
}

func lookup(m map[string]string, name string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[name]
	return v, ok
}

// dynamicValue generates the value for a recognized dynamic variable.
func dynamicValue(name string) (string, bool) {
	switch name {
	case "timestamp":
		return strconv.FormatInt(time.Now().Unix(), 10), true
	case "randomInt":
		return strconv.Itoa(rand.Intn(1000000)), true
	case "guid", "uuid":
		return uuid.NewString(), true
	case "randomEmail":
		return randomToken(10) + "@example.com", true
	default:
		return "", false
	}
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(tokenAlphabet[rand.Intn(len(tokenAlphabet))])
	}
	return sb.String()
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			unique = append(unique, n)
		}
	}
	return unique
}
