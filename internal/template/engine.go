// Package template expands response body templates against a request's
// execution context. Templates are untrusted author-supplied text: the
// engine only interpolates values, it never executes code.
package template

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/hcplat/mockapi/internal/requestctx"
)

// Error is a template expansion failure (malformed syntax). Missing
// variables are not errors; they render as empty output.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "template error: " + e.Message
}

// Engine renders template strings with variable substitution
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// templateVarPattern matches template variables like {{variable}}
var templateVarPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Render expands all variables in template against ctx. Unknown or missing
// references produce empty output; only malformed delimiter syntax returns
// an *Error.
func (e *Engine) Render(template string, ctx *requestctx.Context) (string, error) {
	if err := checkSyntax(template); err != nil {
		return "", err
	}

	result := templateVarPattern.ReplaceAllStringFunc(template, func(match string) string {
		varName := strings.TrimSpace(match[2 : len(match)-2])
		return e.resolveVariable(varName, ctx)
	})

	return result, nil
}

// RenderHeaders renders every header value as a template
func (e *Engine) RenderHeaders(headers map[string]string, ctx *requestctx.Context) (map[string]string, error) {
	result := make(map[string]string, len(headers))
	for key, value := range headers {
		rendered, err := e.Render(value, ctx)
		if err != nil {
			return nil, err
		}
		result[key] = rendered
	}
	return result, nil
}

// checkSyntax rejects templates with unbalanced expression delimiters.
func checkSyntax(template string) error {
	rest := template
	offset := 0
	for {
		open := strings.Index(rest, "{{")
		if open == -1 {
			return nil
		}
		close := strings.Index(rest[open+2:], "}}")
		if close == -1 {
			return &Error{Message: fmt.Sprintf("unclosed expression at offset %d", offset+open)}
		}
		inner := rest[open+2 : open+2+close]
		if strings.Contains(inner, "{{") {
			return &Error{Message: fmt.Sprintf("nested expression at offset %d", offset+open)}
		}
		advance := open + 2 + close + 2
		rest = rest[advance:]
		offset += advance
	}
}

// resolveVariable resolves a single variable to its value
func (e *Engine) resolveVariable(varName string, ctx *requestctx.Context) string {
	varName = strings.TrimPrefix(varName, ".")

	parts := strings.SplitN(varName, ".", 2)
	source := parts[0]
	var key string
	if len(parts) > 1 {
		key = parts[1]
	}

	switch source {
	case "request":
		switch key {
		case "method":
			return ctx.Method
		case "path":
			return ctx.Path
		}
	case "method":
		if key == "" {
			return ctx.Method
		}
	case "path":
		if key == "" {
			return ctx.Path
		}
	case "raw_body":
		if key == "" {
			return ctx.RawBody
		}
	case "headers", "header":
		if key != "" {
			// Headers are case-insensitive
			for k, v := range ctx.Headers {
				if strings.EqualFold(k, key) {
					return v
				}
			}
		}
	case "query":
		if key != "" {
			if val, ok := ctx.Query[key]; ok {
				return val
			}
		}
	case "body":
		return resolveBody(key, ctx)
	case "db":
		if key != "" && ctx.DB != nil {
			return resolvePath(ctx.DB, key)
		}
	case "random":
		return e.resolveRandom(key)
	case "timestamp":
		return e.resolveTimestamp(key)
	}

	return ""
}

// resolveBody resolves a dot path into the parsed request body.
func resolveBody(key string, ctx *requestctx.Context) string {
	switch body := ctx.Body.(type) {
	case string:
		if key == "" {
			return body
		}
		return ""
	case map[string][]string:
		// Form posts: a bare key yields the first value, key.N indexes.
		if key == "" {
			return ""
		}
		field, idx, hasIdx := strings.Cut(key, ".")
		vals, ok := body[field]
		if !ok || len(vals) == 0 {
			return ""
		}
		if !hasIdx {
			return vals[0]
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(vals) {
			return ""
		}
		return vals[i]
	default:
		// Decoded JSON: resolve the dot path against the raw document.
		if key == "" {
			return ctx.RawBody
		}
		result := gjson.Get(ctx.RawBody, key)
		if result.Exists() {
			return result.String()
		}
		return ""
	}
}

// resolvePath walks a dot path through nested maps and slices, rendering
// scalars directly and composites as JSON. Missing segments yield "".
func resolvePath(root any, path string) string {
	current := root
	for _, seg := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return ""
			}
			current = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return ""
			}
			current = node[i]
		default:
			return ""
		}
	}

	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// resolveRandom resolves random value generators
func (e *Engine) resolveRandom(key string) string {
	switch {
	case key == "uuid":
		return uuid.New().String()
	case key == "int":
		return strconv.Itoa(e.intn(1000000))
	case strings.HasPrefix(key, "int("):
		params := parseParams(key, "int")
		if len(params) == 2 {
			min, _ := strconv.Atoi(params[0])
			max, _ := strconv.Atoi(params[1])
			if max > min {
				return strconv.Itoa(min + e.intn(max-min+1))
			}
		}
		return strconv.Itoa(e.intn(1000000))
	case key == "float":
		return fmt.Sprintf("%.2f", e.float64n()*1000)
	case strings.HasPrefix(key, "float("):
		params := parseParams(key, "float")
		if len(params) == 2 {
			min, _ := strconv.ParseFloat(params[0], 64)
			max, _ := strconv.ParseFloat(params[1], 64)
			if max > min {
				return fmt.Sprintf("%.2f", min+e.float64n()*(max-min))
			}
		}
		return fmt.Sprintf("%.2f", e.float64n()*1000)
	case key == "string":
		return e.randomString(10)
	case strings.HasPrefix(key, "string("):
		params := parseParams(key, "string")
		if len(params) == 1 {
			length, _ := strconv.Atoi(params[0])
			if length > 0 {
				return e.randomString(length)
			}
		}
		return e.randomString(10)
	case key == "bool":
		if e.intn(2) == 0 {
			return "false"
		}
		return "true"
	case key == "email":
		return fmt.Sprintf("%s@example.com", e.randomString(8))
	}

	return ""
}

// resolveTimestamp resolves timestamp generators
func (e *Engine) resolveTimestamp(key string) string {
	now := time.Now()

	switch {
	case key == "" || key == "unix":
		return strconv.FormatInt(now.Unix(), 10)
	case key == "unixMilli":
		return strconv.FormatInt(now.UnixMilli(), 10)
	case key == "iso":
		return now.Format(time.RFC3339)
	case key == "date":
		return now.Format("2006-01-02")
	case key == "time":
		return now.Format("15:04:05")
	case key == "datetime":
		return now.Format("2006-01-02 15:04:05")
	case strings.HasPrefix(key, "format("):
		params := parseParams(key, "format")
		if len(params) == 1 {
			return now.Format(params[0])
		}
	case strings.HasPrefix(key, "add("):
		params := parseParams(key, "add")
		if len(params) == 1 {
			duration, err := time.ParseDuration(params[0])
			if err == nil {
				return now.Add(duration).Format(time.RFC3339)
			}
		}
	}

	return strconv.FormatInt(now.Unix(), 10)
}

// parseParams extracts parameters from a call like "func(a,b)"
func parseParams(key, funcName string) []string {
	prefix := funcName + "("
	if !strings.HasPrefix(key, prefix) {
		return nil
	}

	paramsStr := strings.TrimPrefix(key, prefix)
	paramsStr = strings.TrimSuffix(paramsStr, ")")
	if paramsStr == "" {
		return nil
	}

	return strings.Split(paramsStr, ",")
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) float64n() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// randomString generates a random alphanumeric string
func (e *Engine) randomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[e.intn(len(charset))]
	}
	return string(result)
}
