// Package requestctx builds the execution context a template renders
// against: the inbound request's method, path, headers, query, parsed and
// raw body, plus an optional db namespace filled by the lookup
// collaborator.
package requestctx

import (
	"encoding/json"
	"mime"
	"net/url"
	"strings"

	"github.com/hcplat/mockapi/internal/lookup"
)

// Context is the data exposed to the template renderer for one request.
// Body holds the best-effort parsed request body: decoded JSON for JSON
// content types, a multi-valued map for form posts, and the raw string
// otherwise (including unparseable JSON). DB is nil unless a lookup
// succeeded.
type Context struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
	RawBody string
	DB      map[string]any
}

// Build assembles the context from raw request parts. Body parsing never
// fails the request; a malformed body degrades to its raw string form.
func Build(method, path string, headers, query map[string]string, rawBody []byte) *Context {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if headers == nil {
		headers = make(map[string]string)
	}
	if query == nil {
		query = make(map[string]string)
	}

	raw := string(rawBody)
	ctx := &Context{
		Method:  strings.ToUpper(method),
		Path:    path,
		Headers: headers,
		Query:   query,
		RawBody: raw,
	}
	ctx.Body = parseBody(raw, contentType(headers))

	return ctx
}

// contentType extracts the media type from the context headers,
// case-insensitively and ignoring parameters like charset.
func contentType(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			mt, _, err := mime.ParseMediaType(v)
			if err != nil {
				return strings.ToLower(strings.TrimSpace(v))
			}
			return mt
		}
	}
	return ""
}

// parseBody decodes the raw body by content type, falling back to the raw
// string on any decode failure.
func parseBody(raw, mediaType string) any {
	if raw == "" {
		return ""
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return raw
		}
		return parsed
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(raw)
		if err != nil {
			return raw
		}
		return map[string][]string(values)
	default:
		return raw
	}
}

// NeedsLookup reports whether a body template textually references the db
// namespace, which is the trigger for the single best-effort entity lookup.
func NeedsLookup(template string) bool {
	return strings.Contains(template, "db.")
}

// Augment performs at most one entity lookup through the finder's
// declared bindings and, on a hit, exposes the entity's fields under the
// context's db namespace. Misses and absent finders leave the context
// untouched; this never fails.
func (c *Context) Augment(reg lookup.Finder) {
	if reg == nil {
		return
	}

	for _, b := range reg.Bindings() {
		value, ok := c.fieldValue(b.Field)
		if !ok {
			continue
		}
		if entity, found := reg.FindByField(b.Model, b.Field, value); found {
			c.DB = entity
		}
		return
	}
}

// fieldValue looks a binding field up in the parsed body first, then the
// query parameters.
func (c *Context) fieldValue(field string) (string, bool) {
	switch body := c.Body.(type) {
	case map[string]any:
		if v, ok := body[field]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	case map[string][]string:
		if vs, ok := body[field]; ok && len(vs) > 0 && vs[0] != "" {
			return vs[0], true
		}
	}

	if v, ok := c.Query[field]; ok && v != "" {
		return v, true
	}
	return "", false
}
