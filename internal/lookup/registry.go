// Package lookup is the narrow entity-lookup collaborator behind the
// template renderer's db namespace. Lookups resolve through an explicit
// registry of model tags, never through reflective field enumeration, so
// the lookup surface stays auditable.
package lookup

import (
	"sort"
	"sync"
)

// Finder is the lookup surface the request pipeline consumes: the declared
// request-field bindings plus entity resolution as a flat field map. The
// second return of FindByField is false when nothing matched; a miss is
// never an error.
type Finder interface {
	Bindings() []Binding
	FindByField(model, field, value string) (map[string]any, bool)
}

var _ Finder = (*Registry)(nil)

// Source resolves entities of a single model.
type Source interface {
	FindByField(field, value string) (map[string]any, bool)
}

// Binding declares that a request field (in body or query) identifies an
// entity of a model, e.g. field "username" -> model "user".
type Binding struct {
	Field string
	Model string
}

// Registry maps a closed set of model tags to their sources and implements
// Finder by dispatching on the model tag.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]Source
	bindings map[string]string // request field -> model tag
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources:  make(map[string]Source),
		bindings: make(map[string]string),
	}
}

// Register adds a source under a model tag
func (r *Registry) Register(model string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[model] = src
}

// Bind declares a request-field-to-model binding
func (r *Registry) Bind(field, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[field] = model
}

// FindByField resolves an entity through the registered source for model.
func (r *Registry) FindByField(model, field, value string) (map[string]any, bool) {
	r.mu.RLock()
	src, ok := r.sources[model]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return src.FindByField(field, value)
}

// Bindings returns the declared bindings in deterministic field order.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fields := make([]string, 0, len(r.bindings))
	for f := range r.bindings {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]Binding, 0, len(fields))
	for _, f := range fields {
		out = append(out, Binding{Field: f, Model: r.bindings[f]})
	}
	return out
}
