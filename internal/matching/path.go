package matching

import (
	"fmt"
	"regexp"
	"sync"
)

// CompiledPattern is a rule path pattern compiled for full-string matching.
type CompiledPattern struct {
	source string
	re     *regexp.Regexp
}

// Compile compiles a rule path pattern. The pattern is anchored so that the
// entire request path must match; a pattern like `/a` will not match `/a/b`.
func Compile(pattern string) (*CompiledPattern, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}

	return &CompiledPattern{source: pattern, re: re}, nil
}

// Matches reports whether path matches the full pattern.
func (p *CompiledPattern) Matches(path string) bool {
	return p.re.MatchString(path)
}

// Source returns the original pattern text.
func (p *CompiledPattern) Source() string {
	return p.source
}

// PatternCache caches compiled patterns keyed by their source text. Because
// the key is the pattern itself, a cached entry can never go stale when
// rules are mutated; edited patterns simply compile under a new key.
// Compile failures are cached too so broken rules don't recompile per
// request.
type PatternCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	compiled *CompiledPattern
	err      error
}

// NewPatternCache creates an empty pattern cache
func NewPatternCache() *PatternCache {
	return &PatternCache{
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the compiled form of pattern, compiling and caching it on
// first use.
func (c *PatternCache) Get(pattern string) (*CompiledPattern, error) {
	c.mu.RLock()
	entry, ok := c.entries[pattern]
	c.mu.RUnlock()
	if ok {
		return entry.compiled, entry.err
	}

	compiled, err := Compile(pattern)

	c.mu.Lock()
	c.entries[pattern] = &cacheEntry{compiled: compiled, err: err}
	c.mu.Unlock()

	return compiled, err
}

// Len returns the number of cached patterns
func (c *PatternCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
