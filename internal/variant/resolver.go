// Package variant resolves which concrete response a matched rule emits.
package variant

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hcplat/mockapi/internal/models"
)

// Resolved is the concrete response chosen for a matched rule: either the
// rule's single response or one weighted variant. For weighted rules the
// status, headers and delay always come from the chosen variant; rule-level
// values are ignored in that mode.
type Resolved struct {
	StatusCode int
	Headers    map[string]string
	Template   string
	DelayMs    int
}

// Resolver performs weighted random draws over variant sets. Weights are
// validated to sum to 100 at the write boundary and are trusted here.
type Resolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver creates a resolver seeded from the wall clock
func NewResolver() *Resolver {
	return NewResolverWithSeed(time.Now().UnixNano())
}

// NewResolverWithSeed creates a resolver with a fixed seed, for tests
func NewResolverWithSeed(seed int64) *Resolver {
	return &Resolver{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Resolve picks the response for a matched rule. Single-response rules
// return the rule's own fields; weighted rules draw a variant with
// probability proportional to its weight via cumulative-weight binary
// search.
func (r *Resolver) Resolve(rule *models.Rule) *Resolved {
	if !rule.Weighted() {
		return &Resolved{
			StatusCode: rule.StatusCode,
			Headers:    rule.Headers,
			Template:   rule.BodyTemplate,
			DelayMs:    rule.DelayMs,
		}
	}

	v := rule.Variants[r.draw(rule.Variants)]
	return &Resolved{
		StatusCode: v.StatusCode,
		Headers:    v.Headers,
		Template:   v.Template,
		DelayMs:    v.DelayMs,
	}
}

// draw returns the index of the chosen variant.
func (r *Resolver) draw(variants []models.Variant) int {
	if len(variants) == 1 {
		return 0
	}

	cum := make([]int, len(variants))
	total := 0
	for i, v := range variants {
		total += v.Weight
		cum[i] = total
	}
	if total <= 0 {
		return 0
	}

	r.mu.Lock()
	x := r.rng.Intn(total)
	r.mu.Unlock()

	// First index whose cumulative weight exceeds x; zero-weight variants
	// can never be chosen.
	return sort.SearchInts(cum, x+1)
}
