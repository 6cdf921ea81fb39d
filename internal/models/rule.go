package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rule maps a method + path pattern to a synthesized response within a
// project. A rule is in weighted mode when it carries variants; rule-level
// status/headers/template/delay are ignored at serve time in that mode.
type Rule struct {
	ID          string            `json:"id"`
	Seq         uint64            `json:"seq"` // Assigned by storage at create; creation-order tie-break
	ProjectID   string            `json:"projectId"`
	Name        string            `json:"name"`
	Method      string            `json:"method"`      // Compared case-insensitively
	PathPattern string            `json:"pathPattern"` // Regex, matched against the full path
	Enabled     bool              `json:"enabled"`
	StatusCode  int               `json:"statusCode"`
	Headers     map[string]string `json:"headers"`
	BodyTemplate string           `json:"bodyTemplate"` // Can contain template variables
	DelayMs     int               `json:"delayMs"`
	Variants    []Variant         `json:"variants,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Variant is one alternative response within a weighted rule.
type Variant struct {
	Weight     int               `json:"weight" validate:"min=0,max=100"`
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Template   string            `json:"template"` // Can contain template variables
	DelayMs    int               `json:"delayMs"`
}

// Weighted reports whether the rule resolves through a weighted variant set.
func (r *Rule) Weighted() bool {
	return len(r.Variants) > 0
}

// RuleInput represents input for creating/updating a rule
type RuleInput struct {
	Name         string            `json:"name"`
	Method       string            `json:"method" validate:"required"`
	PathPattern  string            `json:"pathPattern" validate:"required"`
	Enabled      *bool             `json:"enabled,omitempty"`
	StatusCode   int               `json:"statusCode"`
	Headers      map[string]string `json:"headers"`
	BodyTemplate string            `json:"bodyTemplate"`
	DelayMs      int               `json:"delayMs"`
	Variants     []Variant         `json:"variants,omitempty" validate:"omitempty,dive"`
}

// RuleUpdate represents input for partially updating a rule
type RuleUpdate struct {
	Name         *string            `json:"name,omitempty"`
	Method       *string            `json:"method,omitempty"`
	PathPattern  *string            `json:"pathPattern,omitempty"`
	Enabled      *bool              `json:"enabled,omitempty"`
	StatusCode   *int               `json:"statusCode,omitempty"`
	Headers      *map[string]string `json:"headers,omitempty"`
	BodyTemplate *string            `json:"bodyTemplate,omitempty"`
	DelayMs      *int               `json:"delayMs,omitempty"`
	Variants     *[]Variant         `json:"variants,omitempty"`
}

// ValidateVariants enforces the write-boundary weight invariant: every
// variant weight is an integer in [0,100] and the set sums to exactly 100.
// The serve path trusts this and never re-checks.
func ValidateVariants(variants []Variant) error {
	if len(variants) == 0 {
		return nil
	}
	total := 0
	for i, v := range variants {
		if v.Weight < 0 || v.Weight > 100 {
			return fmt.Errorf("variant %d: weight %d out of range [0,100]", i, v.Weight)
		}
		total += v.Weight
	}
	if total != 100 {
		return fmt.Errorf("variant weights must sum to 100, got %d", total)
	}
	return nil
}

// Validate checks a rule input at the write boundary: method and pattern
// present, pattern compiles, weights sum to 100 in weighted mode.
func (in *RuleInput) Validate() error {
	if strings.TrimSpace(in.Method) == "" {
		return fmt.Errorf("method is required")
	}
	if strings.TrimSpace(in.PathPattern) == "" {
		return fmt.Errorf("pathPattern is required")
	}
	if _, err := regexp.Compile(in.PathPattern); err != nil {
		return fmt.Errorf("invalid pathPattern: %w", err)
	}
	return ValidateVariants(in.Variants)
}
