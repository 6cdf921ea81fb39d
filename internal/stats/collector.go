// Package stats aggregates request counters for the admin API.
package stats

import (
	"sort"
	"sync"
	"time"
)

// RuleStat aggregates request outcomes for one rule.
type RuleStat struct {
	RuleID        string    `json:"ruleId"`
	ProjectID     string    `json:"projectId"`
	Method        string    `json:"method"`
	PathPattern   string    `json:"pathPattern"`
	TotalRequests int64     `json:"totalRequests"`
	TotalErrors   int64     `json:"totalErrors"`
	MinTimeNs     int64     `json:"minTimeNs"`
	MaxTimeNs     int64     `json:"maxTimeNs"`
	AvgTimeNs     int64     `json:"avgTimeNs"`
	LastRequest   time.Time `json:"lastRequest"`

	totalTimeNs int64
}

// Summary is the collector-wide view.
type Summary struct {
	Uptime        string      `json:"uptime"`
	TotalRequests int64       `json:"totalRequests"`
	TotalErrors   int64       `json:"totalErrors"`
	Unmatched     int64       `json:"unmatched"`
	Rules         []*RuleStat `json:"rules"`
}

// Collector aggregates per-rule statistics
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	rules     map[string]*RuleStat
	unmatched int64
}

// NewCollector creates a new statistics collector
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		rules:     make(map[string]*RuleStat),
	}
}

// RecordRequest records one handled request against its matched rule.
func (c *Collector) RecordRequest(projectID, ruleID, method, pathPattern string, duration time.Duration, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.rules[ruleID]
	if !ok {
		st = &RuleStat{
			RuleID:      ruleID,
			ProjectID:   projectID,
			Method:      method,
			PathPattern: pathPattern,
			MinTimeNs:   duration.Nanoseconds(),
		}
		c.rules[ruleID] = st
	}

	ns := duration.Nanoseconds()
	st.TotalRequests++
	st.totalTimeNs += ns
	st.AvgTimeNs = st.totalTimeNs / st.TotalRequests
	st.LastRequest = time.Now()
	if ns < st.MinTimeNs {
		st.MinTimeNs = ns
	}
	if ns > st.MaxTimeNs {
		st.MaxTimeNs = ns
	}
	if isError {
		st.TotalErrors++
	}
}

// RecordUnmatched records a request no rule matched.
func (c *Collector) RecordUnmatched() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmatched++
}

// Summary returns the collector-wide aggregate, busiest rules first.
func (c *Collector) Summary() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rules := make([]*RuleStat, 0, len(c.rules))
	var requests, errors int64
	for _, st := range c.rules {
		copied := *st
		rules = append(rules, &copied)
		requests += st.TotalRequests
		errors += st.TotalErrors
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].TotalRequests > rules[j].TotalRequests
	})

	return &Summary{
		Uptime:        time.Since(c.startTime).Round(time.Second).String(),
		TotalRequests: requests + c.unmatched,
		TotalErrors:   errors,
		Unmatched:     c.unmatched,
		Rules:         rules,
	}
}

// ProjectSummary returns stats for one project's rules.
func (c *Collector) ProjectSummary(projectID string) []*RuleStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rules := make([]*RuleStat, 0)
	for _, st := range c.rules {
		if st.ProjectID != projectID {
			continue
		}
		copied := *st
		rules = append(rules, &copied)
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].TotalRequests > rules[j].TotalRequests
	})

	return rules
}

// Reset clears all collected statistics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.rules = make(map[string]*RuleStat)
	c.unmatched = 0
}
