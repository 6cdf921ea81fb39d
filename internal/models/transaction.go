package models

import (
	"time"
)

// Transaction is an immutable audit record for one handled mock request,
// matched or not. MatchedRuleID is nil when no rule matched; a non-nil ID
// may reference a rule deleted after the fact (dangling is fine, records
// are historical).
type Transaction struct {
	ID            string            `json:"id"`
	Seq           uint64            `json:"seq"` // Monotonic insert order, eviction key
	ProjectID     string            `json:"projectId"`
	Timestamp     time.Time         `json:"timestamp"`
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Headers       map[string]string `json:"headers"`
	Query         map[string]string `json:"query"`
	Body          any               `json:"body"` // Best-effort parsed by content type
	RawBody       string            `json:"rawBody"`
	MatchedRuleID *string           `json:"matchedRuleId"`
	StatusCode    int               `json:"statusCode"`
	ResponseBody  string            `json:"responseBody"`
	DurationMs    int64             `json:"durationMs"`
}

// TransactionPage is one page of transaction records, newest first.
type TransactionPage struct {
	Records []*Transaction `json:"records"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}
