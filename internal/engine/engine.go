// Package engine runs the request-matching and response-synthesis
// pipeline: select a rule, resolve a variant, build the execution context,
// render the template, simulate latency, and record the transaction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hcplat/mockapi/internal/latency"
	"github.com/hcplat/mockapi/internal/lookup"
	"github.com/hcplat/mockapi/internal/matching"
	"github.com/hcplat/mockapi/internal/models"
	"github.com/hcplat/mockapi/internal/requestctx"
	"github.com/hcplat/mockapi/internal/stats"
	"github.com/hcplat/mockapi/internal/storage"
	"github.com/hcplat/mockapi/internal/template"
	"github.com/hcplat/mockapi/internal/txlog"
	"github.com/hcplat/mockapi/internal/variant"
)

// ErrNoRuleMatched is the first-class "no mock configured" outcome. The
// dispatch layer turns it into a 404; a transaction record with a null
// matched-rule reference has already been written when it is returned.
var ErrNoRuleMatched = errors.New("no mock rule matched")

// Request is one inbound mock request, already stripped of its project
// mount segment.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	RawBody []byte
}

// Result is the synthesized response, emitted verbatim by the dispatcher.
type Result struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Engine wires the pipeline stages around a rule store and transaction log
type Engine struct {
	store    storage.Store
	selector *matching.Selector
	resolver *variant.Resolver
	renderer *template.Engine
	lookups  lookup.Finder
	txlog    *txlog.Service
	stats    *stats.Collector
	log      *logrus.Logger
}

// New creates an engine over the given collaborators. lookups may be nil
// when no entity lookup is configured; collector may be nil to disable
// stats.
func New(store storage.Store, txs *txlog.Service, collector *stats.Collector, lookups lookup.Finder, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if collector == nil {
		collector = stats.NewCollector()
	}
	return &Engine{
		store:    store,
		selector: matching.NewSelector(store, log),
		resolver: variant.NewResolver(),
		renderer: template.NewEngine(),
		lookups:  lookups,
		txlog:    txs,
		stats:    collector,
		log:      log,
	}
}

// Handle runs the pipeline for one request within a project scope. Every
// outcome except a client cancellation mid-delay records exactly one
// transaction before returning; cancellation records best-effort.
func (e *Engine) Handle(ctx context.Context, projectID string, req *Request) (*Result, error) {
	start := time.Now()
	reqCtx := requestctx.Build(req.Method, req.Path, req.Headers, req.Query, req.RawBody)

	rule, err := e.selector.Select(projectID, reqCtx.Method, reqCtx.Path)
	if err != nil {
		e.record(projectID, reqCtx, nil, 500, "", start)
		return nil, fmt.Errorf("rule selection failed: %w", err)
	}

	if rule == nil {
		e.record(projectID, reqCtx, nil, 404, "", start)
		e.stats.RecordUnmatched()
		return nil, ErrNoRuleMatched
	}

	resolved := e.resolver.Resolve(rule)

	if requestctx.NeedsLookup(resolved.Template) {
		reqCtx.Augment(e.lookups)
	}

	headers, err := e.renderer.RenderHeaders(resolved.Headers, reqCtx)
	if err != nil {
		return nil, e.templateFailure(projectID, rule, reqCtx, start, err)
	}

	body, err := e.renderer.Render(resolved.Template, reqCtx)
	if err != nil {
		return nil, e.templateFailure(projectID, rule, reqCtx, start, err)
	}

	if err := latency.Sleep(ctx, resolved.DelayMs); err != nil {
		// Client went away mid-delay; log the attempt best-effort.
		e.record(projectID, reqCtx, &rule.ID, resolved.StatusCode, body, start)
		return nil, err
	}

	if headers == nil {
		headers = make(map[string]string)
	}
	if !hasContentType(headers) && body != "" {
		headers["Content-Type"] = "application/json"
	}

	e.record(projectID, reqCtx, &rule.ID, resolved.StatusCode, body, start)
	e.stats.RecordRequest(projectID, rule.ID, rule.Method, rule.PathPattern, time.Since(start), resolved.StatusCode >= 400)

	return &Result{
		StatusCode: resolved.StatusCode,
		Headers:    headers,
		Body:       body,
	}, nil
}

// templateFailure logs the request with the server-error status the
// dispatcher will emit and returns the template error unchanged.
func (e *Engine) templateFailure(projectID string, rule *models.Rule, reqCtx *requestctx.Context, start time.Time, err error) error {
	e.log.WithFields(logrus.Fields{
		"ruleId": rule.ID,
	}).WithError(err).Warn("template rendering failed")
	e.record(projectID, reqCtx, &rule.ID, 500, err.Error(), start)
	e.stats.RecordRequest(projectID, rule.ID, rule.Method, rule.PathPattern, time.Since(start), true)
	return err
}

// record writes the transaction for this request.
func (e *Engine) record(projectID string, reqCtx *requestctx.Context, ruleID *string, status int, responseBody string, start time.Time) {
	e.txlog.Record(&models.Transaction{
		ProjectID:     projectID,
		Timestamp:     start,
		Method:        reqCtx.Method,
		Path:          reqCtx.Path,
		Headers:       reqCtx.Headers,
		Query:         reqCtx.Query,
		Body:          reqCtx.Body,
		RawBody:       reqCtx.RawBody,
		MatchedRuleID: ruleID,
		StatusCode:    status,
		ResponseBody:  responseBody,
		DurationMs:    time.Since(start).Milliseconds(),
	})
}

func hasContentType(headers map[string]string) bool {
	for k := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return true
		}
	}
	return false
}
