package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hcplat/mockapi/internal/engine"
	"github.com/hcplat/mockapi/internal/storage"
	tmpl "github.com/hcplat/mockapi/internal/template"
)

// Dispatcher is the thin HTTP glue between inbound mock requests and the
// engine. Mock URLs have the shape /{projectName}/{mockPath...}; the
// engine's response is emitted verbatim.
type Dispatcher struct {
	store  storage.Store
	engine *engine.Engine
	log    *logrus.Logger
}

// NewDispatcher creates a new mock request dispatcher
func NewDispatcher(store storage.Store, eng *engine.Engine, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{store: store, engine: eng, log: log}
}

// Handle dispatches one mock request
func (d *Dispatcher) Handle(c *gin.Context) {
	projectName, mockPath := splitMockPath(c.Request.URL.Path)
	if projectName == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	project, err := d.store.GetProjectByName(projectName)
	if err != nil {
		// No project scope exists, so there is nothing to log under.
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	var rawBody []byte
	if c.Request.Body != nil {
		rawBody, _ = io.ReadAll(c.Request.Body)
	}

	req := &engine.Request{
		Method:  c.Request.Method,
		Path:    mockPath,
		Headers: firstValues(c.Request.Header),
		Query:   firstValues(c.Request.URL.Query()),
		RawBody: rawBody,
	}

	result, err := d.engine.Handle(c.Request.Context(), project.ID, req)
	if err != nil {
		d.writeError(c, err)
		return
	}

	for key, value := range result.Headers {
		c.Header(key, value)
	}
	c.String(result.StatusCode, result.Body)
}

// writeError maps engine outcomes to HTTP statuses: no match is 404,
// template failures are 500 with the message, anything else is opaque.
func (d *Dispatcher) writeError(c *gin.Context, err error) {
	if errors.Is(err, engine.ErrNoRuleMatched) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no mock rule matched"})
		return
	}

	var terr *tmpl.Error
	if errors.As(err, &terr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": terr.Error()})
		return
	}

	if errors.Is(err, c.Request.Context().Err()) && c.Request.Context().Err() != nil {
		// Client went away; nothing useful to write.
		c.Abort()
		return
	}

	d.log.WithError(err).Error("mock dispatch failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// splitMockPath splits /{project}/{rest...} into the project mount name
// and the mock path. The mock path always keeps its leading slash; a bare
// /{project} maps to "/".
func splitMockPath(urlPath string) (string, string) {
	trimmed := strings.TrimPrefix(urlPath, "/")
	if trimmed == "" {
		return "", ""
	}

	name, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return name, "/"
	}
	return name, "/" + rest
}

// firstValues flattens a multi-valued map to its first values.
func firstValues(in map[string][]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, vs := range in {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
