package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hcplat/mockapi/internal/importer"
	"github.com/hcplat/mockapi/internal/models"
	"github.com/hcplat/mockapi/internal/stats"
	"github.com/hcplat/mockapi/internal/storage"
	"github.com/hcplat/mockapi/internal/txlog"
)

// Handler serves the admin API: project and rule CRUD, transaction log
// access, statistics, and OpenAPI import. All rule mutation flows through
// here; the engine only reads.
type Handler struct {
	store     storage.Store
	txlog     *txlog.Service
	collector *stats.Collector
	importer  *importer.Importer
	validate  *validator.Validate
	log       *logrus.Logger
}

// NewHandler creates a new admin API handler
func NewHandler(store storage.Store, txs *txlog.Service, collector *stats.Collector, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		store:     store,
		txlog:     txs,
		collector: collector,
		importer:  importer.NewImporter(),
		validate:  validator.New(),
		log:       log,
	}
}

// ListProjects returns all projects
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.store.GetAllProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := make([]gin.H, len(projects))
	for i, p := range projects {
		rules, _ := h.store.GetRulesByProject(p.ID)
		result[i] = gin.H{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"createdAt":   p.CreatedAt,
			"updatedAt":   p.UpdatedAt,
			"ruleCount":   len(rules),
		}
	}

	c.JSON(http.StatusOK, result)
}

// CreateProject creates a new project
func (h *Handler) CreateProject(c *gin.Context) {
	var input models.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	project := &models.Project{
		ID:          uuid.New().String(),
		Name:        models.NormalizeProjectName(input.Name),
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if project.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name is required"})
		return
	}

	if err := h.store.CreateProject(project); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProject returns a single project
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.store.GetProject(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, project)
}

// UpdateProject updates a project
func (h *Handler) UpdateProject(c *gin.Context) {
	project, err := h.store.GetProject(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var update models.ProjectUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := *project
	if update.Name != nil {
		updated.Name = models.NormalizeProjectName(*update.Name)
		if updated.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "project name cannot be empty"})
			return
		}
	}
	if update.Description != nil {
		updated.Description = *update.Description
	}
	updated.UpdatedAt = time.Now()

	if err := h.store.UpdateProject(&updated); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, &updated)
}

// DeleteProject deletes a project and its rules
func (h *Handler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteProject(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.txlog.ClearByProject(id)
	c.Status(http.StatusNoContent)
}

// ListRules returns all rules of a project in creation order
func (h *Handler) ListRules(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.store.GetProject(projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	rules, err := h.store.GetRulesByProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rules)
}

// CreateRule creates a rule under a project. Weight validation happens
// here, at the write boundary; the serve path trusts it.
func (h *Handler) CreateRule(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.store.GetProject(projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var input models.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := ruleFromInput(projectID, &input)
	if err := h.store.CreateRule(rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule returns a single rule
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.store.GetRule(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateRule partially updates a rule
func (h *Handler) UpdateRule(c *gin.Context) {
	rule, err := h.store.GetRule(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var update models.RuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := *rule
	applyRuleUpdate(&updated, &update)

	input := models.RuleInput{
		Method:      updated.Method,
		PathPattern: updated.PathPattern,
		Variants:    updated.Variants,
	}
	if err := input.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if updated.Weighted() {
		clearSingleResponse(&updated)
	}
	updated.UpdatedAt = time.Now()

	if err := h.store.UpdateRule(&updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, &updated)
}

// ToggleRule flips a rule's enabled flag
func (h *Handler) ToggleRule(c *gin.Context) {
	rule, err := h.store.GetRule(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	updated := *rule
	updated.Enabled = !updated.Enabled
	updated.UpdatedAt = time.Now()

	if err := h.store.UpdateRule(&updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, &updated)
}

// DeleteRule deletes a rule
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.store.DeleteRule(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportOpenAPI creates rules for every operation of an OpenAPI document
func (h *Handler) ImportOpenAPI(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.store.GetProject(projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil || len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be an OpenAPI document"})
		return
	}

	inputs, err := h.importer.Import(string(content))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created := make([]*models.Rule, 0, len(inputs))
	for _, input := range inputs {
		if err := input.Validate(); err != nil {
			h.log.WithError(err).Warn("skipping unimportable operation")
			continue
		}
		rule := ruleFromInput(projectID, input)
		if err := h.store.CreateRule(rule); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		created = append(created, rule)
	}

	c.JSON(http.StatusCreated, gin.H{"imported": len(created), "rules": created})
}

// ListTransactions returns one page of the transaction log, newest first
func (h *Handler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	c.JSON(http.StatusOK, h.txlog.List(page, limit))
}

// GetTransaction returns a single transaction record
func (h *Handler) GetTransaction(c *gin.Context) {
	tx := h.txlog.Get(c.Param("id"))
	if tx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ClearTransactions deletes all transaction records
func (h *Handler) ClearTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"deleted": h.txlog.Clear()})
}

// GetStats returns the collector-wide statistics
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.collector.Summary())
}

// GetProjectStats returns per-rule statistics for one project
func (h *Handler) GetProjectStats(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.store.GetProject(projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.collector.ProjectSummary(projectID))
}

// ResetStats clears collected statistics
func (h *Handler) ResetStats(c *gin.Context) {
	h.collector.Reset()
	c.Status(http.StatusNoContent)
}

// HealthCheck reports liveness
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"txlog":  h.txlog.Stats(),
	})
}

// ruleFromInput builds a rule from validated input. Weighted rules drop
// their rule-level single-response fields.
func ruleFromInput(projectID string, input *models.RuleInput) *models.Rule {
	now := time.Now()
	rule := &models.Rule{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Name:         input.Name,
		Method:       input.Method,
		PathPattern:  input.PathPattern,
		Enabled:      true,
		StatusCode:   input.StatusCode,
		Headers:      input.Headers,
		BodyTemplate: input.BodyTemplate,
		DelayMs:      input.DelayMs,
		Variants:     input.Variants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if rule.StatusCode == 0 {
		rule.StatusCode = 200
	}
	if rule.Weighted() {
		clearSingleResponse(rule)
	}

	return rule
}

func applyRuleUpdate(rule *models.Rule, update *models.RuleUpdate) {
	if update.Name != nil {
		rule.Name = *update.Name
	}
	if update.Method != nil {
		rule.Method = *update.Method
	}
	if update.PathPattern != nil {
		rule.PathPattern = *update.PathPattern
	}
	if update.Enabled != nil {
		rule.Enabled = *update.Enabled
	}
	if update.StatusCode != nil {
		rule.StatusCode = *update.StatusCode
	}
	if update.Headers != nil {
		rule.Headers = *update.Headers
	}
	if update.BodyTemplate != nil {
		rule.BodyTemplate = *update.BodyTemplate
	}
	if update.DelayMs != nil {
		rule.DelayMs = *update.DelayMs
	}
	if update.Variants != nil {
		rule.Variants = *update.Variants
	}
}

// clearSingleResponse zeroes rule-level response fields once a rule is in
// weighted mode; the resolver ignores them anyway.
func clearSingleResponse(rule *models.Rule) {
	rule.StatusCode = 0
	rule.Headers = nil
	rule.BodyTemplate = ""
	rule.DelayMs = 0
}
