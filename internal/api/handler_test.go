package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hcplat/mockapi/internal/engine"
	"github.com/hcplat/mockapi/internal/models"
	"github.com/hcplat/mockapi/internal/stats"
	"github.com/hcplat/mockapi/internal/storage"
	"github.com/hcplat/mockapi/internal/txlog"
)

func newTestRouter(t *testing.T) (http.Handler, storage.Store) {
	t.Helper()

	store := storage.NewMemoryStore()
	txs := txlog.NewService(100)
	collector := stats.NewCollector()
	eng := engine.New(store, txs, collector, nil, nil)
	router := NewRouter(store, eng, txs, collector, nil)

	return router.Handler(), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createTestProject(t *testing.T, h http.Handler, name string) models.Project {
	t.Helper()

	w := doJSON(t, h, "POST", "/_api/projects", map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: status %d, body %s", w.Code, w.Body.String())
	}

	var p models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return p
}

func TestCreateProject_API(t *testing.T) {
	h, _ := newTestRouter(t)

	p := createTestProject(t, h, "Payments")
	if p.Name != "payments" {
		t.Errorf("name not normalized: %q", p.Name)
	}
	if p.ID == "" {
		t.Error("no ID assigned")
	}
}

func TestCreateProject_Validation(t *testing.T) {
	h, _ := newTestRouter(t)

	w := doJSON(t, h, "POST", "/_api/projects", map[string]string{"description": "no name"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateProject_DuplicateName(t *testing.T) {
	h, _ := newTestRouter(t)
	createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects", map[string]string{"name": "DEMO"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 for duplicate name", w.Code)
	}
}

func TestListProjects_IncludesRuleCount(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:      "GET",
		PathPattern: "/x",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create rule: %d", w.Code)
	}

	w = doJSON(t, h, "GET", "/_api/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list projects: %d", w.Code)
	}

	var list []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d projects", len(list))
	}
	if list[0]["ruleCount"] != float64(1) {
		t.Errorf("ruleCount = %v", list[0]["ruleCount"])
	}
}

func TestUpdateProject_API(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "old-name")

	w := doJSON(t, h, "PUT", "/_api/projects/"+p.ID, map[string]string{"name": "New-Name"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var updated models.Project
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Name != "new-name" {
		t.Errorf("name = %q", updated.Name)
	}
}

func TestDeleteProject_API(t *testing.T) {
	h, store := newTestRouter(t)
	p := createTestProject(t, h, "doomed")

	w := doJSON(t, h, "DELETE", "/_api/projects/"+p.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	if _, err := store.GetProject(p.ID); err == nil {
		t.Error("project still present after delete")
	}

	w = doJSON(t, h, "DELETE", "/_api/projects/"+p.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCreateRule_WeightValidationAtWriteBoundary(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	tests := []struct {
		name     string
		variants []models.Variant
		want     int
	}{
		{
			name: "sum 100 accepted",
			variants: []models.Variant{
				{Weight: 30, Template: "a"},
				{Weight: 70, Template: "b"},
			},
			want: http.StatusCreated,
		},
		{
			name: "sum 90 rejected",
			variants: []models.Variant{
				{Weight: 30, Template: "a"},
				{Weight: 60, Template: "b"},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "sum 110 rejected",
			variants: []models.Variant{
				{Weight: 50, Template: "a"},
				{Weight: 60, Template: "b"},
			},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
				Method:      "POST",
				PathPattern: "/login",
				Variants:    tt.variants,
			})
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCreateRule_InvalidPattern(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:      "GET",
		PathPattern: "/users/[",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid pattern", w.Code)
	}
}

func TestCreateRule_Defaults(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:      "GET",
		PathPattern: "/x",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	var rule models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &rule)
	if !rule.Enabled {
		t.Error("rule not enabled by default")
	}
	if rule.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want default 200", rule.StatusCode)
	}
}

func TestCreateRule_WeightedDropsSingleResponseFields(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:       "GET",
		PathPattern:  "/x",
		StatusCode:   200,
		BodyTemplate: "ignored",
		Variants: []models.Variant{
			{Weight: 100, StatusCode: 418, Template: "teapot"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	var rule models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &rule)
	if rule.BodyTemplate != "" || rule.StatusCode != 0 {
		t.Errorf("rule-level response fields kept in weighted mode: %+v", rule)
	}
}

func TestUpdateRule_PartialUpdate(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:       "GET",
		PathPattern:  "/x",
		BodyTemplate: "before",
	})
	var rule models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &rule)

	w = doJSON(t, h, "PUT", "/_api/rules/"+rule.ID, map[string]any{"bodyTemplate": "after"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var updated models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.BodyTemplate != "after" {
		t.Errorf("BodyTemplate = %q", updated.BodyTemplate)
	}
	if updated.Method != "GET" || updated.PathPattern != "/x" {
		t.Error("untouched fields were modified")
	}
}

func TestUpdateRule_RejectsBadWeights(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:      "GET",
		PathPattern: "/x",
	})
	var rule models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &rule)

	w = doJSON(t, h, "PUT", "/_api/rules/"+rule.ID, map[string]any{
		"variants": []models.Variant{{Weight: 50, Template: "a"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for weights summing to 50", w.Code)
	}
}

func TestToggleRule(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:      "GET",
		PathPattern: "/x",
	})
	var rule models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &rule)

	w = doJSON(t, h, "PUT", "/_api/rules/"+rule.ID+"/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var toggled models.Rule
	_ = json.Unmarshal(w.Body.Bytes(), &toggled)
	if toggled.Enabled {
		t.Error("rule still enabled after toggle")
	}
}

func TestTransactionLogEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	w := doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:       "GET",
		PathPattern:  "/ping",
		BodyTemplate: "pong",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create rule: %d", w.Code)
	}

	// Drive some mock traffic
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/demo/ping", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("mock request %d: %d", i, rec.Code)
		}
	}

	w = doJSON(t, h, "GET", "/_api/logs?page=1&limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list logs: %d", w.Code)
	}

	var page models.TransactionPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
	if len(page.Records) != 2 {
		t.Errorf("got %d records, want limit 2", len(page.Records))
	}

	// Single record fetch
	w = doJSON(t, h, "GET", "/_api/logs/"+page.Records[0].ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get log: %d", w.Code)
	}

	// Clear
	w = doJSON(t, h, "DELETE", "/_api/logs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear logs: %d", w.Code)
	}
	var cleared map[string]int
	_ = json.Unmarshal(w.Body.Bytes(), &cleared)
	if cleared["deleted"] != 3 {
		t.Errorf("deleted = %d", cleared["deleted"])
	}
}

func TestStatsEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	doJSON(t, h, "POST", "/_api/projects/"+p.ID+"/rules", models.RuleInput{
		Method:       "GET",
		PathPattern:  "/ping",
		BodyTemplate: "pong",
	})

	req := httptest.NewRequest("GET", "/demo/ping", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	w := doJSON(t, h, "GET", "/_api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d", w.Code)
	}
	var summary stats.Summary
	_ = json.Unmarshal(w.Body.Bytes(), &summary)
	if summary.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d", summary.TotalRequests)
	}

	w = doJSON(t, h, "GET", fmt.Sprintf("/_api/projects/%s/stats", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("project stats: %d", w.Code)
	}

	w = doJSON(t, h, "POST", "/_api/stats/reset", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("reset: %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestRouter(t)

	w := doJSON(t, h, "GET", "/_api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestImportOpenAPI_API(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "petstore")

	doc := `{
		"openapi": "3.0.0",
		"info": {"title": "Pets", "version": "1.0.0"},
		"paths": {
			"/pets/{petId}": {
				"get": {
					"operationId": "getPet",
					"responses": {
						"200": {
							"description": "a pet",
							"content": {
								"application/json": {
									"example": {"name": "rex"}
								}
							}
						}
					}
				}
			}
		}
	}`

	req := httptest.NewRequest("POST", "/_api/projects/"+p.ID+"/import", bytes.NewBufferString(doc))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("import: %d, body %s", w.Code, w.Body.String())
	}

	var result struct {
		Imported int            `json:"imported"`
		Rules    []*models.Rule `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Imported != 1 {
		t.Fatalf("imported = %d", result.Imported)
	}
	if result.Rules[0].PathPattern != `/pets/([^/]+)` {
		t.Errorf("pattern = %q", result.Rules[0].PathPattern)
	}

	// The imported rule serves immediately
	req = httptest.NewRequest("GET", "/petstore/pets/7", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("imported rule did not serve: %d", rec.Code)
	}
}

func TestImportOpenAPI_InvalidDocument(t *testing.T) {
	h, _ := newTestRouter(t)
	p := createTestProject(t, h, "demo")

	req := httptest.NewRequest("POST", "/_api/projects/"+p.ID+"/import", bytes.NewBufferString("not openapi"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
