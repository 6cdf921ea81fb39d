package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hcplat/mockapi/internal/models"
)

// MemoryStore implements Store with in-memory maps
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*models.Project
	rules    map[string]*models.Rule
	nextSeq  uint64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*models.Project),
		rules:    make(map[string]*models.Rule),
	}
}

// CreateProject creates a new project
func (m *MemoryStore) CreateProject(p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.projects[p.ID]; exists {
		return fmt.Errorf("project with ID %s already exists", p.ID)
	}
	for _, existing := range m.projects {
		if existing.Name == p.Name {
			return fmt.Errorf("project with name %s already exists", p.Name)
		}
	}

	m.projects[p.ID] = p
	return nil
}

// GetProject retrieves a project by ID
func (m *MemoryStore) GetProject(id string) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.projects[id]
	if !exists {
		return nil, fmt.Errorf("project not found: %s", id)
	}

	return p, nil
}

// GetProjectByName retrieves a project by its normalized name
func (m *MemoryStore) GetProjectByName(name string) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = models.NormalizeProjectName(name)
	for _, p := range m.projects {
		if p.Name == name {
			return p, nil
		}
	}

	return nil, fmt.Errorf("project not found: %s", name)
}

// GetAllProjects retrieves all projects sorted by name
func (m *MemoryStore) GetAllProjects() ([]*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]*models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})

	return projects, nil
}

// UpdateProject updates a project
func (m *MemoryStore) UpdateProject(p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.projects[p.ID]; !exists {
		return fmt.Errorf("project not found: %s", p.ID)
	}
	for _, existing := range m.projects {
		if existing.ID != p.ID && existing.Name == p.Name {
			return fmt.Errorf("project with name %s already exists", p.Name)
		}
	}

	m.projects[p.ID] = p
	return nil
}

// DeleteProject deletes a project and cascades to its rules
func (m *MemoryStore) DeleteProject(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.projects[id]; !exists {
		return fmt.Errorf("project not found: %s", id)
	}

	delete(m.projects, id)
	for ruleID, r := range m.rules {
		if r.ProjectID == id {
			delete(m.rules, ruleID)
		}
	}

	return nil
}

// CreateRule creates a new rule and assigns its creation sequence
func (m *MemoryStore) CreateRule(r *models.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rules[r.ID]; exists {
		return fmt.Errorf("rule with ID %s already exists", r.ID)
	}
	if _, exists := m.projects[r.ProjectID]; !exists {
		return fmt.Errorf("project not found: %s", r.ProjectID)
	}

	m.nextSeq++
	r.Seq = m.nextSeq
	m.rules[r.ID] = r
	return nil
}

// GetRule retrieves a rule by ID
func (m *MemoryStore) GetRule(id string) (*models.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule not found: %s", id)
	}

	return r, nil
}

// GetRulesByProject retrieves all rules for a project in creation order
func (m *MemoryStore) GetRulesByProject(projectID string) ([]*models.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]*models.Rule, 0)
	for _, r := range m.rules {
		if r.ProjectID == projectID {
			rules = append(rules, r)
		}
	}

	sortRulesByCreation(rules)
	return rules, nil
}

// ListEnabledRules retrieves enabled rules for a project matching the
// method case-insensitively, ascending by creation order.
func (m *MemoryStore) ListEnabledRules(projectID, method string) ([]*models.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]*models.Rule, 0)
	for _, r := range m.rules {
		if r.ProjectID != projectID || !r.Enabled {
			continue
		}
		if !strings.EqualFold(r.Method, method) {
			continue
		}
		rules = append(rules, r)
	}

	sortRulesByCreation(rules)
	return rules, nil
}

// UpdateRule updates a rule, preserving its creation sequence
func (m *MemoryStore) UpdateRule(r *models.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.rules[r.ID]
	if !exists {
		return fmt.Errorf("rule not found: %s", r.ID)
	}

	r.Seq = existing.Seq
	m.rules[r.ID] = r
	return nil
}

// DeleteRule deletes a rule
func (m *MemoryStore) DeleteRule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rules[id]; !exists {
		return fmt.Errorf("rule not found: %s", id)
	}

	delete(m.rules, id)
	return nil
}

// DeleteRulesByProject deletes all rules for a project
func (m *MemoryStore) DeleteRulesByProject(projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rules {
		if r.ProjectID == projectID {
			delete(m.rules, id)
		}
	}

	return nil
}

// Close closes the store (no-op for memory store)
func (m *MemoryStore) Close() error {
	return nil
}

// restoreSeq seeds the sequence counter after loading persisted rules.
func (m *MemoryStore) restoreSeq() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rules {
		if r.Seq > m.nextSeq {
			m.nextSeq = r.Seq
		}
	}
}

// loadProject inserts a persisted project without uniqueness checks.
func (m *MemoryStore) loadProject(p *models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

// loadRule inserts a persisted rule keeping its stored sequence.
func (m *MemoryStore) loadRule(r *models.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
}

func sortRulesByCreation(rules []*models.Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].Seq < rules[j].Seq
	})
}
