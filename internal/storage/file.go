package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hcplat/mockapi/internal/models"
)

// FileStore implements Store with file-based persistence on top of an
// in-memory store: every mutation is written through to a JSON file.
type FileStore struct {
	mu       sync.Mutex
	basePath string
	memory   *MemoryStore
}

// NewFileStore creates a new file-based store rooted at basePath
func NewFileStore(basePath string) (*FileStore, error) {
	dirs := []string{
		basePath,
		filepath.Join(basePath, "projects"),
		filepath.Join(basePath, "rules"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fs := &FileStore{
		basePath: basePath,
		memory:   NewMemoryStore(),
	}

	if err := fs.loadAll(); err != nil {
		return nil, err
	}

	return fs, nil
}

// loadAll loads persisted projects and rules into memory
func (f *FileStore) loadAll() error {
	projectsDir := filepath.Join(f.basePath, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(projectsDir, entry.Name()))
		if err != nil {
			continue
		}

		var p models.Project
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}

		f.memory.loadProject(&p)
	}

	rulesDir := filepath.Join(f.basePath, "rules")
	entries, err = os.ReadDir(rulesDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(rulesDir, entry.Name()))
		if err != nil {
			continue
		}

		var r models.Rule
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}

		f.memory.loadRule(&r)
	}

	f.memory.restoreSeq()
	return nil
}

// saveProject saves a project to disk
func (f *FileStore) saveProject(p *models.Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(f.basePath, "projects", p.ID+".json")
	return os.WriteFile(path, data, 0644)
}

// saveRule saves a rule to disk
func (f *FileStore) saveRule(r *models.Rule) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(f.basePath, "rules", r.ID+".json")
	return os.WriteFile(path, data, 0644)
}

func (f *FileStore) deleteProjectFile(id string) error {
	return os.Remove(filepath.Join(f.basePath, "projects", id+".json"))
}

func (f *FileStore) deleteRuleFile(id string) error {
	return os.Remove(filepath.Join(f.basePath, "rules", id+".json"))
}

// CreateProject creates a new project
func (f *FileStore) CreateProject(p *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.CreateProject(p); err != nil {
		return err
	}

	return f.saveProject(p)
}

// GetProject retrieves a project by ID
func (f *FileStore) GetProject(id string) (*models.Project, error) {
	return f.memory.GetProject(id)
}

// GetProjectByName retrieves a project by name
func (f *FileStore) GetProjectByName(name string) (*models.Project, error) {
	return f.memory.GetProjectByName(name)
}

// GetAllProjects retrieves all projects
func (f *FileStore) GetAllProjects() ([]*models.Project, error) {
	return f.memory.GetAllProjects()
}

// UpdateProject updates a project
func (f *FileStore) UpdateProject(p *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.UpdateProject(p); err != nil {
		return err
	}

	return f.saveProject(p)
}

// DeleteProject deletes a project and its rules
func (f *FileStore) DeleteProject(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rules, err := f.memory.GetRulesByProject(id)
	if err != nil {
		return err
	}

	if err := f.memory.DeleteProject(id); err != nil {
		return err
	}

	for _, r := range rules {
		f.deleteRuleFile(r.ID)
	}

	return f.deleteProjectFile(id)
}

// CreateRule creates a new rule
func (f *FileStore) CreateRule(r *models.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.CreateRule(r); err != nil {
		return err
	}

	return f.saveRule(r)
}

// GetRule retrieves a rule by ID
func (f *FileStore) GetRule(id string) (*models.Rule, error) {
	return f.memory.GetRule(id)
}

// GetRulesByProject retrieves all rules for a project
func (f *FileStore) GetRulesByProject(projectID string) ([]*models.Rule, error) {
	return f.memory.GetRulesByProject(projectID)
}

// ListEnabledRules retrieves enabled rules for a project and method
func (f *FileStore) ListEnabledRules(projectID, method string) ([]*models.Rule, error) {
	return f.memory.ListEnabledRules(projectID, method)
}

// UpdateRule updates a rule
func (f *FileStore) UpdateRule(r *models.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.UpdateRule(r); err != nil {
		return err
	}

	return f.saveRule(r)
}

// DeleteRule deletes a rule
func (f *FileStore) DeleteRule(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.DeleteRule(id); err != nil {
		return err
	}

	return f.deleteRuleFile(id)
}

// DeleteRulesByProject deletes all rules for a project
func (f *FileStore) DeleteRulesByProject(projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rules, err := f.memory.GetRulesByProject(projectID)
	if err != nil {
		return err
	}

	if err := f.memory.DeleteRulesByProject(projectID); err != nil {
		return err
	}

	for _, r := range rules {
		f.deleteRuleFile(r.ID)
	}

	return nil
}

// Close closes the store
func (f *FileStore) Close() error {
	return f.memory.Close()
}
