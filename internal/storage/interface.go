package storage

import (
	"github.com/hcplat/mockapi/internal/models"
)

// Store defines the interface for project and rule persistence. The
// matching engine only reads (GetProjectByName, ListEnabledRules); the
// mutation entry points belong to the admin CRUD layer.
type Store interface {
	// Project operations
	CreateProject(p *models.Project) error
	GetProject(id string) (*models.Project, error)
	GetProjectByName(name string) (*models.Project, error)
	GetAllProjects() ([]*models.Project, error)
	UpdateProject(p *models.Project) error
	// DeleteProject cascades deletion of the project's rules.
	DeleteProject(id string) error

	// Rule operations
	CreateRule(r *models.Rule) error
	GetRule(id string) (*models.Rule, error)
	GetRulesByProject(projectID string) ([]*models.Rule, error)
	// ListEnabledRules returns the enabled rules of a project whose method
	// case-insensitively equals method, ascending by creation order.
	ListEnabledRules(projectID, method string) ([]*models.Rule, error)
	UpdateRule(r *models.Rule) error
	DeleteRule(id string) error
	DeleteRulesByProject(projectID string) error

	// Utility
	Close() error
}
