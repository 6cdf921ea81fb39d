package models

import (
	"strings"
	"time"
)

// Project groups mock rules under a single mount name. A rule belongs to
// exactly one project; deleting a project cascades to its rules.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // Normalized mount name, unique
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectInput represents input for creating a project
type ProjectInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// ProjectUpdate represents input for updating a project
type ProjectUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// NormalizeProjectName lowercases and trims a project name so that the
// mount segment of an inbound mock URL resolves case-insensitively.
func NormalizeProjectName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
