package lookup

import (
	"fmt"
	"time"

	"github.com/hcplat/mockapi/internal/models"
)

// ProjectLister is the slice of the rule store the project source needs.
type ProjectLister interface {
	GetAllProjects() ([]*models.Project, error)
}

// ProjectSource serves the "project" model straight from the rule store,
// so templates can resolve {{db.description}} and friends for an entity
// identified by a project field. Reads go through the store on every
// lookup; there is no copy to go stale.
type ProjectSource struct {
	store ProjectLister
}

// NewProjectSource creates a source over the given store
func NewProjectSource(store ProjectLister) *ProjectSource {
	return &ProjectSource{store: store}
}

// FindByField returns the first project whose field stringifies to value.
func (s *ProjectSource) FindByField(field, value string) (map[string]any, bool) {
	projects, err := s.store.GetAllProjects()
	if err != nil {
		return nil, false
	}
	for _, p := range projects {
		fields := map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"created_at":  p.CreatedAt.Format(time.RFC3339),
		}
		v, ok := fields[field]
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", v) == value {
			return fields, true
		}
	}
	return nil, false
}
