package lookup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StaticSource serves entities from an in-memory list of flat field maps,
// typically loaded from a YAML fixture file. Field values are compared by
// their string form.
type StaticSource struct {
	entities []map[string]any
}

// NewStaticSource creates a source over the given entities
func NewStaticSource(entities []map[string]any) *StaticSource {
	return &StaticSource{entities: entities}
}

// FindByField returns the first entity whose field stringifies to value.
func (s *StaticSource) FindByField(field, value string) (map[string]any, bool) {
	for _, e := range s.entities {
		v, ok := e[field]
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", v) == value {
			return e, true
		}
	}
	return nil, false
}

// entitiesFile is the on-disk shape of a lookup fixture:
//
//	user:
//	  - username: alice
//	    id: 1
//	collection:
//	  - collection_name: smoke
type entitiesFile map[string][]map[string]any

// LoadEntitiesFile reads a YAML fixture and registers one StaticSource per
// model tag. Missing file is not an error; lookups then simply miss.
func LoadEntitiesFile(path string, reg *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var file entitiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("invalid entities file %s: %w", path, err)
	}

	for model, entities := range file {
		reg.Register(model, NewStaticSource(entities))
	}
	return nil
}
