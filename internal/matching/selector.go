package matching

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hcplat/mockapi/internal/models"
	"github.com/hcplat/mockapi/internal/storage"
)

// Selector walks a project's enabled rules in creation order and returns
// the first one whose method and path pattern admit the request.
type Selector struct {
	store    storage.Store
	patterns *PatternCache
	log      *logrus.Logger
}

// NewSelector creates a new rule selector
func NewSelector(store storage.Store, log *logrus.Logger) *Selector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Selector{
		store:    store,
		patterns: NewPatternCache(),
		log:      log,
	}
}

// Select returns the first matching enabled rule, or nil when no rule
// matches. A nil result is not an error; it is the "no mock configured"
// outcome. Rules whose patterns fail to compile are skipped with a warning
// rather than failing the request.
func (s *Selector) Select(projectID, method, path string) (*models.Rule, error) {
	rules, err := s.store.ListEnabledRules(projectID, method)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if !strings.EqualFold(rule.Method, method) {
			continue
		}

		compiled, err := s.patterns.Get(rule.PathPattern)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"ruleId":  rule.ID,
				"pattern": rule.PathPattern,
			}).Warn("skipping rule with invalid path pattern")
			continue
		}

		if compiled.Matches(path) {
			return rule, nil
		}
	}

	return nil, nil
}
