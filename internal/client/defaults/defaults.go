// Package defaults holds the built-in templates shipped with the client.
// They are seeded on every load, never pushed to the server and never
// really deleted.
package defaults

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

//go:embed defaults.yaml
var source []byte

var (
	once     sync.Once
	builtins []models.Template
	parseErr error
)

func load() {
	builtins, parseErr = Parse(source)
}

// Parse decodes and validates a YAML list of templates. Every id must be
// unique and carry the reserved prefix.
func Parse(data []byte) ([]models.Template, error) {
	var tpls []models.Template
	if err := yaml.Unmarshal(data, &tpls); err != nil {
		return nil, fmt.Errorf("decode default templates: %w", err)
	}

	seen := make(map[string]struct{}, len(tpls))
	for _, t := range tpls {
		if !IsReserved(t.ID) {
			return nil, fmt.Errorf("default template %q: id must start with %q", t.ID, common.DefaultTemplatePrefix)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("default template %q: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return tpls, nil
}

// Templates returns fresh copies of the built-in templates.
func Templates() []models.Template {
	once.Do(load)
	if parseErr != nil {
		panic(parseErr)
	}
	out := make([]models.Template, len(builtins))
	for i, t := range builtins {
		out[i] = t.Clone()
	}
	return out
}

// IsDefault reports whether id names one of the built-in templates.
func IsDefault(id string) bool {
	once.Do(load)
	for _, t := range builtins {
		if t.ID == id {
			return true
		}
	}
	return false
}

// IsReserved reports whether id falls in the namespace kept for built-ins.
func IsReserved(id string) bool {
	return strings.HasPrefix(id, common.DefaultTemplatePrefix)
}

// Merge puts defaults first and then every record whose id is not already
// taken. Neither input is modified.
func Merge(defaults, records []models.Template) []models.Template {
	out := make([]models.Template, 0, len(defaults)+len(records))
	seen := make(map[string]struct{}, len(defaults)+len(records))
	for _, list := range [][]models.Template{defaults, records} {
		for _, t := range list {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t.Clone())
		}
	}
	return out
}
