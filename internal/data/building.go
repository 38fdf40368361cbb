package data

import (
	"fmt"
	"os"
	"sort"

	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/resource"
	"gopkg.in/yaml.v3"
)

// BuildingTemplate is one placeable building from the catalog.
type BuildingTemplate struct {
	Key      string
	Name     string
	Prefab   string // display identifier handed to presentation
	Cost     int64
	Category string
	Resource resource.Kind // produced kind, resource buildings only
	Rate     float64       // production per time unit
	Comfort  float64       // residential only
	Usage    float64       // residential electricity draw per time unit
}

// BuildingTable holds building templates indexed by key.
type BuildingTable struct {
	byKey map[string]*BuildingTemplate
	keys  []string
}

// Get returns a template by key, or nil if not found.
func (t *BuildingTable) Get(key string) *BuildingTemplate {
	return t.byKey[key]
}

// Count returns the number of templates loaded.
func (t *BuildingTable) Count() int {
	return len(t.byKey)
}

// Keys returns template keys in sorted order.
func (t *BuildingTable) Keys() []string {
	return append([]string(nil), t.keys...)
}

type buildingYAMLEntry struct {
	Key      string  `yaml:"key"`
	Name     string  `yaml:"name"`
	Prefab   string  `yaml:"prefab"`
	Cost     int64   `yaml:"cost"`
	Category string  `yaml:"category"`
	Produces string  `yaml:"produces"`
	Rate     float64 `yaml:"rate"`
	Comfort  float64 `yaml:"comfort"`
	Usage    float64 `yaml:"usage"`
}

type buildingListFile struct {
	Buildings []buildingYAMLEntry `yaml:"buildings"`
}

// LoadBuildingTable loads building templates from a YAML file.
func LoadBuildingTable(path string) (*BuildingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read building_list: %w", err)
	}
	return ParseBuildingTable(raw)
}

// ParseBuildingTable decodes building templates from YAML.
func ParseBuildingTable(raw []byte) (*BuildingTable, error) {
	var f buildingListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse building_list: %w", err)
	}

	t := &BuildingTable{byKey: make(map[string]*BuildingTemplate, len(f.Buildings))}
	for i, e := range f.Buildings {
		if e.Key == "" {
			return nil, fmt.Errorf("%w: building_list entry %d: missing key", errs.ErrConfiguration, i)
		}
		if _, dup := t.byKey[e.Key]; dup {
			return nil, fmt.Errorf("%w: building_list: duplicate key %q", errs.ErrConfiguration, e.Key)
		}
		tmpl := &BuildingTemplate{
			Key:      e.Key,
			Name:     e.Name,
			Prefab:   e.Prefab,
			Cost:     e.Cost,
			Category: e.Category,
			Rate:     e.Rate,
			Comfort:  e.Comfort,
			Usage:    e.Usage,
		}
		if tmpl.Name == "" {
			tmpl.Name = e.Key
		}
		if e.Produces != "" {
			k, err := resource.ParseKind(e.Produces)
			if err != nil {
				return nil, fmt.Errorf("building_list %q: %w", e.Key, err)
			}
			tmpl.Resource = k
		}
		t.byKey[e.Key] = tmpl
		t.keys = append(t.keys, e.Key)
	}
	sort.Strings(t.keys)
	return t, nil
}
