// Package skills holds the injectable domain knowledge catalog and the
// per-turn skill selection call.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category classifies a skill.
type Category string

const (
	CategoryGuidance Category = "guidance" // prose instructions
	CategoryExample  Category = "example"  // reference scene source
)

// Descriptor is one unit of injectable knowledge. The catalog is immutable
// after load; changing skill files requires a restart.
type Descriptor struct {
	ID       string   `yaml:"id"`
	Category Category `yaml:"category"`
	Trigger  string   `yaml:"trigger"` // when the selector should pick this skill
	Body     string   `yaml:"body"`
}

// Catalog is the fixed skill set loaded at process start.
type Catalog struct {
	ordered []Descriptor
	byID    map[string]Descriptor
}

// LoadCatalog reads every .yaml/.yml file under dir. Each file holds either
// a list of descriptors or a single one. A missing directory yields an
// empty catalog.
func LoadCatalog(dir string) (*Catalog, error) {
	catalog := &Catalog{byID: make(map[string]Descriptor)}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return catalog, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading skill file %s: %w", name, err)
		}
		descriptors, err := parseSkillFile(data)
		if err != nil {
			return nil, fmt.Errorf("parsing skill file %s: %w", name, err)
		}
		for _, d := range descriptors {
			if err := catalog.add(d); err != nil {
				return nil, fmt.Errorf("skill file %s: %w", name, err)
			}
		}
	}
	return catalog, nil
}

func parseSkillFile(data []byte) ([]Descriptor, error) {
	var list []Descriptor
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}
	var single Descriptor
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	if single.ID == "" {
		return nil, nil
	}
	return []Descriptor{single}, nil
}

func (c *Catalog) add(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("skill with empty id")
	}
	if d.Category != CategoryGuidance && d.Category != CategoryExample {
		return fmt.Errorf("skill %s: unknown category %q", d.ID, d.Category)
	}
	if _, dup := c.byID[d.ID]; dup {
		return fmt.Errorf("duplicate skill id %s", d.ID)
	}
	c.ordered = append(c.ordered, d)
	c.byID[d.ID] = d
	return nil
}

// Get returns the descriptor for id.
func (c *Catalog) Get(id string) (Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Has reports whether id exists in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns the descriptors in load order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the catalog size.
func (c *Catalog) Len() int { return len(c.ordered) }
