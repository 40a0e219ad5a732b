package ruleset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Class defines a playable character class. The values feed entity
// construction at combat start: base vitals, armor class, ability scores,
// and the spell menu shown to the player.
type Class struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	BaseHealth  int           `yaml:"base_health"`
	BaseAC      int           `yaml:"base_ac"`
	HitDie      int           `yaml:"hit_die"`
	Abilities   AbilityScores `yaml:"abilities"`
	Spells      []string      `yaml:"spells"`
}

// Validate checks that the class satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, BaseHealth >= 1,
// BaseAC >= 10, and HitDie is one of 4, 6, 8, 10, 12.
func (c *Class) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("ruleset class: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("ruleset class %q: name must not be empty", c.ID)
	}
	if c.BaseHealth < 1 {
		return fmt.Errorf("ruleset class %q: base_health must be >= 1", c.ID)
	}
	if c.BaseAC < 10 {
		return fmt.Errorf("ruleset class %q: base_ac must be >= 10", c.ID)
	}
	switch c.HitDie {
	case 4, 6, 8, 10, 12:
	default:
		return fmt.Errorf("ruleset class %q: hit_die %d is not a standard die", c.ID, c.HitDie)
	}
	return nil
}

// ClassRegistry holds all known classes keyed by ID.
// It is immutable after loading; safe for concurrent reads.
type ClassRegistry struct {
	classes map[string]*Class
}

// NewClassRegistry creates an empty ClassRegistry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*Class)}
}

// Register adds c, overwriting any existing entry with the same ID.
func (r *ClassRegistry) Register(c *Class) {
	r.classes[c.ID] = c
}

// Get returns the Class for id, or (nil, false) if not found.
func (r *ClassRegistry) Get(id string) (*Class, bool) {
	c, ok := r.classes[id]
	return c, ok
}

// All returns a snapshot slice of all registered classes.
func (r *ClassRegistry) All() []*Class {
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	return out
}

// LoadClasses reads every *.yaml file in dir, parses each as a Class, and
// returns a populated ClassRegistry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil registry, or an error if any file fails
// to parse or validate.
func LoadClasses(dir string) (*ClassRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ruleset: reading class dir %q: %w", dir, err)
	}
	reg := NewClassRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ruleset: reading %q: %w", path, err)
		}
		var c Class
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("ruleset: parsing %q: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("ruleset: %q: %w", path, err)
		}
		reg.Register(&c)
	}
	return reg, nil
}
