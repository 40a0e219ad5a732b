// Package effect implements timed status effects: static definitions mapping
// an effect kind to the stat it modifies, and per-entity active sets with
// turn-based expiry.
package effect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stat names a combat statistic a status effect can modify.
type Stat string

const (
	StatAttack     Stat = "attack"
	StatDefense    Stat = "defense"
	StatMagicPower Stat = "magic_power"
	StatArmorClass Stat = "armor_class"
)

// validStats is the closed set of modifiable stats.
var validStats = map[Stat]bool{
	StatAttack:     true,
	StatDefense:    true,
	StatMagicPower: true,
	StatArmorClass: true,
}

// Definition is the static definition of an effect kind, loaded from YAML.
type Definition struct {
	Kind        string `yaml:"kind"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Stat is the statistic this effect modifies; active magnitudes of this
	// kind are summed into the entity's effective value for it.
	Stat Stat `yaml:"stat"`
}

// Validate checks the definition invariants.
//
// Postcondition: Returns nil iff Kind and Name are non-empty and Stat is one
// of the known Stat constants.
func (d *Definition) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("effect: kind must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("effect %q: name must not be empty", d.Kind)
	}
	if !validStats[d.Stat] {
		return fmt.Errorf("effect %q: unknown stat %q", d.Kind, d.Stat)
	}
	return nil
}

// Registry holds all known effect Definitions keyed by kind.
// It is immutable after loading; safe for concurrent reads.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def to the registry, overwriting any existing entry with the same kind.
// Precondition: def must not be nil and def.Kind must not be empty.
func (r *Registry) Register(def *Definition) {
	r.defs[def.Kind] = def
}

// Get returns the Definition for kind, or (nil, false) if not found.
func (r *Registry) Get(kind string) (*Definition, bool) {
	d, ok := r.defs[kind]
	return d, ok
}

// All returns a snapshot slice of all registered Definitions.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a Definition,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails
// to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("effect: reading dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("effect: reading %q: %w", path, err)
		}
		var def Definition
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("effect: parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("effect: %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
