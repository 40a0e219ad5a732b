package ruleset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Monster defines a reusable monster archetype. One instance entity is
// stamped from this template per generated roster slot.
type Monster struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	MaxHealth  int    `yaml:"max_health"`
	Attack     int    `yaml:"attack"`
	Defense    int    `yaml:"defense"`
	MagicPower int    `yaml:"magic_power"`
	ArmorClass int    `yaml:"armor_class"`
	// RechargeMs is the time in milliseconds to regenerate one action point.
	RechargeMs int `yaml:"action_recharge_ms"`
}

// Validate checks that the monster satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHealth >= 1,
// Attack >= 0, Defense >= 0, ArmorClass >= 10, and RechargeMs >= 1.
func (m *Monster) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("ruleset monster: id must not be empty")
	}
	if m.Name == "" {
		return fmt.Errorf("ruleset monster %q: name must not be empty", m.ID)
	}
	if m.MaxHealth < 1 {
		return fmt.Errorf("ruleset monster %q: max_health must be >= 1", m.ID)
	}
	if m.Attack < 0 || m.Defense < 0 {
		return fmt.Errorf("ruleset monster %q: attack and defense must be >= 0", m.ID)
	}
	if m.ArmorClass < 10 {
		return fmt.Errorf("ruleset monster %q: armor_class must be >= 10", m.ID)
	}
	if m.RechargeMs < 1 {
		return fmt.Errorf("ruleset monster %q: action_recharge_ms must be >= 1", m.ID)
	}
	return nil
}

// MonsterTable holds all known monster archetypes in a stable draw order.
// It is immutable after loading; safe for concurrent reads.
type MonsterTable struct {
	byID  map[string]*Monster
	order []*Monster
}

// NewMonsterTable creates an empty MonsterTable.
func NewMonsterTable() *MonsterTable {
	return &MonsterTable{byID: make(map[string]*Monster)}
}

// Register adds m, overwriting any existing entry with the same ID while
// preserving its draw position.
func (t *MonsterTable) Register(m *Monster) {
	if _, exists := t.byID[m.ID]; !exists {
		t.order = append(t.order, m)
	} else {
		for i, old := range t.order {
			if old.ID == m.ID {
				t.order[i] = m
				break
			}
		}
	}
	t.byID[m.ID] = m
}

// Get returns the Monster for id, or (nil, false) if not found.
func (t *MonsterTable) Get(id string) (*Monster, bool) {
	m, ok := t.byID[id]
	return m, ok
}

// Len returns the number of registered archetypes.
func (t *MonsterTable) Len() int { return len(t.order) }

// Draw returns the archetype at index idx in draw order. Roster generation
// picks idx uniformly from [0, Len()).
//
// Precondition: 0 <= idx < Len().
func (t *MonsterTable) Draw(idx int) *Monster {
	return t.order[idx]
}

// All returns the archetypes in draw order.
func (t *MonsterTable) All() []*Monster {
	out := make([]*Monster, len(t.order))
	copy(out, t.order)
	return out
}

// LoadMonsters reads every *.yaml file in dir, parses each as a Monster, and
// returns a populated MonsterTable. Files are loaded in lexicographic order
// so the draw order is deterministic across restarts.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a table with >= 1 entries, or an error.
func LoadMonsters(dir string) (*MonsterTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ruleset: reading monster dir %q: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	table := NewMonsterTable()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ruleset: reading %q: %w", path, err)
		}
		var m Monster
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("ruleset: parsing %q: %w", path, err)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("ruleset: %q: %w", path, err)
		}
		table.Register(&m)
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("ruleset: no monster definitions found in %q", dir)
	}
	return table, nil
}
