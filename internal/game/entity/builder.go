package entity

import (
	"time"

	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// Defaults for entities built without a class template, matching the legacy
// flat-stat ruleset.
const (
	defaultHealth     = 100
	defaultEnergy     = 100
	defaultAttack     = 10
	defaultDefense    = 5
	defaultMagicPower = 8
)

// PlayerOptions carries the tunable parts of player construction.
type PlayerOptions struct {
	MaxActionPoints int
	RechargeMs      int
}

// NewPlayer builds a player entity. When class is non-nil its template
// drives vitals, armor class, and ability scores; otherwise the legacy flat
// stats apply and the armor class is derived from the defense stat.
//
// Precondition: id and name must be non-empty; opts fields must be positive.
// Postcondition: the returned entity satisfies the vitals invariants and
// starts with full action points.
func NewPlayer(id, name string, class *ruleset.Class, opts PlayerOptions, now time.Time) *Entity {
	e := &Entity{
		ID:              id,
		Name:            name,
		Kind:            KindPlayer,
		Health:          defaultHealth,
		MaxHealth:       defaultHealth,
		Energy:          defaultEnergy,
		MaxEnergy:       defaultEnergy,
		ActionPoints:    float64(opts.MaxActionPoints),
		MaxActionPoints: opts.MaxActionPoints,
		RechargeMs:      opts.RechargeMs,
		LastAction:      now,
		Attack:          defaultAttack,
		Defense:         defaultDefense,
		MagicPower:      defaultMagicPower,
		ArmorClass:      10 + defaultDefense/2,
		Level:           1,
		Effects:         effect.NewSet(),
	}
	if class != nil {
		e.Class = class.ID
		e.Health = class.BaseHealth
		e.MaxHealth = class.BaseHealth
		e.ArmorClass = class.BaseAC
		ab := class.Abilities
		e.Abilities = &ab
		e.Spells = append([]string(nil), class.Spells...)
	}
	return e
}

// NewMonster stamps an instance entity from a monster archetype.
//
// Precondition: id must be unique within the combat; m must be validated.
// Postcondition: the returned entity satisfies the vitals invariants and
// starts with full action points.
func NewMonster(id, name string, m *ruleset.Monster, maxActionPoints int, now time.Time) *Entity {
	return &Entity{
		ID:              id,
		Name:            name,
		Kind:            KindMonster,
		Health:          m.MaxHealth,
		MaxHealth:       m.MaxHealth,
		Energy:          defaultEnergy,
		MaxEnergy:       defaultEnergy,
		ActionPoints:    float64(maxActionPoints),
		MaxActionPoints: maxActionPoints,
		RechargeMs:      m.RechargeMs,
		LastAction:      now,
		Attack:          m.Attack,
		Defense:         m.Defense,
		MagicPower:      m.MagicPower,
		ArmorClass:      m.ArmorClass,
		Effects:         effect.NewSet(),
	}
}
