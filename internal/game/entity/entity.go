// Package entity defines the combatant value model shared by players and
// monsters: vitals, the fractional action-point economy, ability-derived
// modifiers, and invariant-preserving mutators.
package entity

import (
	"math"
	"time"

	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// Kind distinguishes player entities from monster entities.
type Kind string

const (
	KindPlayer  Kind = "player"
	KindMonster Kind = "monster"
)

// Entity is one combatant. All fields are authoritative server state; the
// JSON form is the wire snapshot shape and round-trips exactly.
//
// Invariant: 0 <= Health <= MaxHealth, 0 <= Energy <= MaxEnergy,
// 0 <= ActionPoints <= MaxActionPoints.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`
	Energy    int `json:"energy"`
	MaxEnergy int `json:"maxEnergy"`

	ActionPoints    float64   `json:"actionPoints"`
	MaxActionPoints int       `json:"maxActionPoints"`
	RechargeMs      int       `json:"actionRechargeRateMs"`
	LastAction      time.Time `json:"lastActionTimestamp"`

	Attack     int `json:"attack"`
	Defense    int `json:"defense"`
	MagicPower int `json:"magicPower"`
	ArmorClass int `json:"armorClass"`

	// Abilities is nil for monsters and classless players; modifier lookups
	// then fall back to the flat stats.
	Abilities *ruleset.AbilityScores `json:"abilityScores,omitempty"`

	Class string `json:"characterClass,omitempty"`
	Level int    `json:"level,omitempty"`

	// Spells lists the spell IDs granted by the entity's class. Class-gated
	// spells resolve only for entities that carry the grant.
	Spells []string `json:"spells,omitempty"`

	Effects *effect.Set `json:"statusEffects"`
}

// Alive reports whether the entity can still participate in combat.
// An entity with Health == 0 is dead: excluded from valid-target sets and
// from acting.
func (e *Entity) Alive() bool { return e.Health > 0 }

// CanAct reports whether the entity may act right now: alive with at least
// one whole action point.
func (e *Entity) CanAct() bool { return e.Alive() && e.ActionPoints >= 1 }

// HasSpell reports whether the entity's class granted the given spell.
func (e *Entity) HasSpell(id string) bool {
	for _, s := range e.Spells {
		if s == id {
			return true
		}
	}
	return false
}

// AttackModifier returns the signed modifier added to attack rolls: the
// strength ability modifier when ability scores are present, otherwise a
// fallback proportional to the flat attack stat.
func (e *Entity) AttackModifier() int {
	if e.Abilities != nil {
		return ruleset.Modifier(e.Abilities.Strength)
	}
	return e.Attack / 5
}

// DexterityModifier returns the modifier used for saving throws, or 0 when
// no ability scores are present.
func (e *Entity) DexterityModifier() int {
	if e.Abilities != nil {
		return ruleset.Modifier(e.Abilities.Dexterity)
	}
	return 0
}

// SpellModifier returns the modifier added to offensive spell rolls: the
// intelligence ability modifier, or a fallback proportional to the flat
// magic power stat.
func (e *Entity) SpellModifier() int {
	if e.Abilities != nil {
		return ruleset.Modifier(e.Abilities.Intelligence)
	}
	return e.MagicPower / 5
}

// WisdomModifier returns the modifier added to healing rolls, with the same
// magic power fallback as SpellModifier.
func (e *Entity) WisdomModifier() int {
	if e.Abilities != nil {
		return ruleset.Modifier(e.Abilities.Wisdom)
	}
	return e.MagicPower / 5
}

// SaveDC returns the difficulty class a target's saving throw must meet to
// resist this entity's spells: 8 + spell modifier + proficiency.
func (e *Entity) SaveDC() int {
	return 8 + e.SpellModifier() + ruleset.Proficiency
}

// EffectiveStat returns the named flat stat plus the signed sum of all
// matching status-effect magnitudes, floored at 0.
func (e *Entity) EffectiveStat(reg *effect.Registry, stat effect.Stat) int {
	var base int
	switch stat {
	case effect.StatAttack:
		base = e.Attack
	case effect.StatDefense:
		base = e.Defense
	case effect.StatMagicPower:
		base = e.MagicPower
	case effect.StatArmorClass:
		base = e.ArmorClass
	}
	v := base + effect.StatBonus(e.Effects, reg, stat)
	if v < 0 {
		return 0
	}
	return v
}

// EffectiveArmorClass returns the armor class after status-effect modifiers.
// Attack rolls must meet or exceed this value to hit.
func (e *Entity) EffectiveArmorClass(reg *effect.Registry) int {
	return e.EffectiveStat(reg, effect.StatArmorClass)
}

// ApplyDamage reduces Health by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: Health >= 0.
func (e *Entity) ApplyDamage(amount int) {
	e.Health -= amount
	if e.Health < 0 {
		e.Health = 0
	}
}

// Heal raises Health by amount, capped at MaxHealth, and returns the actual
// amount restored after clamping.
//
// Precondition: amount >= 0.
// Postcondition: Health <= MaxHealth; return value == Health delta.
func (e *Entity) Heal(amount int) int {
	before := e.Health
	e.Health += amount
	if e.Health > e.MaxHealth {
		e.Health = e.MaxHealth
	}
	return e.Health - before
}

// SpendEnergy deducts cost from Energy if available and reports success.
// On false, Energy is unchanged.
func (e *Entity) SpendEnergy(cost int) bool {
	if e.Energy < cost {
		return false
	}
	e.Energy -= cost
	return true
}

// GainActionPoints adds points to ActionPoints, capped at MaxActionPoints,
// and reports whether the value changed.
func (e *Entity) GainActionPoints(points float64) bool {
	before := e.ActionPoints
	e.ActionPoints = math.Min(float64(e.MaxActionPoints), e.ActionPoints+points)
	return e.ActionPoints != before
}

// SpendActionPoint consumes exactly one whole action point while preserving
// any fractional accrual: 2.6 points become exactly 1.6.
//
// Precondition: ActionPoints >= 1.
// Postcondition: ActionPoints == max(0, floor(old) - 1 + frac(old)).
func (e *Entity) SpendActionPoint(now time.Time) {
	whole, frac := math.Modf(e.ActionPoints)
	e.ActionPoints = math.Max(0, whole-1+frac)
	e.LastAction = now
}

// ApplyUpdate overwrites vitals, action-point state, and status effects
// wholesale from the authoritative snapshot. Identity and base stats are
// not merged; the orchestrator's state is the single source of truth and
// any local values are discarded.
func (e *Entity) ApplyUpdate(snap *Entity) {
	e.Health = snap.Health
	e.MaxHealth = snap.MaxHealth
	e.Energy = snap.Energy
	e.MaxEnergy = snap.MaxEnergy
	e.ActionPoints = snap.ActionPoints
	e.MaxActionPoints = snap.MaxActionPoints
	e.LastAction = snap.LastAction
	if e.Effects == nil {
		e.Effects = effect.NewSet()
	}
	if snap.Effects != nil {
		e.Effects.Replace(snap.Effects.All())
	} else {
		e.Effects.Replace(nil)
	}
}

// Clone returns a deep copy, suitable for broadcast snapshots.
func (e *Entity) Clone() *Entity {
	cp := *e
	if e.Abilities != nil {
		ab := *e.Abilities
		cp.Abilities = &ab
	}
	cp.Effects = effect.NewSet()
	if e.Effects != nil {
		cp.Effects.Replace(e.Effects.All())
	}
	return &cp
}
