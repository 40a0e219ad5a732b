package combat

// Spell IDs dispatched by the resolver.
const (
	SpellFireball      = "fireball"
	SpellHeal          = "heal"
	SpellShield        = "shield"
	SpellSecondWind    = "second_wind"
	SpellCunningAction = "cunning_action"
)

// Status-effect kinds the resolver applies. Each must have a matching
// definition in the effect registry.
const (
	EffectDefenseUp    = "defense_up"
	EffectArcaneShield = "arcane_shield"
)

// Spell is one castable ability.
type Spell struct {
	ID   string
	Name string
	// EnergyCost is deducted up front; an actor short of it gets a soft
	// failure with no mutation.
	EnergyCost int
	// Gated restricts the spell to casters whose class grants it in the
	// class definition's spell list. A gated spell cast without the grant
	// resolves to nil.
	Gated bool
	// SelfTarget forces the actor as the target regardless of the intent.
	SelfTarget bool
}

// Spellbook is the immutable spell table handed to the resolver at startup.
type Spellbook struct {
	spells map[string]*Spell
}

// NewSpellbook builds a Spellbook from the given spells.
func NewSpellbook(spells ...*Spell) *Spellbook {
	book := &Spellbook{spells: make(map[string]*Spell, len(spells))}
	for _, s := range spells {
		book.spells[s.ID] = s
	}
	return book
}

// Get returns the spell for id, or (nil, false) if unknown.
func (b *Spellbook) Get(id string) (*Spell, bool) {
	s, ok := b.spells[id]
	return s, ok
}

// DefaultEnergyCost is the flat energy cost shared by every default spell.
const DefaultEnergyCost = 20

// DefaultSpellbook returns the standard five-spell table.
func DefaultSpellbook() *Spellbook {
	return NewSpellbook(
		&Spell{ID: SpellFireball, Name: "Fireball", EnergyCost: DefaultEnergyCost, Gated: true},
		&Spell{ID: SpellHeal, Name: "Healing Word", EnergyCost: DefaultEnergyCost},
		&Spell{ID: SpellShield, Name: "Shield", EnergyCost: DefaultEnergyCost, Gated: true, SelfTarget: true},
		&Spell{ID: SpellSecondWind, Name: "Second Wind", EnergyCost: DefaultEnergyCost, Gated: true, SelfTarget: true},
		&Spell{ID: SpellCunningAction, Name: "Cunning Action", EnergyCost: DefaultEnergyCost, Gated: true, SelfTarget: true},
	)
}
