package combat

import (
	"time"

	"github.com/cory-johannsen/arena/internal/game/entity"
)

// Details is the machine-readable record attached to a resolved action:
// rolls, modifiers, amounts, and before/after vitals for client animation.
// Before/after fields are pointers so a legitimate value of 0 survives the
// wire round-trip.
type Details struct {
	ActorType entity.Kind `json:"actorType,omitempty"`

	AttackRoll  int  `json:"attackRoll,omitempty"`  // raw d20
	AttackTotal int  `json:"attackTotal,omitempty"` // d20 + modifiers
	TargetAC    int  `json:"targetArmorClass,omitempty"`
	Critical    bool `json:"critical,omitempty"`
	Miss        bool `json:"miss,omitempty"`
	Damage      int  `json:"damage,omitempty"`

	SpellType     string `json:"spellType,omitempty"`
	SpellDamage   int    `json:"spellDamage,omitempty"`
	EnergyCost    int    `json:"energyCost,omitempty"`
	SaveRoll      int    `json:"saveRoll,omitempty"`
	SaveDC        int    `json:"saveDC,omitempty"`
	SaveSucceeded bool   `json:"saveSucceeded,omitempty"`

	HealAmount         int `json:"healAmount,omitempty"` // after clamping
	BuffValue          int `json:"buffValue,omitempty"`
	BuffDuration       int `json:"buffDuration,omitempty"`
	ActionPointsGained int `json:"actionPointsGained,omitempty"`

	TargetHealthBefore *int `json:"targetHealthBefore,omitempty"`
	TargetHealthAfter  *int `json:"targetHealthAfter,omitempty"`
	ActorEnergyBefore  *int `json:"actorEnergyBefore,omitempty"`
	ActorEnergyAfter   *int `json:"actorEnergyAfter,omitempty"`
}

// ActionResult is the output of resolving one intent.
type ActionResult struct {
	ActorID    string
	ActorName  string
	TargetID   string
	TargetName string
	Action     ActionKind
	// Message is the human-readable narrative for the log.
	Message string
	Details Details
	// SoftFailure is true for valid intents blocked by the ruleset
	// (insufficient energy): the result carries an explanatory message and
	// no state was mutated.
	SoftFailure bool
}

// LogEntry converts the result into a combat log entry stamped with the
// actor's kind.
func (r *ActionResult) LogEntry(at time.Time) LogEntry {
	return LogEntry{
		Time:      at,
		Actor:     r.ActorName,
		ActorID:   r.ActorID,
		ActorType: r.Details.ActorType,
		Action:    r.Action,
		Target:    r.TargetName,
		TargetID:  r.TargetID,
		Message:   r.Message,
		Details:   &r.Details,
	}
}

func intp(v int) *int { return &v }
