package combat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/entity"
)

// Defend and shield effect parameters, in turns.
const (
	defendDuration = 2
	shieldDuration = 3

	// shieldACBonus is the flat armor class granted by the shield spell.
	shieldACBonus = 5
)

// Damage dice for the spell table.
var (
	fireballDice   = dice.MustParse("2d6")
	healDice       = dice.MustParse("1d4")
	secondWindDice = dice.MustParse("1d10")
)

// Resolver applies one action intent to an actor and target inside a combat.
// It holds the immutable configuration tables; all randomness comes from the
// Source passed per call, so tests inject deterministic sources to assert
// exact outcomes.
type Resolver struct {
	Effects *effect.Registry
	Spells  *Spellbook
}

// NewResolver creates a Resolver over the given registries.
//
// Precondition: effects and spells must be non-nil.
func NewResolver(effects *effect.Registry, spells *Spellbook) *Resolver {
	return &Resolver{Effects: effects, Spells: spells}
}

// Resolve applies intent for actor inside cbt and returns the outcome.
//
// A nil return means silent no-op: unknown or dead target, unknown action or
// spell, or a gated spell the actor's class never granted. No state changed
// and nothing should be logged. A non-nil result with SoftFailure carries an
// explanatory message and also changed nothing.
//
// Precondition: actor must be a living member of cbt; src must be non-nil.
// Postcondition: on a damaging or healing result, Details carries
// before/after vitals; entity invariants hold for actor and target.
func (r *Resolver) Resolve(cbt *Combat, actor *entity.Entity, intent Intent, src dice.Source, now time.Time) *ActionResult {
	switch intent.Kind {
	case ActionAttack:
		target := cbt.FindEntity(intent.TargetID)
		if target == nil || !target.Alive() {
			return nil
		}
		return r.resolveAttack(cbt, actor, target, src, now)
	case ActionCast:
		return r.resolveCast(cbt, actor, intent, src, now)
	case ActionDefend:
		return r.resolveDefend(actor, now)
	default:
		return nil
	}
}

// resolveAttack performs the d20 attack roll against the target's effective
// armor class. Natural 20 is an automatic critical hit for double damage;
// natural 1 is an automatic miss. Otherwise the attack hits iff
// d20 + attack modifier >= target AC.
func (r *Resolver) resolveAttack(cbt *Combat, actor, target *entity.Entity, src dice.Source, now time.Time) *ActionResult {
	res := &ActionResult{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		Action:     ActionAttack,
		Details:    Details{ActorType: actor.Kind},
	}

	roll := dice.D20(src)
	targetAC := target.EffectiveArmorClass(r.Effects)
	res.Details.AttackRoll = roll
	res.Details.TargetAC = targetAC

	switch {
	case roll == 1:
		res.Details.Miss = true
		res.Message = fmt.Sprintf("%s fumbles and misses %s completely!", actor.Name, target.Name)
		return res
	case roll == 20:
		res.Details.Critical = true
		res.Details.AttackTotal = roll + actor.AttackModifier()
	default:
		total := roll + actor.AttackModifier()
		res.Details.AttackTotal = total
		if total < targetAC {
			res.Details.Miss = true
			res.Message = fmt.Sprintf("%s attacks %s but fails to break through their defenses. (%d vs AC %d)",
				actor.Name, target.Name, total, targetAC)
			return res
		}
	}

	damage := rollDamage(actor.EffectiveStat(r.Effects, effect.StatAttack), src)
	if res.Details.Critical {
		damage *= 2
	}
	r.dealDamage(cbt, target, damage, &res.Details, now)
	res.Details.Damage = damage

	if res.Details.Critical {
		res.Message = fmt.Sprintf("%s lands a critical hit on %s for %d damage!", actor.Name, target.Name, damage)
	} else {
		res.Message = fmt.Sprintf("%s attacked %s for %d damage!", actor.Name, target.Name, damage)
	}
	return res
}

// rollDamage returns floor(base x m) for m uniform in [0.75, 1.25], drawn
// from src in percent steps so outcomes are deterministic under test sources.
func rollDamage(base int, src dice.Source) int {
	pct := 75 + src.Intn(51)
	return base * pct / 100
}

// dealDamage applies damage to target, records before/after health, and
// appends a standalone defeat entry when the hit drops the target from
// above 0 to exactly 0.
func (r *Resolver) dealDamage(cbt *Combat, target *entity.Entity, damage int, d *Details, now time.Time) {
	before := target.Health
	target.ApplyDamage(damage)
	d.TargetHealthBefore = intp(before)
	d.TargetHealthAfter = intp(target.Health)

	if before > 0 && target.Health == 0 {
		cbt.AppendLog(LogEntry{
			Time:       now,
			Message:    fmt.Sprintf("%s has been defeated!", target.Name),
			Type:       "defeat",
			EntityID:   target.ID,
			EntityType: target.Kind,
		})
	}
}

func (r *Resolver) resolveCast(cbt *Combat, actor *entity.Entity, intent Intent, src dice.Source, now time.Time) *ActionResult {
	spell, ok := r.Spells.Get(intent.SpellID)
	if !ok {
		return nil
	}
	if spell.Gated && !actor.HasSpell(spell.ID) {
		return nil
	}

	target := actor
	if !spell.SelfTarget {
		target = cbt.FindEntity(intent.TargetID)
		if target == nil || !target.Alive() {
			return nil
		}
	}

	res := &ActionResult{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		Action:     ActionCast,
		Details: Details{
			ActorType: actor.Kind,
			SpellType: spell.ID,
		},
	}

	if actor.Energy < spell.EnergyCost {
		res.SoftFailure = true
		res.Message = fmt.Sprintf("%s doesn't have enough energy to cast %s!", actor.Name, spell.Name)
		return res
	}

	energyBefore := actor.Energy
	actor.SpendEnergy(spell.EnergyCost)
	res.Details.EnergyCost = spell.EnergyCost
	res.Details.ActorEnergyBefore = intp(energyBefore)
	res.Details.ActorEnergyAfter = intp(actor.Energy)

	switch spell.ID {
	case SpellFireball:
		r.castFireball(cbt, actor, target, src, res, now)
	case SpellHeal:
		healRoll := dice.Roll(healDice, src).Total() + actor.WisdomModifier()
		if healRoll < 0 {
			healRoll = 0
		}
		actual := target.Heal(healRoll)
		res.Details.HealAmount = actual
		res.Details.TargetHealthBefore = intp(target.Health - actual)
		res.Details.TargetHealthAfter = intp(target.Health)
		res.Message = fmt.Sprintf("%s heals %s for %d health!", actor.Name, target.Name, actual)
	case SpellShield:
		actor.Effects.Apply(effect.Active{
			ID:        uuid.NewString(),
			Kind:      EffectArcaneShield,
			Magnitude: shieldACBonus,
			Remaining: shieldDuration,
			AppliedAt: now,
		})
		res.Details.BuffValue = shieldACBonus
		res.Details.BuffDuration = shieldDuration
		res.Message = fmt.Sprintf("%s conjures a shimmering shield, raising their armor class by %d!", actor.Name, shieldACBonus)
	case SpellSecondWind:
		healRoll := dice.Roll(secondWindDice, src).Total() + actor.Level
		actual := actor.Heal(healRoll)
		res.Details.HealAmount = actual
		res.Details.TargetHealthBefore = intp(actor.Health - actual)
		res.Details.TargetHealthAfter = intp(actor.Health)
		res.Message = fmt.Sprintf("%s draws on their reserves and recovers %d health!", actor.Name, actual)
	case SpellCunningAction:
		before := actor.ActionPoints
		actor.GainActionPoints(1)
		res.Details.ActionPointsGained = int(actor.ActionPoints - before)
		res.Message = fmt.Sprintf("%s darts into position, ready to act again!", actor.Name)
	default:
		// Spellbook entries are constructed from the constants above; an
		// unknown ID here is a configuration bug.
		return nil
	}
	return res
}

// castFireball resolves the spell-attack roll, the target's saving throw,
// and damage. Natural 20 on the caster's roll is an automatic critical for
// double damage with no save; natural 1 fizzles with the energy already
// consumed.
func (r *Resolver) castFireball(cbt *Combat, actor, target *entity.Entity, src dice.Source, res *ActionResult, now time.Time) {
	castRoll := dice.D20(src)
	res.Details.AttackRoll = castRoll
	res.Details.AttackTotal = castRoll + actor.SpellModifier()

	if castRoll == 1 {
		res.Details.Miss = true
		res.Message = fmt.Sprintf("%s's fireball fizzles out harmlessly!", actor.Name)
		return
	}

	damage := dice.Roll(fireballDice, src).Total() + actor.SpellModifier()
	if damage < 0 {
		damage = 0
	}

	if castRoll == 20 {
		res.Details.Critical = true
		damage *= 2
	} else {
		saveDC := actor.SaveDC()
		saveRoll := dice.D20(src) + target.DexterityModifier()
		res.Details.SaveRoll = saveRoll
		res.Details.SaveDC = saveDC
		if saveRoll >= saveDC {
			res.Details.SaveSucceeded = true
			damage /= 2
		}
	}

	r.dealDamage(cbt, target, damage, &res.Details, now)
	res.Details.SpellDamage = damage

	switch {
	case res.Details.Critical:
		res.Message = fmt.Sprintf("%s's fireball engulfs %s in a devastating blast for %d damage!", actor.Name, target.Name, damage)
	case res.Details.SaveSucceeded:
		res.Message = fmt.Sprintf("%s dives aside, taking only %d damage from %s's fireball!", target.Name, damage, actor.Name)
	default:
		res.Message = fmt.Sprintf("%s's fireball scorches %s for %d damage!", actor.Name, target.Name, damage)
	}
}

// resolveDefend applies a self-targeted defense effect of magnitude
// floor(defense / 2) for a fixed number of turns.
func (r *Resolver) resolveDefend(actor *entity.Entity, now time.Time) *ActionResult {
	buff := actor.Defense / 2
	actor.Effects.Apply(effect.Active{
		ID:        uuid.NewString(),
		Kind:      EffectDefenseUp,
		Magnitude: buff,
		Remaining: defendDuration,
		AppliedAt: now,
	})
	return &ActionResult{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		TargetID:   actor.ID,
		TargetName: actor.Name,
		Action:     ActionDefend,
		Message:    fmt.Sprintf("%s takes a defensive stance, increasing defense!", actor.Name),
		Details: Details{
			ActorType:    actor.Kind,
			BuffValue:    buff,
			BuffDuration: defendDuration,
		},
	}
}
